package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/ports"
	"github.com/lexiscan-ai/lexiscan-backend/internal/observability/metrics"
)

// Config carries the adapter-level knobs the router needs; everything else
// comes in through the inbound ports.
type Config struct {
	ServiceName    string
	JWTSecret      string
	AllowedOrigins []string
	ChatRateRPS    float64
	ChatRateBurst  int
}

type Router struct {
	cfg       Config
	processor ports.AgreementProcessor
	uploader  ports.AgreementUploader
	chat      ports.ChatService
	insights  ports.InsightsService
	logger    *slog.Logger
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg Config,
	processor ports.AgreementProcessor,
	uploader ports.AgreementUploader,
	chat ports.ChatService,
	insights ports.InsightsService,
	logger *slog.Logger,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:       cfg,
		processor: processor,
		uploader:  uploader,
		chat:      chat,
		insights:  insights,
		logger:    logger,
		metrics:   serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := chi.NewRouter()

	mux.Use(requestIDMiddleware)
	mux.Use(func(next http.Handler) http.Handler {
		return accessLogMiddleware(rt.logger, next)
	})
	if rt.metrics != nil {
		mux.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(rt.cfg.ServiceName, next)
		})
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	chatLimiter := newUserRateLimiter(rt.cfg.ChatRateRPS, rt.cfg.ChatRateBurst)

	mux.Group(func(authed chi.Router) {
		authed.Use(authMiddleware(rt.cfg.JWTSecret))

		authed.Route("/docUpload", func(r chi.Router) {
			r.Post("/", rt.uploadDocument)
			r.Get("/", rt.listDocuments)
			r.Get("/preview/{agreementID}", rt.previewDocument)
			r.Delete("/{agreementID}", rt.deleteDocument)
		})

		authed.Route("/agreement", func(r chi.Router) {
			r.Post("/process", rt.processAgreement)
			r.Get("/analysis/{agreementID}", rt.getAnalysis)
			r.Get("/allDocuments", rt.listDocuments)
			r.Get("/questions/{agreementID}", rt.getQuestions)
			r.Get("/report/{agreementID}", rt.getReport)
			r.Get("/rulebook/{agreementID}", rt.getRulebook)
			r.Get("/export/{agreementID}", rt.exportWorkbook)
		})

		authed.Route("/chat", func(r chi.Router) {
			r.With(chatLimiter.middleware).Post("/query", rt.chatQuery)
			r.Get("/messages/{agreementID}", rt.chatMessages)
		})
	})

	return mux
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"error": err.Error(),
	})
}

// writeRawJSON forwards a body that is already JSON without re-encoding.
func writeRawJSON(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
