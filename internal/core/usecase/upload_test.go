package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

type storageFake struct {
	saved   map[string][]byte
	saveErr error
	url     string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	f.saved[key] = buf.Bytes()
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, nil
}

func (f *storageFake) AccessURL(context.Context, string) (string, error) {
	return f.url, nil
}

func newUploadFixture() (*agreementRepoFake, *storageFake, *memoryFake, *UploadAgreementUseCase) {
	repo := &agreementRepoFake{agreement: analyzedAgreement()}
	storage := &storageFake{url: "file:///data/storage/documents/contract.pdf"}
	memory := &memoryFake{threadID: "thread-9"}
	uc := NewUploadAgreementUseCase(repo, storage, memory)
	return repo, storage, memory, uc
}

func TestUploadCreatesAgreementWithThreadAndBlob(t *testing.T) {
	repo, storage, _, uc := newUploadFixture()

	agreement, err := uc.Upload(context.Background(), "user-1", "NDA", "mutual nda", domain.FileUpload{
		Name:    "my nda (final).pdf",
		Content: []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if agreement.Status != domain.StatusCreated {
		t.Fatalf("expected created status, got %q", agreement.Status)
	}
	if agreement.ThreadID != "thread-9" {
		t.Fatalf("memory thread not linked, got %q", agreement.ThreadID)
	}
	if repo.created == nil {
		t.Fatalf("agreement row not created")
	}

	if len(storage.saved) != 1 {
		t.Fatalf("expected one stored blob, got %d", len(storage.saved))
	}
	for key := range storage.saved {
		if !strings.HasPrefix(key, "documents/") {
			t.Fatalf("unexpected storage key %q", key)
		}
		if strings.ContainsAny(key, " ()") {
			t.Fatalf("storage key not sanitized: %q", key)
		}
	}
}

func TestUploadDefaultsTitleToFilename(t *testing.T) {
	_, _, _, uc := newUploadFixture()

	agreement, err := uc.Upload(context.Background(), "user-1", "  ", "", domain.FileUpload{
		Name:    "contract.pdf",
		Content: []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if agreement.Title != "contract.pdf" {
		t.Fatalf("expected filename title, got %q", agreement.Title)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	_, _, _, uc := newUploadFixture()

	_, err := uc.Upload(context.Background(), "user-1", "NDA", "", domain.FileUpload{Name: "x.pdf"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
}

func TestPreviewChecksOwnership(t *testing.T) {
	_, _, _, uc := newUploadFixture()

	if _, err := uc.Preview(context.Background(), "agr-1", "intruder"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	url, err := uc.Preview(context.Background(), "agr-1", "user-1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if url == "" {
		t.Fatalf("expected access url")
	}
}

func TestDeleteChecksOwnership(t *testing.T) {
	repo, _, _, uc := newUploadFixture()

	if err := uc.Delete(context.Background(), "agr-1", "intruder"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if repo.deleted {
		t.Fatalf("row must not be deleted for a foreign user")
	}

	if err := uc.Delete(context.Background(), "agr-1", "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !repo.deleted {
		t.Fatalf("row not deleted")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my nda (final).pdf": "my_nda__final_.pdf",
		"../../etc/passwd":   "passwd",
		"":                   "document.pdf",
		"контракт.pdf":       "________.pdf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
