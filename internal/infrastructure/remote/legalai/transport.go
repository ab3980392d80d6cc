package legalai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPClient() *http.Client {
	// Per-call deadlines come from the request context; the transport
	// itself carries no global timeout so batch analysis can run long.
	return &http.Client{}
}

func (c *Client) postMultipart(ctx context.Context, path string, file domain.FileUpload, fields map[string]string, out any, operation string, timeout time.Duration) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/pdf"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s multipart: %w", operation, err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("write %s multipart: %w", operation, err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write %s field: %w", operation, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close %s multipart: %w", operation, err)
	}

	raw, err := c.post(ctx, path, writer.FormDataContentType(), &body, operation, timeout)
	if err != nil {
		return err
	}
	return decodeJSON(raw, out, operation)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any, operation string, timeout time.Duration) error {
	raw, err := c.postFormRaw(ctx, path, form, operation, timeout)
	if err != nil {
		return err
	}
	return decodeJSON(raw, out, operation)
}

func (c *Client) postFormRaw(ctx context.Context, path string, form url.Values, operation string, timeout time.Duration) ([]byte, error) {
	return c.post(ctx, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), operation, timeout)
}

func (c *Client) postJSONRaw(ctx context.Context, path string, payload any, operation string, timeout time.Duration) ([]byte, error) {
	return c.postJSONBodyRaw(ctx, path, payload, operation, timeout)
}

func (c *Client) postJSONBodyRaw(ctx context.Context, path string, payload any, operation string, timeout time.Duration) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", operation, err)
	}
	return c.post(ctx, path, "application/json", bytes.NewReader(body), operation, timeout)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, operation string, timeout time.Duration) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("legalai %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(operation, resp.StatusCode, resp.Status, raw)
	}
	return raw, nil
}

func decodeJSON(raw []byte, out any, operation string) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
