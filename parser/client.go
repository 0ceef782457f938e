// Package parser is the HTTP client for the prescription OCR service.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second
	HealthTimeout  = 5 * time.Second
)

// Client calls the parsing service. Every request is bounded by Timeout; there are no retries.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ParseFromURL asks the service to download and parse the file at fileURL.
func (c *Client) ParseFromURL(ctx context.Context, fileURL string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"file_url": fileURL})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/parse-prescription", "application/json", bytes.NewReader(body))
}

// ParseFromBuffer uploads the raw file as the multipart field "file".
func (c *Client) ParseFromBuffer(ctx context.Context, data []byte, filename, mimeType string) (*Result, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return c.post(ctx, "/parse-prescription", w.FormDataContentType(), &buf)
}

// ParseText runs the medication extractor over already-extracted text.
func (c *Client) ParseText(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/parse-text", "application/json", bytes.NewReader(body))
}

// HealthCheck reports whether the service answered /health with a 2xx in time. It never errors.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ServiceError{Message: fmt.Sprintf("parsing service timed out after %s", c.timeout), Err: err}
		}
		return nil, &ServiceError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("parsing service responded with status %d%s", resp.StatusCode, remoteError(raw)),
		}
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: "undecodable response: " + err.Error(), Err: err}
	}
	if res.MedicationsFound == 0 && len(res.Medications) > 0 {
		res.MedicationsFound = len(res.Medications)
	}
	return &res, nil
}

func remoteError(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return ": " + body.Error
	}
	return ""
}

// ServiceError is any failure talking to the parsing service. StatusCode is 0 for transport errors.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	return "prescription parsing failed: " + e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }
