// Package client talks to the portal's /v1/media API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Category struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	MaxFiles    int    `json:"max_files"`
}

type Media struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"original_name"`
	FileName     string `json:"file_name"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// APIError is a non-2xx response. Errors is set for validation failures.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("portal api: status %d", e.Status)
	}
	return fmt.Sprintf("portal api: status %d: %s", e.Status, e.Message)
}

// FieldErrors flattens Errors as "field: message" lines sorted by field.
func (e *APIError) FieldErrors() []string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, msg := range e.Errors[f] {
			out = append(out, f+": "+msg)
		}
	}
	return out
}

// ProgressFunc receives the bytes of file content sent so far.
type ProgressFunc func(sent, total int64)

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out struct {
		Data []Category `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/media/categories", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// List returns stored media keyed by category. Categories without files are
// absent.
func (c *Client) List(ctx context.Context) (map[string][]Media, error) {
	var out struct {
		Data map[string][]Media `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/media", nil, "", &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = map[string][]Media{}
	}
	return out.Data, nil
}

// Upload streams content as a multipart form. size is only used for progress
// reporting and may be 0 when unknown.
func (c *Client) Upload(ctx context.Context, category, fileName string, content io.Reader, size int64, progress ProgressFunc) (*Media, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, category, fileName, &progressReader{r: content, total: size, fn: progress}))
	}()

	var out struct {
		Data Media `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/media", pr, mw.FormDataContentType(), &out); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/v1/media/"+strconv.FormatInt(id, 10), nil, "", nil)
}

func writeForm(mw *multipart.Writer, category, fileName string, content io.Reader) error {
	if err := mw.WriteField("category", category); err != nil {
		return err
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	hdr.Set("Content-Type", contentType(fileName))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

func contentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Message
			apiErr.Errors = payload.Errors
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
