// Package upstream is the HTTP client for the academy REST backend.
package upstream

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
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/middleware/requestid"
)

const maxErrorBody = 64 * 1024

// Observer receives per-call timings, labelled by a stable route name.
type Observer interface {
	ObserveUpstream(route string, status int, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tracer     trace.Tracer
	Metrics    Observer
	Logger     *zap.Logger
}

// Client performs requests against the academy backend. Every request forwards the
// caller's session cookie and request id found on the context.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	metrics Observer
	logger  *zap.Logger
}

// New builds a backend client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/noah-isme/academy-portal/pkg/upstream")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		tracer:  tracer,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Field is one multipart form value.
type Field struct {
	Name  string
	Value string
}

// File is an optional multipart file part.
type File struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// Multipart is a multipart/form-data body.
type Multipart struct {
	Fields []Field
	File   *File
}

// Get issues a GET and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, route, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, route, path, query, nil, "", out)
}

// PostJSON issues a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, route, path string, body, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, route, path, body, out)
}

// PatchJSON issues a PATCH with a JSON body.
func (c *Client) PatchJSON(ctx context.Context, route, path string, body, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPatch, route, path, body, out)
}

// Delete issues a DELETE. Empty and 204 responses are accepted.
func (c *Client) Delete(ctx context.Context, route, path string) error {
	return c.do(ctx, http.MethodDelete, route, path, nil, nil, "", nil)
}

// SendMultipart issues method with a multipart/form-data body.
func (c *Client) SendMultipart(ctx context.Context, method, route, path string, form Multipart, out interface{}) error {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range form.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode form")
		}
	}
	if form.File != nil && len(form.File.Data) > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, form.File.FieldName, form.File.FileName))
		contentType := form.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode form")
		}
		if _, err := part.Write(form.File.Data); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode form")
		}
	}
	if err := w.Close(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode form")
	}
	return c.do(ctx, method, route, path, nil, buf, w.FormDataContentType(), out)
}

func (c *Client) sendJSON(ctx context.Context, method, route, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
	}
	return c.do(ctx, method, route, path, nil, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, route, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "upstream "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
	)

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie := CookieFromContext(ctx); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(route, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.logger.Warn("upstream request failed", zap.String("route", route), zap.String("method", method), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}
	defer resp.Body.Close()
	c.observe(route, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		mapped := statusError(resp.StatusCode, raw)
		span.SetStatus(codes.Error, mapped.Code)
		c.logger.Warn("upstream returned error",
			zap.String("route", route),
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("code", mapped.Code),
		)
		return mapped
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "malformed backend response")
	}
	return nil
}

func (c *Client) observe(route string, status int, d time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveUpstream(route, status, d)
	}
}

// statusError maps a backend status onto the portal's error taxonomy, keeping the
// backend message when it sent one.
func statusError(status int, body []byte) *appErrors.Error {
	message := backendMessage(body)
	var base *appErrors.Error
	switch {
	case status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
	case status == http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		base = appErrors.ErrForbidden
	case status == http.StatusConflict:
		base = appErrors.ErrConflict
	case status == http.StatusTooManyRequests:
		base = appErrors.ErrRateLimited
	default:
		base = appErrors.ErrUpstream
	}
	err := appErrors.Clone(base, message)
	err.Err = fmt.Errorf("backend status %d", status)
	return err
}

func backendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil {
			return nested.Message
		}
	}
	return ""
}
