// Package rest implements the request adapter shared by all integration
// nodes: it assembles fully-qualified URLs from a normalized base URL,
// applies credentials and query/body parameters, and maps non-2xx responses
// onto the SDK error taxonomy. The adapter applies no retry, backoff or
// timeout policy of its own; timeouts belong to the injected HTTP client.
package rest

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
)

// BasicAuth carries username/password credentials applied as an
// Authorization: Basic header.
type BasicAuth struct {
	Username string
	Password string
}

// Request describes a single API call. Endpoint is relative to the
// adapter's base URL; a leading slash is optional.
type Request struct {
	Method   string
	Endpoint string
	Query    map[string]string
	Headers  map[string]string
	FormData map[string]string
	Body     any         // JSON-encoded when set
	RawBody  []byte      // sent verbatim when set (e.g. XML)
	File     *FileUpload // multipart upload when set
}

// FileUpload describes one multipart file part. FormData entries of the
// request become the remaining multipart fields.
type FileUpload struct {
	Param    string
	FileName string
	Content  []byte
}

// Adapter issues API calls against a single base URL.
type Adapter struct {
	client  *resty.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets a custom zap logger for the adapter.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests and by
// hosts that inject their own transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) {
		a.client = resty.NewWithClient(hc)
	}
}

// NormalizeBaseURL strips trailing slashes so that joining with endpoint
// paths is idempotent: "http://host/" and "http://host" yield identical
// request URIs.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

// NewAdapter creates a request adapter for the given base URL. Auth is
// optional; when set, every request carries basic auth.
func NewAdapter(baseURL string, auth *BasicAuth, opts ...Option) *Adapter {
	a := &Adapter{
		client:  resty.New(),
		baseURL: NormalizeBaseURL(baseURL),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger, _ = zap.NewProduction()
	}

	a.client.SetBaseURL(a.baseURL)
	if auth != nil {
		a.client.SetBasicAuth(auth.Username, auth.Password)
	}

	return a
}

// BaseURL returns the normalized base URL.
func (a *Adapter) BaseURL() string {
	return a.baseURL
}

// Do issues the request and returns the raw response body. A connection
// failure or a non-2xx status is returned as a single error carrying the
// transport-provided message verbatim.
func (a *Adapter) Do(ctx context.Context, req Request) ([]byte, error) {
	r := a.client.R().SetContext(ctx)

	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.FormData) > 0 {
		r.SetFormData(req.FormData)
	}
	if req.File != nil {
		r.SetFileReader(req.File.Param, req.File.FileName, bytes.NewReader(req.File.Content))
	} else if req.RawBody != nil {
		r.SetBody(req.RawBody)
	} else if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	endpoint := "/" + strings.TrimLeft(req.Endpoint, "/")

	resp, err := r.Execute(req.Method, endpoint)
	if err != nil {
		a.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, sdkerrors.NewInternalError("", err.Error(), sdkerrors.ErrorCodeNetwork, err)
	}

	if resp.IsError() {
		return nil, statusError(resp)
	}

	return resp.Body(), nil
}

// statusError maps a non-2xx response onto the error taxonomy, passing the
// server-provided message through verbatim.
func statusError(resp *resty.Response) error {
	message := strings.TrimSpace(string(resp.Body()))
	if message == "" {
		message = resp.Status()
	}

	switch resp.StatusCode() {
	case http.StatusBadRequest:
		return sdkerrors.NewBadRequestError("", message, sdkerrors.ErrorCodeBadRequest, nil)
	case http.StatusUnauthorized:
		return sdkerrors.NewUnauthorizedError("", message, sdkerrors.ErrorCodeUnauthorized, nil)
	case http.StatusForbidden:
		return sdkerrors.NewPermissionError("", message, sdkerrors.ErrorCodeForbidden, nil)
	case http.StatusNotFound:
		return sdkerrors.NewNotFoundError("", message, sdkerrors.ErrorCodeNotFound, nil)
	default:
		return sdkerrors.NewInternalError("", message, sdkerrors.ErrorCodeInternal, nil)
	}
}
