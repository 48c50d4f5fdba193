/*
Package apiclient is the HTTP client of the blog API.

It builds request URLs from the configured base URL, attaches the bearer token
and a request id, encodes JSON or multipart bodies, and normalizes every failure
into a *errs.CustomError: server rejections carry the message of the API's error
envelope, transport failures are reported as connectivity errors, canceled
contexts as canceled, and a 401 on an authenticated request triggers the
registered unauthorized handler before being returned.
*/
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/logx"
	"blogclient/internal/pkg/randx"
)

const (
	// DefaultTimeout bounds a single API call when the caller's context has no deadline.
	DefaultTimeout = 15 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

var duplicateSlashes = regexp.MustCompile(`/{2,}`)

// UnauthorizedHandler is called with the token of a request the API answered 401.
type UnauthorizedHandler func(token string)

// Client talks to the blog API. It is safe for concurrent use.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	onUnauthorized atomic.Pointer[UnauthorizedHandler]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a Client for baseURL, e.g. "https://api.example.com/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	if base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &logx.Transport{},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// OnUnauthorized registers h to be called whenever an authenticated request is answered 401.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.onUnauthorized.Store(&h)
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL builds the absolute URL of path under the base URL.
// Duplicate slashes are collapsed and query parameters with empty values are dropped.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL

	joined := u.Path + "/" + strings.TrimLeft(path, "/")
	u.Path = duplicateSlashes.ReplaceAllString(joined, "/")
	u.RawPath = ""

	q := url.Values{}
	for key, values := range query {
		for _, v := range values {
			if v != "" {
				q.Add(key, v)
			}
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Token is the bearer token; empty sends the request anonymously.
	Token string

	// JSON, when non-nil, is encoded as the request body.
	JSON any

	// Form, when non-nil, is sent as multipart/form-data. It takes precedence over JSON.
	Form *Form

	// Failure is the errs code reported when the API rejects the request.
	// Defaults to errs.ErrRejected.
	Failure int
}

// Do performs r and decodes a 2xx JSON body into out (when out is non-nil).
func (c *Client) Do(ctx context.Context, r Request, out any) *errs.CustomError {
	body, err := c.DoRaw(ctx, r)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if decodeErr := json.Unmarshal(body, out); decodeErr != nil {
		logx.Warn("API response could not be decoded", "path", r.Path, "error", decodeErr.Error())
		return errs.NewError(errs.ErrMalformedResponse).WithCause(decodeErr)
	}

	return nil
}

// DoRaw performs r and returns the raw body of a 2xx response.
func (c *Client) DoRaw(ctx context.Context, r Request) ([]byte, *errs.CustomError) {
	httpReq, customErr := c.newHTTPRequest(ctx, r)
	if customErr != nil {
		return nil, customErr
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return body, nil
	}

	if res.StatusCode == http.StatusUnauthorized && r.Token != "" {
		if h := c.onUnauthorized.Load(); h != nil {
			(*h)(r.Token)
		}
		return nil, errs.NewError(errs.ErrUnauthorized).WithMessage(envelopeMessage(body))
	}

	failure := r.Failure
	if res.StatusCode == http.StatusNotFound {
		failure = errs.ErrNotFound
	}
	if failure == 0 {
		failure = errs.ErrRejected
	}

	return nil, errs.NewError(failure).
		WithMessage(envelopeMessage(body)).
		WithStatus(res.StatusCode)
}

func (c *Client) newHTTPRequest(ctx context.Context, r Request) (*http.Request, *errs.CustomError) {
	var (
		body        io.Reader
		contentType string
	)

	switch {
	case r.Form != nil:
		encoded, ct, err := r.Form.Encode()
		if err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}
		body, contentType = encoded, ct

	case r.JSON != nil:
		encoded, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}
		body, contentType = bytes.NewReader(encoded), "application/json"
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(r.Path, r.Query), body)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", randx.RequestID())

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if r.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.Token)
	}

	return httpReq, nil
}

// transportError classifies a failure that left no usable response.
func transportError(ctx context.Context, err error) *errs.CustomError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errs.NewError(errs.ErrNetwork).WithCause(err)
		}
		return errs.NewError(errs.ErrRequestCanceled).WithCause(err)
	}

	return errs.NewError(errs.ErrNetwork).WithCause(err)
}
