package logx

import (
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outgoing API call.
// Only method, path, status and latency are recorded; headers are never logged
// because they carry the bearer token.
type Transport struct {
	// Base is the wrapped transport. http.DefaultTransport is used when nil.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	started := time.Now()
	res, err := base.RoundTrip(r)

	logger := Logger().With().
		Str("component", "api").
		Str("request_id", r.Header.Get("X-Request-ID")).
		Str("request_method", r.Method).
		Str("request_path", r.URL.Path).
		Logger()

	if err != nil {
		logger.Warn().
			Err(err).
			Dur("latency", time.Since(started)).
			Msg("API call failed before a response arrived")
		return nil, err
	}

	logEvent := logger.Debug()
	if res.StatusCode >= 500 {
		logEvent = logger.Error()
	} else if res.StatusCode >= 400 {
		logEvent = logger.Warn()
	}

	logEvent.
		Int("status", res.StatusCode).
		Dur("latency", time.Since(started)).
		Msg("API call completed")

	return res, nil
}
