package githubapi

import (
	"context"
	"io"
	"net/http"
	"time"
)

// attemptTimeoutTransport bounds a single request attempt, including reading its body.
// It sits below the rate limiter so secondary rate limit waits are not charged to the attempt.
type attemptTimeoutTransport struct {
	base    http.RoundTripper
	timeout time.Duration
}

func newAttemptTimeoutTransport(base http.RoundTripper, timeout time.Duration) *attemptTimeoutTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &attemptTimeoutTransport{base: base, timeout: timeout}
}

// RoundTrip issues the request under its own deadline.
func (transport *attemptTimeoutTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	attemptContext, cancel := context.WithTimeout(request.Context(), transport.timeout)
	response, roundTripError := transport.base.RoundTrip(request.WithContext(attemptContext))
	if roundTripError != nil {
		cancel()
		return nil, roundTripError
	}
	response.Body = &cancelOnCloseBody{ReadCloser: response.Body, cancel: cancel}
	return response, nil
}

type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (body *cancelOnCloseBody) Close() error {
	closeError := body.ReadCloser.Close()
	body.cancel()
	return closeError
}
