package dexagg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fachebot/cross-swap-api/internal/apierr"

	"github.com/carlmjohnson/requests"
)

// HTTPError is a non-2xx venue response. Strategies inspect the status to
// decide on fallbacks before compacting it with Upstream.
type HTTPError struct {
	Venue      string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s responded %d", e.Venue, e.StatusCode)
}

func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

func NewHTTPClient(transportProxy *http.Transport, timeout time.Duration) *http.Client {
	httpClient := &http.Client{Timeout: timeout}
	if transportProxy != nil {
		httpClient.Transport = transportProxy
	}
	return httpClient
}

// Fetch runs rb and decodes a 2xx JSON body into v.
func Fetch(ctx context.Context, venue string, rb *requests.Builder, v any) error {
	var status int
	var body bytes.Buffer
	err := rb.
		AddValidator(func(res *http.Response) error {
			status = res.StatusCode
			return nil
		}).
		ToBytesBuffer(&body).
		Fetch(ctx)
	if err != nil {
		return apierr.Upstream(venue, 0, nil, err)
	}

	if status < 200 || status > 299 {
		return &HTTPError{Venue: venue, StatusCode: status, Body: body.Bytes()}
	}

	if v == nil {
		return nil
	}
	if err = json.Unmarshal(body.Bytes(), v); err != nil {
		return apierr.Upstream(venue, status, nil, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Upstream converts any venue failure into the compacted upstream error.
func Upstream(err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return apierr.Upstream(httpErr.Venue, httpErr.StatusCode, httpErr.Body, nil)
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return apierr.Upstream("venue", 0, nil, err)
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	ok := errors.As(err, &httpErr)
	return httpErr, ok
}
