package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"resty.dev/v3"
)

// Idempotency marks whether a REST call may be safely retried on an
// application-level failure, not just a connection-level one.
type Idempotency int

const (
	// Idempotent calls (listings, reads) are retried on retriable status
	// codes and on connection/timeout errors.
	Idempotent Idempotency = iota
	// NonIdempotent calls (task/event/app creation) are retried only on
	// connection-level failures.
	NonIdempotent
)

// retriableStatuses is the set of status codes this client treats as
// transient.
var retriableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Response is the transport-level result: status, headers, and the raw
// response body. JSON decoding is the caller's responsibility.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Client is the REST transport. Every call appends a per-call Xrfkey query
// parameter and matching X-Qlik-Xrfkey header of equal length, attaches
// either mutual-TLS certs or a bearer token (already configured on rc), and
// retries per the configured backoff policy.
type Client struct {
	rc  *resty.Client
	cfg Config
}

// Do issues a single REST call. query may be nil. body may be nil for
// bodyless methods.
func (c *Client) Do(ctx context.Context, idem Idempotency, method, path string, query map[string]string, body []byte) (*Response, error) {
	xrfkey, err := newXrfkey()
	if err != nil {
		return nil, fmt.Errorf("generate xrfkey: %w", err)
	}

	var resp *Response
	operation := func() error {
		req := c.rc.R().SetContext(ctx).
			SetQueryParam("Xrfkey", xrfkey).
			SetHeader("X-Qlik-Xrfkey", xrfkey)
		for k, v := range query {
			req.SetQueryParam(k, v)
		}
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		rresp, err := req.Execute(method, path)
		if err != nil {
			return err // connection/timeout error: always retriable
		}
		resp = &Response{Status: rresp.StatusCode(), Headers: rresp.Header(), Body: rresp.Bytes()}

		if idem == Idempotent && retriableStatuses[resp.Status] {
			return retryableStatusError{status: resp.Status, retryAfter: parseRetryAfter(resp.Headers.Get("Retry-After"))}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.Multiplier = 2

	notify := func(err error, d time.Duration) {}
	err = backoff.RetryNotify(func() error {
		err := operation()
		var rse retryableStatusError
		if errors.As(err, &rse) && rse.retryAfter > 0 {
			bo.InitialInterval = rse.retryAfter
		}
		return err
	}, backoff.WithMaxRetries(bo, 4), notify)
	if err != nil {
		var rse retryableStatusError
		if errors.As(err, &rse) {
			return resp, nil // exhausted retries on an application-level status; surface the response as-is
		}
		return nil, fmt.Errorf("transport error calling %s %s: %w", method, path, err)
	}
	return resp, nil
}

type retryableStatusError struct {
	status     int
	retryAfter time.Duration
}

func (e retryableStatusError) Error() string {
	return fmt.Sprintf("retriable status %d", e.status)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func newXrfkey() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
