// Package httputil wraps the HTTP calls made to remote explorers with a
// rate limiter and a circuit breaker.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dashsync/walletsyncd/pkg/circuitbreaker"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

const defaultTimeout = 30 * time.Second

// ServerError is returned, through the circuit breaker, for 5xx responses.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

// ClientOpts defines the parameters needed for creating a Client with
// NewClient method
type ClientOpts struct {
	Name              string
	Timeout           time.Duration
	RequestsPerSecond int
}

// Client makes rate limited HTTP calls. Transport failures and 5xx responses
// count as failures for the circuit breaker, other statuses are returned to
// the caller as they are.
type Client struct {
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

func NewClient(opts ClientOpts) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := ratelimit.NewUnlimited()
	if opts.RequestsPerSecond > 0 {
		limiter = ratelimit.New(opts.RequestsPerSecond)
	}
	name := opts.Name
	if name == "" {
		name = "httpclient"
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		cb:      circuitbreaker.NewCircuitBreaker(name),
		limiter: limiter,
	}
}

// NewHTTPRequest function builds http call
// @param method <string>: http method
// @param url <string>: URL http to call
// @return <int>, <string>, error
func (c *Client) NewHTTPRequest(
	ctx context.Context,
	method, url, bodyString string, header map[string]string,
) (int, string, error) {
	switch method {
	case http.MethodGet, http.MethodPost:
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}

	c.limiter.Take()

	type response struct {
		status int
		body   string
	}
	res, err := c.cb.Execute(func() (interface{}, error) {
		var body io.Reader
		if bodyString != "" {
			body = strings.NewReader(bodyString)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		for key, value := range header {
			req.Header.Set(key, value)
		}

		rs, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer rs.Body.Close()

		bodyBytes, err := io.ReadAll(rs.Body)
		if err != nil {
			return nil, err
		}
		if rs.StatusCode >= http.StatusInternalServerError {
			return nil, &ServerError{rs.StatusCode, string(bodyBytes)}
		}
		return response{rs.StatusCode, string(bodyBytes)}, nil
	})
	if err != nil {
		return 0, "", err
	}

	r := res.(response)
	return r.status, r.body, nil
}
