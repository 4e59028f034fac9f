package esplora

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dashsync/walletsyncd/pkg/explorer"
	"github.com/dashsync/walletsyncd/pkg/httputil"
)

// Opts defines the parameters needed for creating an esplora service with
// NewService method
type Opts struct {
	APIURL            string
	RequestsPerSecond int
	RequestTimeout    time.Duration
}

type esplora struct {
	apiURL string
	client *httputil.Client
}

// NewService returns a new esplora service as an explorer.Service interface
func NewService(opts Opts) (explorer.Service, error) {
	if opts.APIURL == "" {
		return nil, fmt.Errorf("missing explorer url")
	}
	client := httputil.NewClient(httputil.ClientOpts{
		Name:              "esplora",
		Timeout:           opts.RequestTimeout,
		RequestsPerSecond: opts.RequestsPerSecond,
	})
	return &esplora{strings.TrimSuffix(opts.APIURL, "/"), client}, nil
}

func (e *esplora) get(ctx context.Context, url string) (string, error) {
	status, resp, err := e.client.NewHTTPRequest(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &StatusError{status, resp}
	}
	return resp, nil
}

// StatusError is returned for non 200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("explorer responded with status %d: %s", e.StatusCode, e.Body)
}
