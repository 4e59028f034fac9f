package httputil_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dashsync/walletsyncd/pkg/httputil"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/echo":
				body, _ := io.ReadAll(r.Body)
				w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
				w.Write(body)
			case "/missing":
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "boom", http.StatusBadGateway)
			}
		},
	))
	t.Cleanup(server.Close)

	client := httputil.NewClient(httputil.ClientOpts{RequestsPerSecond: 100})
	ctx := context.Background()

	status, body, err := client.NewHTTPRequest(
		ctx, http.MethodPost, server.URL+"/echo", `{"a":1}`,
		map[string]string{"Content-Type": "application/json"},
	)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"a":1}`, body)

	// Client errors are left to the caller.
	status, _, err = client.NewHTTPRequest(ctx, http.MethodGet, server.URL+"/missing", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	_, _, err = client.NewHTTPRequest(ctx, http.MethodGet, server.URL+"/down", "", nil)
	var serverErr *httputil.ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, http.StatusBadGateway, serverErr.StatusCode)

	_, _, err = client.NewHTTPRequest(ctx, http.MethodDelete, server.URL, "", nil)
	require.Error(t, err)
}
