package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, handler http.HandlerFunc) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	cfg := DefaultConfig()
	cfg.Secure = false
	cfg.AuthMode = AuthBearer
	cfg.BearerToken = "test-token"
	sess, err := NewSession(cfg)
	require.NoError(t, err)
	sess.client.rc.SetBaseURL(srv.URL)
	return sess, srv
}

func TestXrfkeyHeaderAndQueryMatch(t *testing.T) {
	var gotHeader, gotQuery string
	sess, srv := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Qlik-Xrfkey")
		gotQuery = r.URL.Query().Get("Xrfkey")
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	_, err := sess.Client().Do(context.Background(), Idempotent, http.MethodGet, "/qrs/about", nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, gotHeader)
	require.Equal(t, gotHeader, gotQuery)
	require.Len(t, gotHeader, 16)
}

func TestRetriesOn503ThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	sess, srv := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	resp, err := sess.Client().Do(context.Background(), Idempotent, http.MethodGet, "/qrs/about", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.GreaterOrEqual(t, attempts.Load(), int32(3))
}

func TestNonIdempotentDoesNotRetryApplicationError(t *testing.T) {
	var attempts atomic.Int32
	sess, srv := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	resp, err := sess.Client().Do(context.Background(), NonIdempotent, http.MethodPost, "/qrs/task", nil, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Equal(t, int32(1), attempts.Load())
}
