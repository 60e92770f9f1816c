package qrs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-q/ctrlq/internal/transport"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := transport.DefaultConfig()
	cfg.Host = u.Hostname()
	cfg.RepoPort = port
	cfg.Secure = false
	cfg.AuthMode = transport.AuthBearer
	cfg.BearerToken = "test-token"
	sess, err := transport.NewSession(cfg)
	require.NoError(t, err)
	return New(sess), srv
}

func TestListReloadTasksFiltersBySchemaPath(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "r1", "name": "Reload1", "schemaPath": "ReloadTask", "enabled": true,
				"app": map[string]string{"id": "app-1"},
				"tags": []map[string]string{{"name": "nightly"}}},
			{"id": "e1", "name": "Ext1", "schemaPath": "ExternalProgramTask", "enabled": true},
		})
	})
	defer srv.Close()

	tasks, err := c.ListReloadTasks(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "r1", tasks[0].ID)
	assert.Equal(t, "Reload", tasks[0].Kind)
	assert.Equal(t, "app-1", tasks[0].AppID)
	assert.Equal(t, []string{"nightly"}, tasks[0].TagNames)
}

func TestListExternalProgramTasksFiltersBySchemaPath(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "r1", "name": "Reload1", "schemaPath": "ReloadTask", "enabled": true},
			{"id": "e1", "name": "Ext1", "schemaPath": "ExternalProgramTask", "enabled": true},
		})
	})
	defer srv.Close()

	tasks, err := c.ListExternalProgramTasks(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "e1", tasks[0].ID)
	assert.Equal(t, "External program", tasks[0].Kind)
}

func TestListAppsReturnsAppSummaries(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{{"id": "app-1", "name": "A1"}})
	})
	defer srv.Close()

	apps, err := c.ListApps(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Equal(t, "A1", apps[0].Name)
}

func TestCreateReloadTaskReturnsFaultOn4xx(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad app id"))
	})
	defer srv.Close()

	_, err := c.CreateReloadTask(context.Background(), ReloadTaskSpec{Name: "T1", AppID: "missing"})
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, http.StatusBadRequest, fault.Status)
}

func TestCreateReloadTaskReturnsCreatedID(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "new-guid"})
	})
	defer srv.Close()

	id, err := c.CreateReloadTask(context.Background(), ReloadTaskSpec{Name: "T1", AppID: "app-1"})
	require.NoError(t, err)
	assert.Equal(t, "new-guid", id)
}
