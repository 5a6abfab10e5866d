package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/wifi-points/internal/config"
	"github.com/EmpoweredVote/wifi-points/internal/wifi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouter(t *testing.T) {
	store, err := wifi.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.CORSOrigins = []string{"https://maps.example.org"}
	srv := httptest.NewServer(newRouter(cfg, wifi.NewService(store, time.Second, zap.NewNop()), zap.NewNop()))
	t.Cleanup(srv.Close)

	tests := []struct {
		method, path, body string
		want               int
		contains           string
	}{
		{http.MethodGet, "/", "", http.StatusOK, "Server is up!"},
		{http.MethodGet, "/healthz", "", http.StatusOK, `"ok"`},
		{http.MethodGet, "/wifi/points", "", http.StatusOK, `"totalPages":1`},
		{http.MethodGet, "/wifi/points/nope", "", http.StatusNotFound, "not found"},
		{http.MethodGet, "/wifi/points/near?lat=100&lon=0", "", http.StatusBadRequest, "latitude"},
		{http.MethodPost, "/graphql", `{"query":"{ listPoints { total } }"}`, http.StatusOK, `"total":0`},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		require.NoError(t, err)
		req.Header.Set("Origin", "https://maps.example.org")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		buf := new(strings.Builder)
		_, err = io.Copy(buf, resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, tt.want, resp.StatusCode, tt.path)
		assert.Contains(t, buf.String(), tt.contains, tt.path)
		assert.Equal(t, "https://maps.example.org", resp.Header.Get("Access-Control-Allow-Origin"), tt.path)
	}
}
