package wifi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAPI(t *testing.T) (http.Handler, *SQLiteStore) {
	t.Helper()
	s := newTestStore(t)
	seed(t, s,
		pointAt("A", 0, 0),
		pointAt("B", 90, 500),
		pointAt("C", 180, 5000),
	)
	return SetupRoutes(NewService(s, time.Second, zap.NewNop())), s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) Page[AccessPoint] {
	t.Helper()
	var p Page[AccessPoint]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}

func TestListPointsHandler(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := get(t, h, "/points?page=2&page_size=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	p := decodePage(t, rec)
	assert.Equal(t, int64(3), p.Total)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 2, p.PageSize)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, []string{"C"}, ids(p.Items))
}

func TestListPointsHandler_Defaults(t *testing.T) {
	h, _ := newTestAPI(t)

	p := decodePage(t, get(t, h, "/points"))
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, []string{"A", "B", "C"}, ids(p.Items))
}

func TestListPointsHandler_EmptyFilterResult(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := get(t, h, "/points?neighborhood=Nowhere")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"pageSize":10,"totalPages":1}`, rec.Body.String())
}

func TestListPointsHandler_BadInput(t *testing.T) {
	h, _ := newTestAPI(t)

	for _, target := range []string{
		"/points?page=0",
		"/points?page=abc",
		"/points?page_size=501",
		"/points?pageSize=0",
	} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body.Field, target)
	}
}

func TestGetPointHandler(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := get(t, h, "/points/B")
	require.Equal(t, http.StatusOK, rec.Code)

	var ap AccessPoint
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ap))
	assert.Equal(t, "B", ap.ID)
	assert.Equal(t, "Escuelas", ap.Program)

	rec = get(t, h, "/points/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestPointsNearHandler(t *testing.T) {
	h, _ := newTestAPI(t)

	target := fmt.Sprintf("/points/near?lat=%f&lon=%f&radius=1000", testCenter.Lat(), testCenter.Lon())
	rec := get(t, h, target)
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodePage(t, rec)
	assert.Equal(t, int64(2), p.Total)
	assert.Equal(t, []string{"A", "B"}, ids(p.Items))
}

func TestPointsNearHandler_BadInput(t *testing.T) {
	h, _ := newTestAPI(t)

	tests := map[string]string{
		"/points/near?lon=0":                     "lat",
		"/points/near?lat=0":                     "lon",
		"/points/near?lat=91&lon=0":              "latitude",
		"/points/near?lat=0&lon=200":             "longitude",
		"/points/near?lat=0&lon=0&radius=0":      "radius",
		"/points/near?lat=0&lon=0&radius=-1":     "radius",
		"/points/near?lat=0&lon=0&radius=x":      "radius",
		"/points/near?lat=0&lon=0&radius=100000": "radius",
	}
	for target, field := range tests {
		rec := get(t, h, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, field, body.Field, target)
	}
}

func TestHandlers_StoreUnavailable(t *testing.T) {
	h, s := newTestAPI(t)
	require.NoError(t, s.Close())

	rec := get(t, h, "/points")
	// A closed pool is not a transient condition.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	svc := NewService(&stubStore{block: true}, 10*time.Millisecond, zap.NewNop())
	rec = get(t, SetupRoutes(svc), "/points")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestHealthHandler(t *testing.T) {
	s := newTestStore(t)
	h := NewHandlers(NewService(s, time.Second, zap.NewNop()))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, s.Close())
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
