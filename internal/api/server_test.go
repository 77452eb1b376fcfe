package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorway-data/headcount/internal/db"
)

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "counter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return NewServer(database, Info{
		Camera:    "door-1",
		SessionID: "session-abc",
		StartedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}), database
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestBanner(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "door-1")
	assert.Contains(t, rec.Body.String(), "session-abc")
}

func TestBannerUnknownPath(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var info Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "door-1", info.Camera)
	assert.Equal(t, "session-abc", info.SessionID)
}

func TestOccupancyReflectsMovements(t *testing.T) {
	srv, database := newTestServer(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, database.RecordMovement(db.Movement{
			RecordedAt: time.Now().UTC(), Kind: "entrance", Camera: "door-1",
		}))
	}
	require.NoError(t, database.RecordMovement(db.Movement{
		RecordedAt: time.Now().UTC(), Kind: "exit", Camera: "door-1",
	}))

	rec := get(t, srv, "/api/occupancy")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["people_inside"])
	assert.EqualValues(t, 3, got["total_entries"])
	assert.EqualValues(t, 1, got["total_exits"])
}

func TestOccupancyMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/occupancy", nil)
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListMovements(t *testing.T) {
	srv, database := newTestServer(t)

	cm := 172.4
	require.NoError(t, database.RecordMovement(db.Movement{
		RecordedAt: time.Now().UTC(), Kind: "entrance", Camera: "door-1",
		HeightPx: 210, HeightCm: &cm, Classification: "man", SessionID: "session-abc",
	}))
	require.NoError(t, database.RecordMovement(db.Movement{
		RecordedAt: time.Now().UTC(), Kind: "exit", Camera: "door-1",
	}))

	rec := get(t, srv, "/api/movements")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "exit", got[0]["kind"], "newest first")
	assert.Equal(t, "entrance", got[1]["kind"])
	assert.EqualValues(t, 172.4, got[1]["height_cm"])
	_, hasCm := got[0]["height_cm"]
	assert.False(t, hasCm, "uncalibrated movement has no height_cm")
}

func TestListMovementsBadParams(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/movements?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/movements?limit=banana").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/movements?since=yesterday").Code)
}

func TestListMovementsSince(t *testing.T) {
	srv, database := newTestServer(t)

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, database.RecordMovement(db.Movement{RecordedAt: old, Kind: "entrance", Camera: "door-1"}))
	require.NoError(t, database.RecordMovement(db.Movement{RecordedAt: time.Now().UTC(), Kind: "exit", Camera: "door-1"}))

	cutoff := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	rec := get(t, srv, "/api/movements?since="+cutoff)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "exit", got[0]["kind"])
}

func TestCalibrationNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/calibration").Code)
}

func TestCalibrationLatest(t *testing.T) {
	srv, database := newTestServer(t)

	require.NoError(t, database.RecordCalibration(db.CalibrationRecord{
		RecordedAt: time.Now().UTC().Add(-time.Hour), Camera: "door-1",
		ReferenceCm: 210, ReferencePx: 300, Factor: 0.7, SessionID: "older",
	}))
	require.NoError(t, database.RecordCalibration(db.CalibrationRecord{
		RecordedAt: time.Now().UTC(), Camera: "door-1",
		ReferenceCm: 210, ReferencePx: 210, Factor: 1.0, SessionID: "session-abc",
	}))

	rec := get(t, srv, "/api/calibration")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 1.0, got["factor_cm_per_px"])
	assert.Equal(t, "session-abc", got["session_id"])
}
