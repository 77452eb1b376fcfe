// Package api serves the counter's query surface over HTTP. All data is
// read back from the database, so the handlers never touch the frame
// pipeline's goroutine-confined state.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/doorway-data/headcount/internal/db"
	"github.com/doorway-data/headcount/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Info describes the running counter instance.
type Info struct {
	Camera    string    `json:"camera"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
}

type Server struct {
	db   *db.DB
	info Info
}

func NewServer(database *db.DB, info Info) *Server {
	if info.Version == "" {
		info.Version = version.String()
	}
	return &Server{
		db:   database,
		info: info,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.showBanner)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/occupancy", s.showOccupancy)
	mux.HandleFunc("/api/movements", s.listMovements)
	mux.HandleFunc("/api/calibration", s.showCalibration)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprintf(w, "headcount camera %s session %s up since %s\n",
		s.info.Camera, s.info.SessionID, s.info.StartedAt.Format(time.RFC3339))
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	json.NewEncoder(w).Encode(s.info)
}

func (s *Server) showOccupancy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	occ, err := s.db.Occupancy()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to read occupancy")
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"updated_at":    occ.UpdatedAt,
		"people_inside": occ.PeopleInside,
		"total_entries": occ.TotalEntries,
		"total_exits":   occ.TotalExits,
	})
}

func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 10000 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	var (
		movements []db.Movement
		err       error
	)
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		since, parseErr := time.Parse(time.RFC3339, sinceParam)
		if parseErr != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'since' parameter, want RFC3339")
			return
		}
		movements, err = s.db.MovementsSince(since)
	} else {
		movements, err = s.db.RecentMovements(limit)
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to list movements")
		return
	}

	out := make([]map[string]any, 0, len(movements))
	for _, m := range movements {
		entry := map[string]any{
			"id":             m.ID,
			"recorded_at":    m.RecordedAt,
			"kind":           m.Kind,
			"camera":         m.Camera,
			"height_px":      m.HeightPx,
			"classification": m.Classification,
			"session_id":     m.SessionID,
		}
		if m.HeightCm != nil {
			entry["height_cm"] = *m.HeightCm
		}
		out = append(out, entry)
	}
	json.NewEncoder(w).Encode(out)
}

func (s *Server) showCalibration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	camera := r.URL.Query().Get("camera")
	if camera == "" {
		camera = s.info.Camera
	}

	record, found, err := s.db.LatestCalibration(camera)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to read calibration")
		return
	}
	if !found {
		s.writeJSONError(w, http.StatusNotFound, "No calibration recorded for camera")
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"recorded_at":      record.RecordedAt,
		"camera":           record.Camera,
		"reference_cm":     record.ReferenceCm,
		"reference_px":     record.ReferencePx,
		"factor_cm_per_px": record.Factor,
		"session_id":       record.SessionID,
	})
}
