package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sanjarbek17/MedAI/internal/classify"
	"github.com/Sanjarbek17/MedAI/internal/config"
	"github.com/Sanjarbek17/MedAI/internal/dispatch"
	"github.com/Sanjarbek17/MedAI/internal/geo"
	"github.com/Sanjarbek17/MedAI/internal/models"
)

// Server is the synchronous HTTP surface next to the WebSocket gateway:
// read-only projections of dispatch state, uploads and the classification
// endpoints.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	ws         http.Handler
	classifier classify.Classifier // nil when no endpoint configured
	fleet      *geo.FleetIndex     // nil when Redis is not configured
	mux        *mux.Router
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger, d *dispatch.Dispatcher, ws http.Handler, cl classify.Classifier, fleet *geo.FleetIndex) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		dispatcher: d,
		ws:         ws,
		classifier: cl,
		fleet:      fleet,
		mux:        mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.Handle("/ws", s.ws)

	s.mux.HandleFunc("/api/system/status", s.handleSystemStatus).Methods("GET")
	s.mux.HandleFunc("/api/patient/status/{patient_id}", s.handlePatientStatus).Methods("GET")
	s.mux.HandleFunc("/api/driver/status/{driver_id}", s.handleDriverStatus).Methods("GET")
	s.mux.HandleFunc("/api/driver/requests", s.handlePendingRequests).Methods("GET")
	s.mux.HandleFunc("/api/fleet/nearby", s.handleFleetNearby).Methods("GET")

	s.mux.HandleFunc("/upload", s.handleUpload).Methods("POST")
	s.mux.HandleFunc("/uploads/{filename}", s.handleServeUpload).Methods("GET")
	s.mux.HandleFunc("/chest", s.handleChestCheck).Methods("POST")
	s.mux.HandleFunc("/image", s.handleFourClasses).Methods("POST")
	s.mux.HandleFunc("/iscovid", s.handleIsCovid).Methods("POST")
	s.mux.HandleFunc("/predict", s.handlePredict).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	counts := s.dispatcher.SystemStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"system_status":    "online",
		"active_patients":  counts.ActivePatients,
		"active_drivers":   counts.ActiveDrivers,
		"pending_requests": counts.PendingRequests,
		"total_requests":   counts.TotalRequests,
	})
}

func (s *Server) handlePatientStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["patient_id"]
	v, ok := s.dispatcher.PatientStatus(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Patient not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"patient_id":      v.PatientID,
		"status":          v.Status,
		"location":        v.Location,
		"current_request": v.CurrentRequest,
	})
}

func (s *Server) handleDriverStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["driver_id"]
	v, ok := s.dispatcher.DriverStatus(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Driver not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"driver_id":       v.DriverID,
		"status":          v.Status,
		"location":        v.Location,
		"current_request": v.CurrentRequest,
	})
}

func (s *Server) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	pending := s.dispatcher.PendingRequests()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"pending_requests": pending,
		"total_count":      len(pending),
	})
}

func (s *Server) handleFleetNearby(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "fleet index not configured"})
		return
	}
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lat and lng query params required"})
		return
	}
	radius := 50.0
	if v := r.URL.Query().Get("radius_km"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			radius = f
		}
	}
	entries, err := s.fleet.Nearby(r.Context(), models.Location{Lat: lat, Lng: lng}, radius, 25)
	if err != nil {
		s.logger.Error("fleet query failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "fleet index unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "ambulances": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
