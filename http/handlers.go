package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"irisserve/db"
	"irisserve/ml"
	"irisserve/monitoring"
)

// ModelService is what the handlers need from the model wrapper.
type ModelService interface {
	Predict(features []float64) (ml.Prediction, error)
	Loaded() bool
	Info() ml.ModelInfo
}

// ServiceInfo is the static metadata served at the root route.
type ServiceInfo struct {
	Name    string
	Version string
}

var (
	model       ModelService
	hub         *monitoring.Hub
	serviceInfo = ServiceInfo{Name: "iris-inference-service", Version: "1.0.0"}
	logger      = zap.NewNop()

	// Swappable in tests.
	savePrediction = db.SavePrediction
	recentAudit    = db.RecentPredictions
)

// SetModel injects the process-wide model wrapper.
func SetModel(m ModelService) {
	model = m
}

// SetHub injects the websocket event hub; nil disables broadcasting.
func SetHub(h *monitoring.Hub) {
	hub = h
}

func SetServiceInfo(info ServiceInfo) {
	serviceInfo = info
}

func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// RegisterHandlers wires all routes onto the mux.
func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", handleReady)
	mux.HandleFunc("GET /predictions", handleRecentPredictions)
	mux.HandleFunc("GET /model/info", handleModelInfo)
	mux.HandleFunc("GET /ws/events", handleEvents)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": serviceInfo.Name,
		"version": serviceInfo.Version,
		"endpoints": map[string]string{
			"predict":     "/predict",
			"health":      "/health",
			"ready":       "/ready",
			"predictions": "/predictions",
			"model_info":  "/model/info",
			"events":      "/ws/events",
		},
	})
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Features []float64 `json:"features"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: features must be an array of numbers")
		return
	}

	if model == nil {
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	prediction, err := model.Predict(req.Features)
	switch {
	case errors.Is(err, ml.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		// Covers ErrNotLoaded and classifier failures; no internal
		// detail leaves the process.
		logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	requestID := GetRequestID(r.Context())
	auditAndBroadcast(requestID, req.Features, prediction)

	respondJSON(w, http.StatusOK, prediction)
}

// auditAndBroadcast records the served prediction; failures are logged
// and never fail the request.
func auditAndBroadcast(requestID string, features []float64, prediction ml.Prediction) {
	now := time.Now().UTC()

	if err := savePrediction(db.PredictionRecord{
		RequestID:  requestID,
		Features:   features,
		Label:      prediction.Label,
		LabelIndex: prediction.Index,
		Confidence: prediction.Confidence,
		CreatedAt:  now,
	}); err != nil {
		logger.Warn("audit log write failed", zap.Error(err))
	}

	if hub != nil {
		hub.BroadcastPrediction(monitoring.PredictionEvent{
			RequestID:  requestID,
			Features:   features,
			Label:      prediction.Label,
			Confidence: prediction.Confidence,
			Timestamp:  now,
		})
	}
}

// handleHealth is the liveness probe: the process is up, so it always
// succeeds.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := model != nil && model.Loaded()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "alive",
		"model_loaded": loaded,
	})
}

// handleReady is the readiness probe: traffic should only arrive once
// the model is loaded.
func handleReady(w http.ResponseWriter, r *http.Request) {
	if model == nil || !model.Loaded() {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ready",
		"model_loaded": true,
	})
}

func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := recentAudit(limit)
	if err != nil {
		logger.Error("audit log query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if model == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	respondJSON(w, http.StatusOK, model.Info())
}

func handleEvents(w http.ResponseWriter, r *http.Request) {
	if hub == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream not available")
		return
	}
	hub.HandleWS(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("encode response failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
