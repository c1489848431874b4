package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/anomaly"
	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/features"
	"github.com/geocrime/geocrime-cli/internal/model"
	"github.com/geocrime/geocrime-cli/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHotspots serves cluster centroids as GeoJSON. Without a fitted
// clustering model it degrades to an empty collection.
func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	var centroids []cluster.Centroid
	if s.hotspots != nil && s.hotspots.Fitted() {
		centroids = s.hotspots.Centroids()
	}

	data, err := report.HotspotsGeoJSON(centroids)
	if err != nil {
		zap.L().Error("hotspot export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render hotspots")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type predictRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
}

type predictResponse struct {
	RiskLevel string  `json:"risk_level"`
	RiskScore float64 `json:"risk_score"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.classifier == nil || !s.classifier.Trained() {
		writeError(w, http.StatusServiceUnavailable, "risk classifier not trained")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	at, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		if at, err = time.Parse("2006-01-02T15:04:05", req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be ISO 8601")
			return
		}
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	tf := features.Extract(at)
	row := [][]float64{{req.Latitude, req.Longitude, float64(tf.Hour), float64(tf.DayOfWeek), float64(tf.Month)}}
	proba, err := s.classifier.PredictProba(row)
	if err != nil {
		zap.L().Error("prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	level := model.LabelLowRisk
	if proba[0] >= 0.5 {
		level = model.LabelHighRisk
	}
	writeJSON(w, http.StatusOK, predictResponse{RiskLevel: level, RiskScore: proba[0]})
}

func (s *Server) handleRiskIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is required")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon is required")
		return
	}

	var at time.Time
	if raw := q.Get("at"); raw != "" {
		at, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be RFC 3339")
			return
		}
	}

	writeJSON(w, http.StatusOK, s.risk.Calculate(lat, lon, at))
}

// handleAnomalies fits a fresh detector on the submitted incident batch and
// echoes back the subset flagged anomalous.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	var incidents []model.Incident
	if err := json.NewDecoder(r.Body).Decode(&incidents); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(incidents) == 0 {
		writeError(w, http.StatusBadRequest, "no incidents to score")
		return
	}
	for i, in := range incidents {
		if err := in.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "incident "+strconv.Itoa(i)+": "+err.Error())
			return
		}
	}

	det, err := anomaly.New(s.anomalyCfg)
	if err != nil {
		zap.L().Error("anomaly detector config rejected", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "anomaly detector unavailable")
		return
	}
	labels, err := det.FitPredict(features.WeightedCoordinates(incidents))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flagged := []model.Incident{}
	for i, l := range labels {
		if l == anomaly.LabelAnomalous {
			flagged = append(flagged, incidents[i])
		}
	}
	writeJSON(w, http.StatusOK, flagged)
}
