package server

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
)

// ContainsResponse is the JSON body of /contains.
type ContainsResponse struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Inside bool    `json:"inside"`
}

// ContainsHandler answers whether a pin position lies inside the map's region.
type ContainsHandler struct {
	region boundary.Region
	logger *slog.Logger
}

// NewContainsHandler wraps region.
func NewContainsHandler(region boundary.Region, logger *slog.Logger) *ContainsHandler {
	return &ContainsHandler{region: region, logger: logger}
}

func (h *ContainsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		http.Error(w, "lat and lng query parameters must be valid coordinates", http.StatusBadRequest)
		return
	}

	resp := ContainsResponse{Lat: lat, Lng: lng, Inside: h.region.Contains(lat, lng)}
	writeJSON(w, h.logger, resp)
}

// BoundsHandler reports the region's bounding box as [minLon, minLat, maxLon, maxLat].
func BoundsHandler(region boundary.Region, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, map[string]any{"bbox": region.Bounds().LonLatBounds()})
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}
