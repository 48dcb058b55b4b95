package interfaces

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
)

// SeriesHandler serves aggregated historical series.
type SeriesHandler struct {
	reader analytics.SeriesReader
	logger *log.Logger
}

// NewSeriesHandler constructs the handler.
func NewSeriesHandler(reader analytics.SeriesReader, logger *log.Logger) (*SeriesHandler, error) {
	if reader == nil {
		return nil, errors.New("series handler: nil reader")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SeriesHandler{reader: reader, logger: logger}, nil
}

type seriesRequest struct {
	OrganizationID string   `json:"organizationId"`
	SiteID         string   `json:"siteId"`
	ZoneIDs        []string `json:"zoneIds"`
	Readings       []string `json:"readings"`
	SensorID       string   `json:"sensorId"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Interval       string   `json:"interval"`
	Aggregation    string   `json:"aggregation"`
}

func (r seriesRequest) toQuery() (analytics.SeriesQuery, error) {
	var query analytics.SeriesQuery
	start, err := time.Parse(time.RFC3339, r.Start)
	if err != nil {
		return query, errors.New("invalid start (must be RFC3339)")
	}
	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return query, errors.New("invalid end (must be RFC3339)")
	}
	query = analytics.SeriesQuery{
		OrganizationID: r.OrganizationID,
		SiteID:         r.SiteID,
		ZoneIDs:        r.ZoneIDs,
		Fields:         r.Readings,
		SensorID:       r.SensorID,
		Start:          start.UTC(),
		End:            end.UTC(),
		Interval:       analytics.Interval(r.Interval),
		Aggregation:    analytics.Aggregation(r.Aggregation),
	}
	if err := query.Validate(); err != nil {
		return query, err
	}
	return query, nil
}

// ServeHTTP answers POST with the grouped series as JSON.
func (h *SeriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	query, err := req.toQuery()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	groups, err := h.reader.QuerySeries(r.Context(), query)
	if err != nil {
		h.logger.Printf("series: query error: %v", err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	if groups == nil {
		groups = []analytics.SeriesGroup{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"interval":    string(query.Interval),
		"aggregation": string(query.Aggregation),
		"series":      groups,
	})
}
