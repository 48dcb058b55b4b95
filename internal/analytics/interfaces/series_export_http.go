package interfaces

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
)

// SeriesExportHandler renders an aggregated series as a downloadable file.
// Format is either "xlsx" or "pdf".
type SeriesExportHandler struct {
	reader analytics.SeriesReader
	format string
	logger *log.Logger
}

// NewSeriesExportHandler constructs the handler for one export format.
func NewSeriesExportHandler(reader analytics.SeriesReader, format string, logger *log.Logger) (*SeriesExportHandler, error) {
	if reader == nil {
		return nil, errors.New("series export handler: nil reader")
	}
	if format != "xlsx" && format != "pdf" {
		return nil, errors.New("series export handler: unsupported format")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SeriesExportHandler{reader: reader, format: format, logger: logger}, nil
}

func queryFromURL(r *http.Request) (analytics.SeriesQuery, error) {
	var query analytics.SeriesQuery
	values := r.URL.Query()

	start, err := time.Parse(time.RFC3339, values.Get("start"))
	if err != nil {
		return query, errors.New("invalid start (must be RFC3339)")
	}
	end, err := time.Parse(time.RFC3339, values.Get("end"))
	if err != nil {
		return query, errors.New("invalid end (must be RFC3339)")
	}

	query = analytics.SeriesQuery{
		OrganizationID: values.Get("organizationId"),
		SiteID:         values.Get("siteId"),
		ZoneIDs:        splitList(values.Get("zoneIds")),
		Fields:         splitList(values.Get("readings")),
		SensorID:       values.Get("sensorId"),
		Start:          start.UTC(),
		End:            end.UTC(),
		Interval:       analytics.Interval(values.Get("interval")),
		Aggregation:    analytics.Aggregation(values.Get("aggregation")),
	}
	if err := query.Validate(); err != nil {
		return query, err
	}
	return query, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ServeHTTP answers GET with the rendered file.
func (h *SeriesExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query, err := queryFromURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	groups, err := h.reader.QuerySeries(r.Context(), query)
	if err != nil {
		h.logger.Printf("series export: query error: %v", err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}

	switch h.format {
	case "pdf":
		data, err := BuildSeriesPDF(query, groups)
		if err != nil {
			http.Error(w, "export pdf error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="series.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		data, err := BuildSeriesXLSX(query, groups)
		if err != nil {
			http.Error(w, "export xlsx error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="series.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
