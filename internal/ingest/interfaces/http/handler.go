package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"agrisense-cloud/internal/ingest/application"
	ingest "agrisense-cloud/internal/ingest/domain"
)

// IngestHandler handles batch sensor ingestion over HTTP.
type IngestHandler struct {
	pipeline *application.Pipeline
	logger   *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(pipeline *application.Pipeline, logger *log.Logger) (*IngestHandler, error) {
	if pipeline == nil {
		return nil, errors.New("ingest http: nil pipeline")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{pipeline: pipeline, logger: logger}, nil
}

type ingestResponse struct {
	Success          bool                     `json:"success"`
	Message          string                   `json:"message,omitempty"`
	Error            string                   `json:"error,omitempty"`
	SensorsProcessed int                      `json:"sensorsProcessed"`
	SensorsTotal     int                      `json:"sensorsTotal"`
	Sensors          []ingest.ProcessedSensor `json:"sensors"`
	Errors           []ingest.BatchError      `json:"errors,omitempty"`
	PartialSuccess   bool                     `json:"partialSuccess,omitempty"`
}

// ServeHTTP ingests a sensor batch. Any sensor processed yields 201; a batch
// where every sensor failed validation yields 400.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ingestResponse{
			Success: false,
			Error:   "Method Not Allowed. Use POST.",
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("ingest http: read body error: %v", err)
		writeJSON(w, http.StatusBadRequest, ingestResponse{Success: false, Error: "read body error"})
		return
	}
	defer r.Body.Close()

	var req ingest.BatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("ingest http: decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, ingestResponse{Success: false, Error: "invalid json"})
		return
	}

	report, err := h.pipeline.Process(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Internal server error"
		if isEnvelopeError(err) {
			status = http.StatusBadRequest
			message = envelopeMessage(err)
		} else {
			h.logger.Printf("ingest http: process error: %v", err)
		}
		writeJSON(w, status, ingestResponse{Success: false, Error: message})
		return
	}

	resp := ingestResponse{
		Success:          report.Success(),
		Message:          fmt.Sprintf("Processed %d of %d sensors", report.Processed, report.Total),
		SensorsProcessed: report.Processed,
		SensorsTotal:     report.Total,
		Sensors:          report.Sensors,
	}
	if resp.Sensors == nil {
		resp.Sensors = []ingest.ProcessedSensor{}
	}
	if len(report.Errors) > 0 {
		resp.Errors = report.Errors
		resp.PartialSuccess = report.Processed > 0
	}

	status := http.StatusCreated
	if report.Processed == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func isEnvelopeError(err error) bool {
	return errors.Is(err, ingest.ErrMissingOrganization) ||
		errors.Is(err, ingest.ErrMissingSite) ||
		errors.Is(err, ingest.ErrMissingZone) ||
		errors.Is(err, ingest.ErrMissingSensors)
}

func envelopeMessage(err error) string {
	switch {
	case errors.Is(err, ingest.ErrMissingOrganization):
		return "Missing required field: organizationId"
	case errors.Is(err, ingest.ErrMissingSite):
		return "Missing required field: siteId"
	case errors.Is(err, ingest.ErrMissingZone):
		return "Missing required field: zoneId"
	case errors.Is(err, ingest.ErrMissingSensors):
		return "Missing or invalid sensors array (must be non-empty array)"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
