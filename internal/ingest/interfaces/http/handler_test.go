package http

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"agrisense-cloud/internal/analytics/infrastructure/memory"
	"agrisense-cloud/internal/ingest/application"
	state "agrisense-cloud/internal/state/domain"
	statememory "agrisense-cloud/internal/state/infrastructure/memory"
)

func newTestHandler(t *testing.T) *IngestHandler {
	t.Helper()
	store := statememory.NewStore()
	store.RegisterAlias("temperature")
	store.PutZone("org-1", "site-1", "zone-1", state.ZoneConfig{})
	store.PutSensor(state.SensorPath{
		OrganizationID: "org-1", SiteID: "site-1", ZoneID: "zone-1", SensorID: "sensor-a",
	}, state.SensorState{Status: state.StatusActive})
	store.PutSensor(state.SensorPath{
		OrganizationID: "org-1", SiteID: "site-1", ZoneID: "zone-1", SensorID: "sensor-off",
	}, state.SensorState{Status: state.StatusInactive})

	logger := log.New(os.Stdout, "", 0)
	pipeline, err := application.NewPipeline(store, store.Zones(), store, memory.NewRowStore(), logger)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	handler, err := NewIngestHandler(pipeline, logger)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func postBody(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest/sensors", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return rec, decoded
}

func TestIngestFullSuccess(t *testing.T) {
	handler := newTestHandler(t)
	unix := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC).Unix()

	body := `{
		"organizationId": "org-1", "siteId": "site-1", "zoneId": "zone-1",
		"sensors": [{"sensorId": "sensor-a", "timestamp": ` + jsonInt(unix) + `,
			"readings": {"temperature": {"value": 28.4, "unit": "F"}}}]
	}`
	rec, decoded := postBody(t, handler, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if decoded["success"] != true {
		t.Fatalf("success = %v", decoded["success"])
	}
	if decoded["message"] != "Processed 1 of 1 sensors" {
		t.Fatalf("message = %v", decoded["message"])
	}
	if _, ok := decoded["partialSuccess"]; ok {
		t.Fatal("partialSuccess should be omitted on full success")
	}
}

func TestIngestPartialSuccess(t *testing.T) {
	handler := newTestHandler(t)
	unix := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC).Unix()

	body := `{
		"organizationId": "org-1", "siteId": "site-1", "zoneId": "zone-1",
		"sensors": [
			{"sensorId": "sensor-a", "timestamp": ` + jsonInt(unix) + `,
				"readings": {"temperature": {"value": 28.4, "unit": "F"}}},
			{"sensorId": "sensor-off", "timestamp": ` + jsonInt(unix) + `,
				"readings": {"temperature": {"value": 30, "unit": "F"}}}
		]
	}`
	rec, decoded := postBody(t, handler, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if decoded["partialSuccess"] != true {
		t.Fatalf("partialSuccess = %v", decoded["partialSuccess"])
	}
	errorsList, ok := decoded["errors"].([]any)
	if !ok || len(errorsList) != 1 {
		t.Fatalf("errors = %v", decoded["errors"])
	}
	first := errorsList[0].(map[string]any)
	if first["index"] != float64(1) {
		t.Fatalf("error index = %v", first["index"])
	}
}

func TestIngestAllFailed(t *testing.T) {
	handler := newTestHandler(t)
	unix := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC).Unix()

	body := `{
		"organizationId": "org-1", "siteId": "site-1", "zoneId": "zone-1",
		"sensors": [{"sensorId": "sensor-off", "timestamp": ` + jsonInt(unix) + `,
			"readings": {"temperature": {"value": 30, "unit": "F"}}}]
	}`
	rec, decoded := postBody(t, handler, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if decoded["success"] != false {
		t.Fatalf("success = %v", decoded["success"])
	}
	sensors, ok := decoded["sensors"].([]any)
	if !ok {
		t.Fatalf("sensors should be an array, got %T", decoded["sensors"])
	}
	if len(sensors) != 0 {
		t.Fatalf("sensors = %v", sensors)
	}
}

func TestIngestEnvelopeErrors(t *testing.T) {
	handler := newTestHandler(t)
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing org", `{"siteId": "s", "zoneId": "z", "sensors": [{}]}`, "Missing required field: organizationId"},
		{"missing site", `{"organizationId": "o", "zoneId": "z", "sensors": [{}]}`, "Missing required field: siteId"},
		{"missing zone", `{"organizationId": "o", "siteId": "s", "sensors": [{}]}`, "Missing required field: zoneId"},
		{"empty sensors", `{"organizationId": "o", "siteId": "s", "zoneId": "z", "sensors": []}`, "Missing or invalid sensors array (must be non-empty array)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, decoded := postBody(t, handler, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if decoded["error"] != tc.message {
				t.Fatalf("error = %v, want %q", decoded["error"], tc.message)
			}
		})
	}
}

func TestIngestMethodAndPreflight(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/ingest/sensors", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ingest/sensors", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["error"] != "Method Not Allowed. Use POST." {
		t.Fatalf("error = %v", decoded["error"])
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	handler := newTestHandler(t)
	rec, decoded := postBody(t, handler, `{"organizationId": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if decoded["error"] != "invalid json" {
		t.Fatalf("error = %v", decoded["error"])
	}
}

func jsonInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
