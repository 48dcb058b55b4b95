package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	analytics "agrisense-cloud/internal/analytics/domain"
	analyticsmemory "agrisense-cloud/internal/analytics/infrastructure/memory"
)

func seededReader(t *testing.T) *analyticsmemory.RowStore {
	t.Helper()
	store := analyticsmemory.NewRowStore()
	rows := []analytics.Row{
		{Timestamp: "2026-02-01T10:02:00Z", OrganizationID: "org-1", SiteID: "site-1", ZoneID: "zone-1", SensorID: "sensor-a", Field: "temperature", Value: 4.0, Unit: "C"},
		{Timestamp: "2026-02-01T10:07:00Z", OrganizationID: "org-1", SiteID: "site-1", ZoneID: "zone-1", SensorID: "sensor-a", Field: "temperature", Value: 6.0, Unit: "C"},
		{Timestamp: "2026-02-01T10:31:00Z", OrganizationID: "org-1", SiteID: "site-1", ZoneID: "zone-1", SensorID: "sensor-a", Field: "temperature", Value: 8.0, Unit: "C"},
	}
	if err := store.InsertRows(context.Background(), rows); err != nil {
		t.Fatalf("seed rows: %v", err)
	}
	return store
}

func postSeries(t *testing.T, handler http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/series", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSeriesHandlerAggregates(t *testing.T) {
	handler, err := NewSeriesHandler(seededReader(t), log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	rec := postSeries(t, handler, map[string]any{
		"organizationId": "org-1",
		"siteId":         "site-1",
		"zoneIds":        []string{"zone-1"},
		"readings":       []string{"temperature"},
		"start":          "2026-02-01T10:00:00Z",
		"end":            "2026-02-01T11:00:00Z",
		"interval":       "MINUTE_15",
		"aggregation":    "AVG",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Interval    string `json:"interval"`
		Aggregation string `json:"aggregation"`
		Series      []struct {
			ZoneID string `json:"zoneId"`
			Field  string `json:"field"`
			Points []struct {
				Value float64 `json:"value"`
				Count int     `json:"count"`
			} `json:"points"`
		} `json:"series"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Interval != "MINUTE_15" || resp.Aggregation != "AVG" {
		t.Fatalf("echoed query = %s/%s", resp.Interval, resp.Aggregation)
	}
	if len(resp.Series) != 1 {
		t.Fatalf("groups = %d, want 1", len(resp.Series))
	}
	group := resp.Series[0]
	if group.ZoneID != "zone-1" || group.Field != "temperature" {
		t.Fatalf("group = %s/%s", group.ZoneID, group.Field)
	}
	if len(group.Points) != 2 {
		t.Fatalf("points = %d, want 2 buckets", len(group.Points))
	}
	if group.Points[0].Value != 5.0 || group.Points[0].Count != 2 {
		t.Fatalf("first bucket = %v (count %d), want avg 5.0 of 2", group.Points[0].Value, group.Points[0].Count)
	}
	if group.Points[1].Value != 8.0 || group.Points[1].Count != 1 {
		t.Fatalf("second bucket = %v (count %d), want 8.0 of 1", group.Points[1].Value, group.Points[1].Count)
	}
}

func TestSeriesHandlerEmptyResultIsArray(t *testing.T) {
	handler, err := NewSeriesHandler(analyticsmemory.NewRowStore(), log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	rec := postSeries(t, handler, map[string]any{
		"organizationId": "org-1",
		"siteId":         "site-1",
		"zoneIds":        []string{"zone-1"},
		"readings":       []string{"temperature"},
		"start":          "2026-02-01T10:00:00Z",
		"end":            "2026-02-01T11:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"series":[]`) {
		t.Fatalf("empty result must serialize as an array, got %s", rec.Body.String())
	}
}

func TestSeriesHandlerRejectsBadRequests(t *testing.T) {
	handler, err := NewSeriesHandler(analyticsmemory.NewRowStore(), log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/series", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json status = %d, want 400", rec.Code)
	}

	rec = postSeries(t, handler, map[string]any{
		"organizationId": "org-1",
		"siteId":         "site-1",
		"zoneIds":        []string{"zone-1"},
		"readings":       []string{"temperature"},
		"start":          "not-a-time",
		"end":            "2026-02-01T11:00:00Z",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad start status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid start") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
