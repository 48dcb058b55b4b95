package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnqueuePostsJob(t *testing.T) {
	type captured struct {
		path string
		auth string
		body enqueueRequest
	}
	ch := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ch <- captured{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: req}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	overrides := map[string]string{"zoneId": "zone-1", "ingestId": "abc123"}
	if err := client.Enqueue(context.Background(), "frost-protection", overrides); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got := <-ch
	if got.path != "/jobs/enqueue" {
		t.Fatalf("path = %s", got.path)
	}
	if got.auth != "Bearer secret-token" {
		t.Fatalf("auth = %s", got.auth)
	}
	if got.body.Job != "frost-protection" {
		t.Fatalf("job = %s", got.body.Job)
	}
	if got.body.Overrides["ingestId"] != "abc123" {
		t.Fatalf("overrides = %v", got.body.Overrides)
	}
}

func TestEnqueueNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Enqueue(context.Background(), "frost-protection", nil); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestEnqueueValidation(t *testing.T) {
	if _, err := NewClient("", ""); err == nil {
		t.Fatal("empty base url should error")
	}
	client, err := NewClient("http://localhost:9", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Enqueue(context.Background(), "", nil); err == nil {
		t.Fatal("empty job name should error")
	}
}
