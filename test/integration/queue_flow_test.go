package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/triageflow/triageflow/internal/domain/analytics"
	"github.com/triageflow/triageflow/internal/domain/triage"
	"github.com/triageflow/triageflow/internal/platform/websocket"
)

// newTestServer wires the full HTTP stack over the in-memory store, the same
// shape the serve command builds minus the external collaborators.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := triage.NewMemoryRepo()
	scorer := triage.NewScorer(triage.DefaultScoringConfig())
	svc := triage.NewService(repo, scorer)

	hub := websocket.NewHub()
	svc.SetNotifier(websocket.NewQueueNotifier(hub))

	e := echo.New()
	api := e.Group("/api/v1")
	triage.NewHandler(svc).RegisterRoutes(api)
	analytics.NewHandler(analytics.NewReporter(svc)).RegisterRoutes(api)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func putJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("build PUT %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", url, err)
	}
	return resp
}

func decodePatient(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var p map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode patient: %v", err)
	}
	return p
}

func TestQueueLifecycle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	// Register two patients; the critical one must outrank the low one.
	resp := postJSON(t, base+"/patients", map[string]interface{}{
		"name": "Ada Soto", "age": 72, "condition": "chest pain", "severity": "critical",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	critical := decodePatient(t, resp)

	resp = postJSON(t, base+"/patients", map[string]interface{}{
		"name": "Ben Ives", "age": 30, "condition": "sprained ankle", "severity": "low",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	low := decodePatient(t, resp)

	// Queue orders by priority.
	listResp, err := http.Get(base + "/patients")
	if err != nil {
		t.Fatalf("GET patients: %v", err)
	}
	var list struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	listResp.Body.Close()
	if len(list.Data) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(list.Data))
	}
	if list.Data[0]["id"] != critical["id"] {
		t.Errorf("expected critical patient first, got %v", list.Data[0]["name"])
	}

	// Move the critical patient through treatment.
	resp = putJSON(t, fmt.Sprintf("%s/patients/%s/status", base, critical["id"]),
		map[string]string{"status": "in-treatment"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on start treatment, got %d", resp.StatusCode)
	}
	p := decodePatient(t, resp)
	if p["treatmentStartTime"] == nil {
		t.Error("expected treatmentStartTime to be stamped")
	}

	resp = putJSON(t, fmt.Sprintf("%s/patients/%s/status", base, critical["id"]),
		map[string]string{"status": "completed"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on complete, got %d", resp.StatusCode)
	}
	p = decodePatient(t, resp)
	if p["treatmentEndTime"] == nil {
		t.Error("expected treatmentEndTime to be stamped")
	}

	// Completed patients cannot go back.
	resp = putJSON(t, fmt.Sprintf("%s/patients/%s/status", base, critical["id"]),
		map[string]string{"status": "waiting"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on backward transition, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Analytics sees both patients.
	statsResp, err := http.Get(base + "/analytics")
	if err != nil {
		t.Fatalf("GET analytics: %v", err)
	}
	var snap struct {
		TotalPatients   int            `json:"totalPatients"`
		StatusBreakdown map[string]int `json:"statusBreakdown"`
	}
	if err := json.NewDecoder(statsResp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}
	statsResp.Body.Close()
	if snap.TotalPatients != 2 {
		t.Errorf("expected 2 patients in analytics, got %d", snap.TotalPatients)
	}
	if snap.StatusBreakdown["completed"] != 1 {
		t.Errorf("expected 1 completed, got %d", snap.StatusBreakdown["completed"])
	}

	// Remove the low-priority patient; a second delete is a 404.
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/patients/%s", base, low["id"]), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE patient: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 on double delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestScoreEndpoint(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	resp := postJSON(t, base+"/score", map[string]interface{}{
		"severity":  "critical",
		"condition": "stroke symptoms",
		"age":       82,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Priority int `json:"priority"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode score: %v", err)
	}
	// critical 100 + age 82 (20+30) + stroke 35 = 185
	if out.Priority != 185 {
		t.Errorf("expected priority 185, got %d", out.Priority)
	}
}
