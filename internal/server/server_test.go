package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"dealroom/internal/app"
	"dealroom/internal/config"
	"dealroom/internal/migrate"
	"dealroom/internal/persist"
	"dealroom/internal/server"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	conn, err := persist.Open(persist.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rooms := app.NewRooms(conn, config.Default("deal-1"), log.New(io.Discard, "", 0))
	handler, err := server.New(server.Config{Rooms: rooms})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor", "tester")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	return res, data
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	res, body := do(t, http.MethodGet, ts.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, body)
	}
}

func TestUnknownDealReturnsNotFoundEnvelope(t *testing.T) {
	ts := newTestServer(t)
	res, body := do(t, http.MethodGet, ts.URL+"/v0/deals/ghost", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, body)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found, got %q", envelope.Error.Code)
	}
}

func TestDealRoomFlow(t *testing.T) {
	ts := newTestServer(t)

	res, body := do(t, http.MethodPost, ts.URL+"/v0/deals", map[string]string{
		"id": "deal-1", "tenant": "Acme Ltd", "property": "12 King Street",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create deal: status %d: %s", res.StatusCode, body)
	}

	// guard pins to the proposal page until accepted
	res, body = do(t, http.MethodGet, ts.URL+"/v0/deals/deal-1/guard?path=/deals/deal-1/room", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("guard: status %d: %s", res.StatusCode, body)
	}
	var guardRes struct {
		OK       bool   `json:"ok"`
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(body, &guardRes); err != nil {
		t.Fatalf("decode guard: %v", err)
	}
	if guardRes.OK || guardRes.Redirect != "/deals/deal-1/proposal" {
		t.Fatalf("expected proposal redirect, got %+v", guardRes)
	}

	res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/proposal/accept", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accept: status %d: %s", res.StatusCode, body)
	}

	res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/room/setup", map[string]any{
		"deal_type": "all_inclusive",
		"services": []map[string]any{
			{"name": "Lease", "included": true, "route": "landlord", "locked": true},
			{"name": "Cleaning", "included": true, "route": "supplier"},
		},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("setup: status %d: %s", res.StatusCode, body)
	}

	res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/room/pack", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("pack: status %d: %s", res.StatusCode, body)
	}
	var room struct {
		Status     string `json:"status"`
		Agreements []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"agreements"`
		CanHandoff bool `json:"can_handoff"`
	}
	if err := json.Unmarshal(body, &room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if room.Status != "contracts_pending" || len(room.Agreements) != 2 {
		t.Fatalf("expected 2 agreements pending, got %+v", room)
	}

	for _, a := range room.Agreements {
		for i := 0; i < 4; i++ {
			res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/room/agreements/"+a.ID+"/advance", nil)
			if res.StatusCode != http.StatusOK {
				t.Fatalf("advance: status %d: %s", res.StatusCode, body)
			}
		}
	}
	if err := json.Unmarshal(body, &room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if room.Status != "handoff_ready" || !room.CanHandoff {
		t.Fatalf("expected handoff_ready, got %+v", room)
	}

	res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/room/handoff", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("handoff: status %d: %s", res.StatusCode, body)
	}
	var deal struct {
		Stage string `json:"stage"`
	}
	if err := json.Unmarshal(body, &deal); err != nil {
		t.Fatalf("decode deal: %v", err)
	}
	if deal.Stage != "onboarding" {
		t.Fatalf("expected onboarding, got %s", deal.Stage)
	}

	// activity trail recorded every mutation
	res, body = do(t, http.MethodGet, ts.URL+"/v0/deals/deal-1/activity?limit=5", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activity: status %d: %s", res.StatusCode, body)
	}
	var activity []struct {
		Type  string `json:"type"`
		Actor string `json:"actor"`
	}
	if err := json.Unmarshal(body, &activity); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if len(activity) == 0 || activity[0].Type != "handoff" {
		t.Fatalf("expected handoff first, got %+v", activity)
	}
	if activity[0].Actor != "tester" {
		t.Fatalf("expected actor from header, got %q", activity[0].Actor)
	}
}

func TestDocumentValidation(t *testing.T) {
	ts := newTestServer(t)
	res, body := do(t, http.MethodPost, ts.URL+"/v0/deals", map[string]string{"id": "deal-1", "tenant": "Acme"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d: %s", res.StatusCode, body)
	}
	res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/room/documents", map[string]string{
		"name": "weird.pdf", "tag": "salad",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown tag, got %d: %s", res.StatusCode, body)
	}
	res, body = do(t, http.MethodPost, ts.URL+"/v0/deals/deal-1/room/documents", map[string]string{
		"name": "floorplan.pdf", "tag": "floorplan",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d: %s", res.StatusCode, body)
	}
}
