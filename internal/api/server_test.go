package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"whr-rank/internal/config"
	"whr-rank/internal/db"
	"whr-rank/internal/whr"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	srv := NewServer(config.Default(), database)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func sampleGames() []whr.GameRecord {
	var games []whr.GameRecord
	for ts := 0; ts < 6; ts++ {
		games = append(games,
			whr.GameRecord{Black: "A", White: "B", Winner: "W", TimeStep: ts},
			whr.GameRecord{Black: "B", White: "C", Winner: "D", TimeStep: ts},
		)
	}
	return games
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	var body map[string]interface{}
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func TestAddGamesAndFit(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/games", sampleGames())
	var ins map[string]int
	decode(t, resp, &ins)
	if resp.StatusCode != http.StatusOK || ins["inserted"] != 12 {
		t.Fatalf("insert = %d %v", resp.StatusCode, ins)
	}

	resp = postJSON(t, ts.URL+"/api/fit", nil)
	var run db.FitRun
	decode(t, resp, &run)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fit status = %d", resp.StatusCode)
	}
	if run.ID == "" || run.GameCount != 12 || run.Sweeps < 10 {
		t.Errorf("run = %+v", run)
	}

	// Ratings are served from the persisted run, strongest first.
	resp, err := http.Get(ts.URL + "/api/ratings")
	if err != nil {
		t.Fatalf("GET ratings: %v", err)
	}
	var ratings []whr.PlayerRatings
	decode(t, resp, &ratings)
	if len(ratings) != 3 {
		t.Fatalf("players = %d, want 3", len(ratings))
	}
	if ratings[0].Name != "B" {
		t.Errorf("strongest = %s, want B (beat A six times)", ratings[0].Name)
	}

	resp, err = http.Get(ts.URL + "/api/ratings/A")
	if err != nil {
		t.Fatalf("GET player ratings: %v", err)
	}
	var pr whr.PlayerRatings
	decode(t, resp, &pr)
	if pr.Name != "A" || len(pr.History) != 6 {
		t.Errorf("A = %+v, want 6 days", pr)
	}

	resp, _ = http.Get(ts.URL + "/api/ratings/nobody")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown player status = %d, want 404", resp.StatusCode)
	}
}

func TestAddGames_RejectsSelfPlay(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/games", []whr.GameRecord{
		{Black: "A", White: "A", Winner: "W", TimeStep: 0},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self-play status = %d, want 400", resp.StatusCode)
	}
}

func TestFit_EmptyArchive(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/fit", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("fit on empty archive = %d, want 500", resp.StatusCode)
	}
}

func TestRatings_NoRunYet(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := http.Get(ts.URL + "/api/ratings")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("ratings without run = %d, want 404", resp.StatusCode)
	}
}

func TestEvaluate(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts.URL+"/api/games", sampleGames()).Body.Close()
	postJSON(t, ts.URL+"/api/fit", nil).Body.Close()

	resp := postJSON(t, ts.URL+"/api/evaluate", map[string]interface{}{
		"games": []whr.GameRecord{
			{Black: "A", White: "B", Winner: "W", TimeStep: 6},
			{Black: "Z", White: "B", Winner: "W", TimeStep: 6}, // unknown, skipped
		},
	})
	var body map[string]interface{}
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evaluate status = %d", resp.StatusCode)
	}
	ll, ok := body["ave_log_likelihood"].(float64)
	if !ok || ll >= 0 {
		t.Errorf("ave_log_likelihood = %v, want negative float", body["ave_log_likelihood"])
	}
}
