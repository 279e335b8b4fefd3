// End-to-end tests for the game server stack.
//
// These tests run the full stack behind the Builder: chi router, session
// manager, in-memory event bus and a SQLite content database in a temp
// dir. Only the draw delay is replaced so commits happen at once.
package truthordare_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	truthordare "github.com/jxucoder/truthordare"
	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/eventbus"
	"github.com/jxucoder/truthordare/internal/config"
	"github.com/jxucoder/truthordare/model"
	"github.com/jxucoder/truthordare/session"
	sqliteStore "github.com/jxucoder/truthordare/store/sqlite"
)

var immediate = engine.SchedulerFunc(func(_ time.Duration, f func()) { f() })

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var e2eTable = content.Table{
	model.ModeParty:  {Truths: []string{"db party truth"}, Challenges: []string{"db party challenge"}},
	model.ModeCouple: {Truths: []string{"db couple truth"}},
	model.ModeFamily: {Challenges: []string{"db family challenge"}},
	model.ModeSolo:   {},
}

// seedDB imports e2eTable into a fresh content database.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.db")
	st, err := sqliteStore.New(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close()
	if _, err := st.Import(e2eTable, "e2e"); err != nil {
		t.Fatalf("import: %v", err)
	}
	return path
}

type e2eEnv struct {
	app *truthordare.App
	srv *httptest.Server
}

func setupE2E(t *testing.T, cfg config.Config) *e2eEnv {
	t.Helper()
	app, err := truthordare.NewBuilder().
		WithConfig(cfg).
		WithEngineOptions(engine.WithScheduler(immediate)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		srv.Close()
		app.Sessions().Stop()
	})
	return &e2eEnv{app: app, srv: srv}
}

func (e *e2eEnv) post(t *testing.T, path, body string) (*http.Response, session.Snapshot) {
	t.Helper()
	return e.send(t, http.MethodPost, path, body)
}

func (e *e2eEnv) send(t *testing.T, method, path, body string) (*http.Response, session.Snapshot) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var snap session.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	return resp, snap
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestE2EPlayFromContentDatabase(t *testing.T) {
	env := setupE2E(t, config.Config{ContentDB: seedDB(t)})

	resp, snap := env.post(t, "/api/sessions", `{"mode":"party"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	id := snap.ID

	resp, snap = env.post(t, "/api/sessions/"+id+"/draw", `{"type":"truth","spin":true,"wait":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if snap.State.Current == nil || snap.State.Current.Text != "db party truth" {
		t.Fatalf("expected the database prompt, got %+v", snap.State.Current)
	}
	if !slices.Contains(model.Seats(), snap.State.SelectedSeat) {
		t.Fatalf("expected a seat label, got %q", snap.State.SelectedSeat)
	}

	// Switching to a mode with an empty pool yields the placeholder.
	env.send(t, http.MethodPut, "/api/sessions/"+id+"/mode", `{"mode":"solo"}`)
	_, snap = env.post(t, "/api/sessions/"+id+"/draw", `{"wait":true}`)
	if snap.State.Current == nil || !snap.State.Current.Placeholder {
		t.Fatalf("expected placeholder, got %+v", snap.State.Current)
	}
	if snap.State.TurnCount != 1 {
		t.Fatalf("expected turn count 1, got %d", snap.State.TurnCount)
	}

	_, snap = env.post(t, "/api/sessions/"+id+"/reset", "")
	if !snap.State.Idle() || snap.State.Mode != model.ModeSolo {
		t.Fatalf("unexpected state after reset: %+v", snap.State)
	}
}

func TestE2EContentFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	pack := `
party:
  truths: ["yaml truth"]
couple: {}
family: {}
solo:
  challenges: ["yaml challenge"]
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}
	env := setupE2E(t, config.Config{ContentFile: path})

	resp, err := http.Get(env.srv.URL + "/api/content/solo")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Challenges []string `json:"challenges"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Challenges) != 1 || body.Challenges[0] != "yaml challenge" {
		t.Fatalf("unexpected challenges: %v", body.Challenges)
	}
}

func TestE2EEventStreamFollowsDraw(t *testing.T) {
	env := setupE2E(t, config.Config{})

	_, snap := env.post(t, "/api/sessions", `{"mode":"family"}`)
	id := snap.ID

	resp, err := http.Get(env.srv.URL + "/api/sessions/" + id + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	events := make(chan eventbus.Event, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				var ev eventbus.Event
				if json.Unmarshal([]byte(data), &ev) == nil {
					events <- ev
				}
			}
		}
	}()

	// Initial snapshot first, so the subscription exists before drawing.
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	env.post(t, "/api/sessions/"+id+"/draw", `{"type":"challenge","wait":true}`)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("stream closed before commit event")
			}
			if ev.State.Current != nil {
				if ev.State.Current.Type != model.TypeChallenge || ev.State.IsGenerating {
					t.Fatalf("unexpected commit event: %+v", ev.State)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for commit event")
		}
	}
}

func TestLoadContentPrecedence(t *testing.T) {
	db := seedDB(t)

	table, err := truthordare.LoadContent(db, "/does/not/matter.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := table.Lookup(model.ModeCouple, model.TypeTruth); len(got) != 1 || got[0] != "db couple truth" {
		t.Fatalf("expected database content, got %v", got)
	}

	table, err = truthordare.LoadContent("", "")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if len(table.Lookup(model.ModeParty, model.TypeTruth)) == 0 {
		t.Fatal("expected bundled party truths")
	}

	if _, err := truthordare.LoadContent(filepath.Join(t.TempDir(), "missing.db"), ""); err == nil {
		t.Fatal("expected error for missing database")
	}
}
