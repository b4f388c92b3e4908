package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle"
	"github.com/mcdev12/staffraffle/go/internal/raffle/engine"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events/eventstest"
	"github.com/mcdev12/staffraffle/go/internal/raffle/orchestrator"
	"github.com/mcdev12/staffraffle/go/internal/raffle/store"
)

const staffCSV = "ID,Name,Department,Position,Photo\nE-1,Ana Ruiz,Finance,Analyst,\nE-2,Bo Chen,IT,Engineer,bo.png\nE-3,Cy Diaz,Ops,Lead,\n"

func newTestService(t *testing.T) (*Service, *raffle.App) {
	t.Helper()
	return newTestServiceIn(t, t.TempDir())
}

func newTestServiceIn(t *testing.T, dir string) (*Service, *raffle.App) {
	t.Helper()
	app := raffle.NewApp(
		store.NewBestEffort(store.NewFileStore(dir, "")),
		eventstest.NewRecorder(),
		clockwork.NewFakeClock(),
		raffle.Config{Engine: engine.Config{}, Scheduler: orchestrator.DefaultConfig()},
	)
	t.Cleanup(app.Close)
	return NewService(DefaultConfig(), app), app
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPI_ImportStartAndExport(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	rec := do(t, h, http.MethodPost, "/api/start", "application/json", `{"interval_ms":5000}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("start before import: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/import/candidates", "text/csv", staffCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("import candidates: status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := decodeBody[ImportResponse](t, rec).Imported; got != 3 {
		t.Errorf("imported candidates = %d, want 3", got)
	}

	rec = do(t, h, http.MethodPost, "/api/import/prizes", "text/csv", "Prize\n\nGift Card\nTrip\n")
	if got := decodeBody[ImportResponse](t, rec).Imported; got != 2 {
		t.Errorf("imported prizes = %d, want 2", got)
	}

	rec = do(t, h, http.MethodGet, "/api/export", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("export before draw: status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/start", "application/json", `{"interval_ms":5000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status = %d, body = %s", rec.Code, rec.Body)
	}
	view := decodeBody[raffle.View](t, rec)
	if view.Status.State != orchestrator.StateRunning || view.Status.Interval != 5*time.Second {
		t.Errorf("status = %+v", view.Status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = do(t, h, http.MethodGet, "/api/export", "", "")
		if rec.Code == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("export never became available: %d %s", rec.Code, rec.Body)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Raffle_Winners_Auto_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "#,ID,Name,Department,Position,Prize\n1,") {
		t.Errorf("export body = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/import/prizes", "text/csv", "Prize\nCar\n")
	if rec.Code != http.StatusConflict {
		t.Errorf("import while running: status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/toggle-pause", "", "")
	if got := decodeBody[raffle.View](t, rec).Status.State; got != orchestrator.StatePaused {
		t.Errorf("state after toggle = %s, want PAUSED", got)
	}
}

func TestAPI_MultipartImport(t *testing.T) {
	svc, app := newTestService(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "staff.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(staffCSV))
	mw.Close()

	rec := do(t, svc.Handler(), http.MethodPost, "/api/import/candidates", mw.FormDataContentType(), body.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := len(app.State().Candidates); got != 3 {
		t.Errorf("candidates = %d, want 3", got)
	}
}

func TestAPI_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty csv", http.MethodPost, "/api/import/prizes", "", http.StatusBadRequest},
		{"broken csv", http.MethodPost, "/api/import/candidates", "Name\n\"oops\n", http.StatusBadRequest},
		{"pause while idle", http.MethodPost, "/api/pause", "", http.StatusConflict},
		{"skip while idle", http.MethodPost, "/api/skip", "", http.StatusConflict},
		{"restore without prompt", http.MethodPost, "/api/restore", `{"accept":true}`, http.StatusConflict},
		{"restore bad body", http.MethodPost, "/api/restore", `{`, http.StatusBadRequest},
		{"start bad body", http.MethodPost, "/api/start", `{"interval_ms":"soon"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/start", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestAPI_HealthAndState(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	if rec := do(t, h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body)
	}

	view := decodeBody[raffle.View](t, do(t, h, http.MethodGet, "/api/state", "", ""))
	if view.Status.State != orchestrator.StateIdle || view.Ready {
		t.Errorf("fresh state = %+v", view)
	}
}

func TestWebSocket_ReceivesEvents(t *testing.T) {
	svc, _ := newTestService(t)
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?client_id=display"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Sink().ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(2 * time.Millisecond)
	}

	sent, err := events.New(uuid.New(), events.EventTypeRevealTick, events.RevealTickPayload{Name: "Ana Ruiz"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Sink().Publish(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != sent.ID || got.Type != events.EventTypeRevealTick {
		t.Errorf("got event %+v, want %s", got, sent.ID)
	}
	payload, err := eventstest.Decode(&got)
	if err != nil {
		t.Fatal(err)
	}
	if name := payload.(*events.RevealTickPayload).Name; name != "Ana Ruiz" {
		t.Errorf("name = %q", name)
	}
}

func TestAPI_StateCarriesRestorePrompt(t *testing.T) {
	dir := t.TempDir()
	savedAt := time.Date(2026, 12, 18, 20, 15, 0, 0, time.UTC)
	ana := models.Candidate{ID: "E-1", Name: "Ana Ruiz", PhotoRef: models.DefaultPhotoRef}
	saved := models.RaffleSession{
		SessionID:   uuid.New(),
		EntrantPool: []models.Candidate{{ID: "E-2", Name: "Bo Chen", PhotoRef: models.DefaultPhotoRef}},
		PrizePool:   []models.Prize{"Trip", "Mug"},
		Winners:     models.Winners{models.NewWinner(ana, "Gift Card", 1, savedAt)},
		Paused:      true,
		IntervalMs:  8000,
		Started:     true,
		SavedAt:     savedAt,
	}
	if err := store.NewFileStore(dir, "").Save(context.Background(), saved); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	svc, app := newTestServiceIn(t, dir)
	if !app.Boot(context.Background()) {
		t.Fatal("expected a pending restore")
	}

	rec := do(t, svc.Handler(), http.MethodGet, "/api/state", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		RestorePending bool `json:"restore_pending"`
		RestorePrompt  *struct {
			SavedAt         time.Time `json:"saved_at"`
			WinnerCount     int       `json:"winner_count"`
			PrizesRemaining int       `json:"prizes_remaining"`
		} `json:"restore_prompt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.RestorePending || body.RestorePrompt == nil {
		t.Fatalf("state = %+v, want a restore prompt", body)
	}
	if !body.RestorePrompt.SavedAt.Equal(savedAt) || body.RestorePrompt.WinnerCount != 1 || body.RestorePrompt.PrizesRemaining != 2 {
		t.Errorf("restore prompt = %+v", *body.RestorePrompt)
	}

	rec = do(t, svc.Handler(), http.MethodPost, "/api/restore", "application/json", `{"accept":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d: %s", rec.Code, rec.Body.String())
	}
	view := decodeBody[raffle.View](t, rec)
	if view.RestorePending || view.RestorePrompt != nil {
		t.Errorf("prompt still present after restore: %+v", view.RestorePrompt)
	}
}
