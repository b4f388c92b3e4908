package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/engine"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events/eventstest"
	"github.com/mcdev12/staffraffle/go/internal/raffle/pool"
	"github.com/mcdev12/staffraffle/go/internal/raffle/session"
)

const testInterval = 5 * time.Second

type memStore struct {
	mu     sync.Mutex
	last   *models.RaffleSession
	saves  int
	clears int
}

func (m *memStore) Save(_ context.Context, snapshot models.RaffleSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &snapshot
	m.saves++
}

func (m *memStore) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = nil
	m.clears++
}

func (m *memStore) snapshot() (*models.RaffleSession, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.clears
}

type harness struct {
	clock *clockwork.FakeClock
	sess  *session.Session
	store *memStore
	rec   *eventstest.Recorder
	sched *Scheduler
}

func newHarness(t *testing.T, entrants []string, prizes []models.Prize) *harness {
	t.Helper()

	cands := make([]models.Candidate, len(entrants))
	for i, n := range entrants {
		cands[i] = models.Candidate{ID: n, Name: n, PhotoRef: models.DefaultPhotoRef}
	}

	sess := session.New()
	_ = sess.Update(func(st *session.State) error {
		st.Entrants = pool.New(cands)
		st.Prizes = pool.New(prizes)
		return nil
	})

	h := &harness{
		clock: clockwork.NewFakeClock(),
		sess:  sess,
		store: &memStore{},
		rec:   eventstest.NewRecorder(),
	}
	eng := engine.NewEngine(sess, h.store, h.rec, h.clock, engine.Config{})
	h.sched = NewScheduler(sess, eng, h.store, h.rec, h.clock, DefaultConfig())
	t.Cleanup(h.sched.Close)
	return h
}

func (h *harness) winners() int {
	return h.sess.Stats().WinnerCount
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (h *harness) waitPhase(t *testing.T, phase Phase) {
	t.Helper()
	eventually(t, "phase "+string(phase), func() bool {
		return h.sched.Status().Phase == phase
	})
}

// settle to nothing happening for a short while; used to assert absence of draws.
func quiesce() {
	time.Sleep(20 * time.Millisecond)
}

func TestScheduler_StartDrawsThenCountsDown(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C", "D"}, []models.Prize{"P1", "P2", "P3"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	eventually(t, "first draw", func() bool { return h.winners() == 1 })
	h.waitPhase(t, PhaseSettling)

	h.clock.Advance(DefaultConfig().SettleDelay)
	h.waitPhase(t, PhaseCountdown)

	first, ok := h.rec.Last(events.EventTypeCountdownTick)
	if !ok {
		t.Fatal("expected an initial countdown tick")
	}
	if diff := cmp.Diff(events.CountdownTickPayload{SecondsRemaining: 5, Progress: 0}, first); diff != "" {
		t.Errorf("initial tick mismatch (-want +got):\n%s", diff)
	}

	h.clock.Advance(time.Second)
	eventually(t, "second countdown tick", func() bool {
		return h.rec.Count(events.EventTypeCountdownTick) >= 2
	})
	tick, _ := h.rec.Last(events.EventTypeCountdownTick)
	if got := tick.(events.CountdownTickPayload).SecondsRemaining; got != 4 {
		t.Errorf("seconds remaining = %d, want 4", got)
	}
	if got := h.sched.Status().SecondsRemaining; got != 4 {
		t.Errorf("status seconds remaining = %d, want 4", got)
	}

	h.clock.Advance(testInterval - time.Second)
	eventually(t, "second draw", func() bool { return h.winners() == 2 })
	h.waitPhase(t, PhaseSettling)

	snap := h.sess.Snapshot(h.clock.Now())
	if !snap.Started || snap.Paused || snap.IntervalMs != testInterval.Milliseconds() {
		t.Errorf("unexpected session flags: started=%v paused=%v interval=%d", snap.Started, snap.Paused, snap.IntervalMs)
	}
}

func TestScheduler_PauseCancelsTimersAndResumeRearms(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C"}, []models.Prize{"P1", "P2", "P3"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.waitPhase(t, PhaseSettling)

	if err := h.sched.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	before := h.sess.Stats()

	h.clock.Advance(time.Hour)
	quiesce()

	if diff := cmp.Diff(before, h.sess.Stats()); diff != "" {
		t.Errorf("paused raffle changed (-before +after):\n%s", diff)
	}
	status := h.sched.Status()
	if status.State != StatePaused || status.Phase != PhaseIdle {
		t.Errorf("status = %+v, want paused and idle", status)
	}
	saved, _ := h.store.snapshot()
	if saved == nil || !saved.Paused {
		t.Errorf("pause was not checkpointed: %+v", saved)
	}
	if h.rec.Count(events.EventTypeRafflePaused) != 1 {
		t.Error("expected one RafflePaused event")
	}

	if err := h.sched.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := h.sched.Status().Phase; got != PhaseCountdown {
		t.Fatalf("phase after resume = %s, want countdown", got)
	}
	if diff := cmp.Diff(before, h.sess.Stats()); diff != "" {
		t.Errorf("resume changed pools (-before +after):\n%s", diff)
	}

	h.clock.Advance(testInterval)
	eventually(t, "draw after resume", func() bool { return h.winners() == 2 })
}

func TestScheduler_SkipCancelsPendingTimer(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C", "D"}, []models.Prize{"P1", "P2", "P3"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.waitPhase(t, PhaseSettling)
	h.clock.Advance(DefaultConfig().SettleDelay)
	h.waitPhase(t, PhaseCountdown)

	if err := h.sched.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	eventually(t, "skipped draw", func() bool { return h.winners() == 2 })
	h.waitPhase(t, PhaseSettling)

	// Reaching the old draw deadline must not draw again.
	h.clock.Advance(testInterval)
	h.waitPhase(t, PhaseCountdown)
	quiesce()

	if got := h.winners(); got != 2 {
		t.Errorf("winners = %d, want 2", got)
	}
}

func TestScheduler_SkipWhilePausedStaysPaused(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C"}, []models.Prize{"P1", "P2", "P3"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.waitPhase(t, PhaseSettling)
	if err := h.sched.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if err := h.sched.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	eventually(t, "skipped draw", func() bool { return h.winners() == 2 })
	h.waitPhase(t, PhaseIdle)

	if got := h.sched.Status().State; got != StatePaused {
		t.Errorf("state = %s, want PAUSED", got)
	}
}

func TestScheduler_CompletesWhenPrizesRunOut(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C"}, []models.Prize{"P1", "P2"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.waitPhase(t, PhaseSettling)
	h.clock.Advance(DefaultConfig().SettleDelay)
	h.waitPhase(t, PhaseCountdown)
	h.clock.Advance(testInterval)

	eventually(t, "completion", func() bool { return h.sched.Status().State == StateComplete })

	want := models.Stats{RemainingCandidates: 1, RemainingPrizes: 0, WinnerCount: 2}
	if diff := cmp.Diff(want, h.sess.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if h.rec.Count(events.EventTypeRaffleComplete) != 1 {
		t.Error("expected one RaffleComplete event")
	}
	saved, clears := h.store.snapshot()
	if saved != nil || clears != 1 {
		t.Errorf("store not cleared: saved=%v clears=%d", saved, clears)
	}
	if h.sched.Status().Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", h.sched.Status().Phase)
	}
	if err := h.sched.Skip(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("skip after completion: err = %v, want ErrInvalidTransition", err)
	}
}

func TestScheduler_InvalidTransitions(t *testing.T) {
	h := newHarness(t, []string{"A", "B"}, []models.Prize{"P1", "P2"})

	if err := h.sched.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pause from idle: err = %v", err)
	}
	if err := h.sched.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume from idle: err = %v", err)
	}
	if err := h.sched.Skip(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("skip from idle: err = %v", err)
	}
	if err := h.sched.Start(0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("start with zero interval: err = %v", err)
	}

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.sched.Start(testInterval); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second start: err = %v", err)
	}
	h.waitPhase(t, PhaseSettling)
	if err := h.sched.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume while running: err = %v", err)
	}
}

func TestScheduler_TogglePause(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C"}, []models.Prize{"P1", "P2", "P3"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.waitPhase(t, PhaseSettling)

	if err := h.sched.TogglePause(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := h.sched.Status().State; got != StatePaused {
		t.Fatalf("state = %s, want PAUSED", got)
	}
	if err := h.sched.TogglePause(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := h.sched.Status().State; got != StateRunning {
		t.Fatalf("state = %s, want RUNNING", got)
	}
}

// gatedDrawer holds a finished draw back from the scheduler until released.
type gatedDrawer struct {
	next    Drawer
	drawn   chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedDrawer(next Drawer) *gatedDrawer {
	return &gatedDrawer{next: next, drawn: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedDrawer) Draw(ctx context.Context) (*models.Winner, error) {
	w, err := g.next.Draw(ctx)
	g.once.Do(func() { close(g.drawn) })
	<-g.release
	return w, err
}

func TestScheduler_CommandsAfterFinalDrawKeepStoreCleared(t *testing.T) {
	h := newHarness(t, []string{"A", "B"}, []models.Prize{"P1"})
	eng := engine.NewEngine(h.sess, h.store, h.rec, h.clock, engine.Config{})
	gate := newGatedDrawer(eng)
	h.sched = NewScheduler(h.sess, gate, h.store, h.rec, h.clock, DefaultConfig())
	t.Cleanup(h.sched.Close)
	var releaseOnce sync.Once
	release := func() { releaseOnce.Do(func() { close(gate.release) }) }
	t.Cleanup(release)

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-gate.drawn:
	case <-time.After(2 * time.Second):
		t.Fatal("final draw did not happen")
	}

	if last, clears := h.store.snapshot(); last != nil || clears != 1 {
		t.Fatalf("after final draw: stored=%v clears=%d, want cleared once", last != nil, clears)
	}

	if err := h.sched.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pause after final draw: err = %v", err)
	}
	if err := h.sched.TogglePause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("toggle after final draw: err = %v", err)
	}
	if got := h.sched.Status().State; got != StateComplete {
		t.Errorf("state = %s, want COMPLETE", got)
	}
	if last, _ := h.store.snapshot(); last != nil {
		t.Errorf("finished session saved again: started=%v winners=%d prizes=%d",
			last.Started, len(last.Winners), len(last.PrizePool))
	}

	release()
	eventually(t, "draw to return", func() bool { return !h.sched.Status().Drawing })
	if got := h.sched.Status().State; got != StateComplete {
		t.Errorf("state after draw returned = %s, want COMPLETE", got)
	}
	if last, _ := h.store.snapshot(); last != nil {
		t.Error("store holds a session after completion")
	}
}

func TestScheduler_Restore(t *testing.T) {
	h := newHarness(t, []string{"A", "B"}, []models.Prize{"P1"})
	if err := h.sched.Restore(testInterval); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := h.sched.Status(); got.State != StatePaused || got.Interval != testInterval {
		t.Errorf("status = %+v, want paused with interval", got)
	}
	if err := h.sched.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	h.clock.Advance(testInterval)
	eventually(t, "completion", func() bool { return h.sched.Status().State == StateComplete })

	done := newHarness(t, []string{"A"}, nil)
	if err := done.sched.Restore(testInterval); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := done.sched.Status().State; got != StateComplete {
		t.Errorf("state = %s, want COMPLETE", got)
	}
}

func TestScheduler_ResetReturnsToIdle(t *testing.T) {
	h := newHarness(t, []string{"A", "B", "C"}, []models.Prize{"P1", "P2", "P3"})

	if err := h.sched.Start(testInterval); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.waitPhase(t, PhaseSettling)

	if err := h.sched.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	h.clock.Advance(time.Hour)
	quiesce()

	if got := h.sched.Status(); got.State != StateIdle || got.Phase != PhaseIdle {
		t.Errorf("status = %+v, want idle", got)
	}
	if got := h.winners(); got != 1 {
		t.Errorf("winners = %d, want 1", got)
	}
}

func TestCountdownPayload(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	deadline := start.Add(10 * time.Second)

	tests := []struct {
		name string
		now  time.Time
		want events.CountdownTickPayload
	}{
		{"start", start, events.CountdownTickPayload{SecondsRemaining: 10, Progress: 0}},
		{"halfway", start.Add(5 * time.Second), events.CountdownTickPayload{SecondsRemaining: 5, Progress: 0.5}},
		{"rounds up", start.Add(7500 * time.Millisecond), events.CountdownTickPayload{SecondsRemaining: 3, Progress: 0.75}},
		{"overdue", start.Add(12 * time.Second), events.CountdownTickPayload{SecondsRemaining: 0, Progress: 1}},
		{"before start", start.Add(-time.Second), events.CountdownTickPayload{SecondsRemaining: 11, Progress: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countdownPayload(deadline, 10*time.Second, tt.now)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
