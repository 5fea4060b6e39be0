package game

import (
	"math/rand"
	"testing"
	"time"

	"flipmatch/internal/config"
	"flipmatch/internal/render"
)

func testConfig(images ...string) config.Game {
	return config.Game{
		CardWidth:          20,
		CardHeight:         20,
		CardSpacing:        10,
		CardsPerRow:        4,
		TimeLimitInMinutes: 5,
		ImageURLs:          images,
	}
}

// fastOptions keeps delays short enough that tests can sleep through them.
func fastOptions(seed int64) Options {
	return Options{
		Rand:         rand.New(rand.NewSource(seed)),
		TickInterval: 5 * time.Millisecond,
		RevealDelay:  10 * time.Millisecond,
		RevertDelay:  10 * time.Millisecond,
	}
}

// tileFlipped and pendingLen read engine state under the session lock so the
// race detector stays quiet about the tick and delay goroutines.
func tileFlipped(s *Session, tl *Tile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tl.Flipped
}

func pendingLen(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func TestNewSessionBoard(t *testing.T) {
	cfg := testConfig("a.png", "b.png", "c.png")
	s := New(cfg, fastOptions(1))
	defer s.Close()

	if got := len(s.tiles); got != 6 {
		t.Fatalf("expected 6 tiles, got %d", got)
	}
	if s.MaxScore() != 30 {
		t.Errorf("expected maxScore=30, got %d", s.MaxScore())
	}

	counts := make(map[string]int)
	for _, tl := range s.tiles {
		if tl.Flipped {
			t.Errorf("tile %q starts flipped", tl.Image)
		}
		counts[tl.Image]++
	}
	if len(counts) != 3 {
		t.Errorf("expected 3 distinct images, got %d", len(counts))
	}
	for img, n := range counts {
		if n != 2 {
			t.Errorf("image %q appears %d times, expected 2", img, n)
		}
	}
}

func TestShuffleSeededDeterministic(t *testing.T) {
	cfg := testConfig("a", "b", "c", "d", "e", "f", "g", "h")

	order := func(seed int64) []string {
		s := New(cfg, fastOptions(seed))
		defer s.Close()
		out := make([]string, len(s.tiles))
		for i, tl := range s.tiles {
			out[i] = tl.Image
		}
		return out
	}

	first := order(42)
	second := order(42)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed produced different orders at %d: %q vs %q", i, first[i], second[i])
		}
	}

	other := order(43)
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical 16-tile orders")
	}
}

func TestLayout(t *testing.T) {
	cfg := testConfig("a", "b", "c")
	s := New(cfg, fastOptions(7))
	defer s.Close()

	seen := make(map[[2]int]bool)
	for i, tl := range s.tiles {
		col := i % cfg.CardsPerRow
		row := i / cfg.CardsPerRow
		wantX := cfg.CardSpacing + col*(cfg.CardWidth+cfg.CardSpacing)
		wantY := cfg.CardSpacing + row*(cfg.CardHeight+cfg.CardSpacing)
		if tl.X != wantX || tl.Y != wantY {
			t.Errorf("tile %d at (%d,%d), want (%d,%d)", i, tl.X, tl.Y, wantX, wantY)
		}
		pos := [2]int{tl.X, tl.Y}
		if seen[pos] {
			t.Errorf("two tiles share position %v", pos)
		}
		seen[pos] = true
	}

	w, h := s.BoardSize()
	if w != 10+4*30 {
		t.Errorf("board width=%d, want %d", w, 10+4*30)
	}
	if h != 10+2*30 { // 6 tiles in rows of 4 -> 2 rows
		t.Errorf("board height=%d, want %d", h, 10+2*30)
	}
}

func TestFlipIgnoredBeforeStart(t *testing.T) {
	s := New(testConfig("a"), fastOptions(1))
	defer s.Close()

	s.Flip(s.tiles[0].X, s.tiles[0].Y)
	if tileFlipped(s, s.tiles[0]) {
		t.Error("flip before start must be ignored")
	}
}

func TestFlipMatchAwardsAndWins(t *testing.T) {
	s := New(testConfig("a.png"), fastOptions(1))
	defer s.Close()
	s.Start()

	s.Flip(s.tiles[0].X, s.tiles[0].Y)
	s.Flip(s.tiles[1].X, s.tiles[1].Y)

	if s.Score() != MatchAward {
		t.Fatalf("score=%d after match, want %d", s.Score(), MatchAward)
	}
	if n := pendingLen(s); n != 0 {
		t.Errorf("pending not cleared after match: %d", n)
	}

	// End-of-game is scheduled after the reveal delay.
	time.Sleep(50 * time.Millisecond)
	sum := s.Summary()
	if sum == nil {
		t.Fatal("expected terminal summary after winning")
	}
	if !sum.Win {
		t.Error("expected win=true")
	}
	if sum.Reason != EndAllMatched {
		t.Errorf("reason=%q, want %q", sum.Reason, EndAllMatched)
	}
	if sum.Score != s.MaxScore() {
		t.Errorf("summary score=%d, want %d", sum.Score, s.MaxScore())
	}
}

func TestFlipMismatchReverts(t *testing.T) {
	s := New(testConfig("a", "b"), fastOptions(3))
	defer s.Close()
	s.Start()

	// Find two tiles with different images.
	first := s.tiles[0]
	var second *Tile
	for _, tl := range s.tiles[1:] {
		if tl.Image != first.Image {
			second = tl
			break
		}
	}
	if second == nil {
		t.Fatal("no mismatching tile found")
	}

	s.Flip(first.X, first.Y)
	s.Flip(second.X, second.Y)

	if s.Score() != 0 {
		t.Errorf("score=%d after mismatch, want 0", s.Score())
	}
	if !tileFlipped(s, first) || !tileFlipped(s, second) {
		t.Error("mismatched tiles should stay visible until the revert delay")
	}

	time.Sleep(50 * time.Millisecond)
	if tileFlipped(s, first) || tileFlipped(s, second) {
		t.Error("mismatched tiles should revert to face down")
	}
	if n := pendingLen(s); n != 0 {
		t.Errorf("pending not cleared after revert: %d", n)
	}
}

func TestThirdFlipBlockedWhilePending(t *testing.T) {
	s := New(testConfig("a", "b"), Options{
		Rand:         rand.New(rand.NewSource(3)),
		TickInterval: 5 * time.Millisecond,
		RevealDelay:  10 * time.Millisecond,
		RevertDelay:  200 * time.Millisecond, // long enough to attempt a third flip
	})
	defer s.Close()
	s.Start()

	first := s.tiles[0]
	var second, third *Tile
	for _, tl := range s.tiles[1:] {
		if tl.Image != first.Image && second == nil {
			second = tl
		} else if third == nil {
			third = tl
		}
	}

	s.Flip(first.X, first.Y)
	s.Flip(second.X, second.Y)
	s.Flip(third.X, third.Y)

	if tileFlipped(s, third) {
		t.Error("third flip must be blocked while two tiles await resolution")
	}
}

func TestFlipGuards(t *testing.T) {
	s := New(testConfig("a", "b"), fastOptions(5))
	defer s.Close()
	s.Start()

	tl := s.tiles[0]

	// Clicking the spacing area hits nothing.
	s.Flip(0, 0)
	if n := pendingLen(s); n != 0 {
		t.Error("miss click should not change state")
	}

	// Flipping the same tile twice keeps one pending entry.
	s.Flip(tl.X, tl.Y)
	s.Flip(tl.X, tl.Y)
	if n := pendingLen(s); n != 1 {
		t.Errorf("pending=%d after double flip of one tile, want 1", n)
	}
}

func TestTimeExpiry(t *testing.T) {
	cfg := testConfig("a", "b")
	cfg.TimeLimitInMinutes = 0.001 // 60ms
	s := New(cfg, fastOptions(1))
	defer s.Close()
	s.Start()

	time.Sleep(150 * time.Millisecond)

	sum := s.Summary()
	if sum == nil {
		t.Fatal("expected time-expired summary")
	}
	if sum.Win {
		t.Error("expected win=false on timeout")
	}
	if sum.Reason != EndTimeExpired {
		t.Errorf("reason=%q, want %q", sum.Reason, EndTimeExpired)
	}
	if sum.Score != 0 {
		t.Errorf("score=%d, want 0", sum.Score)
	}

	// No further mutation after terminal.
	s.Flip(s.tiles[0].X, s.tiles[0].Y)
	if tileFlipped(s, s.tiles[0]) {
		t.Error("flip after terminal must be ignored")
	}
}

func TestStartIdempotent(t *testing.T) {
	s := New(testConfig("a"), fastOptions(1))
	defer s.Close()

	s.Start()
	s.mu.Lock()
	began := s.startedAt
	s.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	s.Start()
	s.mu.Lock()
	again := s.startedAt
	s.mu.Unlock()
	if !again.Equal(began) {
		t.Error("second Start must not restart the countdown")
	}
}

func TestSnapshotHidesUnflippedImages(t *testing.T) {
	s := New(testConfig("a", "b"), fastOptions(1))
	defer s.Close()
	s.Start()
	s.Flip(s.tiles[0].X, s.tiles[0].Y)

	snap := s.Snapshot()
	if snap.State != "running" {
		t.Errorf("state=%q, want running", snap.State)
	}
	for i, tv := range snap.Tiles {
		if tv.Flipped && tv.Image == "" {
			t.Errorf("tile %d flipped but image hidden", i)
		}
		if !tv.Flipped && tv.Image != "" {
			t.Errorf("tile %d not flipped but image %q exposed", i, tv.Image)
		}
	}
}

type recordingSink struct {
	ch chan string
}

func (r *recordingSink) SetText(s string) {
	select {
	case r.ch <- s:
	default:
	}
}

func TestSinksReceiveUpdates(t *testing.T) {
	score := &recordingSink{ch: make(chan string, 16)}
	tick := &recordingSink{ch: make(chan string, 16)}

	opts := fastOptions(1)
	opts.ScoreSink = score
	opts.TimeSink = tick

	s := New(testConfig("a"), opts)
	defer s.Close()
	s.Start()

	select {
	case got := <-tick.ch:
		if got != "05:00" {
			t.Errorf("initial time text=%q, want 05:00", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no time update received")
	}

	s.Flip(s.tiles[0].X, s.tiles[0].Y)
	s.Flip(s.tiles[1].X, s.tiles[1].Y)

	deadline := time.After(time.Second)
	for {
		select {
		case got := <-score.ch:
			if got == "10" {
				return
			}
		case <-deadline:
			t.Fatal("score sink never saw the match award")
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Minute, "05:00"},
		{61 * time.Second, "01:01"},
		{59900 * time.Millisecond, "00:59"},
		{time.Second, "00:01"},
		{0, "00:00"},
		{-time.Second, "00:00"},
		{10*time.Minute + 7*time.Second, "10:07"},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.d); got != tc.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFinalScreenDrawn(t *testing.T) {
	rec := render.NewRecorder()
	opts := fastOptions(1)
	opts.Canvas = rec

	s := New(testConfig("a"), opts)
	defer s.Close()
	s.Start()
	s.Flip(s.tiles[0].X, s.tiles[0].Y)
	s.Flip(s.tiles[1].X, s.tiles[1].Y)
	time.Sleep(50 * time.Millisecond)

	ops := rec.Ops()
	if len(ops) != 2 || ops[0].Kind != "clear" || ops[1].Kind != "fillText" {
		t.Fatalf("final frame should be clear+fillText, got %+v", ops)
	}
	if ops[1].Color != finalWinInk {
		t.Errorf("win message color=%q, want %q", ops[1].Color, finalWinInk)
	}
}
