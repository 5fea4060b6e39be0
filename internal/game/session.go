// internal/game/session.go
//
// Core engine for a single memory-matching session.
// Responsibilities:
//   - Build the board from a validated config (two tiles per image, shuffled
//     once, laid out on a fixed grid).
//   - Accept position-based flip requests and resolve matches.
//   - Run the countdown (wall-clock based, one tick per interval).
//   - Reach exactly one terminal state: time expired or all pairs matched.
//
// State machine: not-started → running → terminal. Terminal is final; playing
// again means constructing a fresh Session from the same config.
//
// All mutation goes through one mutex, so the tick goroutine, HTTP handlers
// and the delayed revert/finish callbacks stay discrete and non-overlapping.

package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"flipmatch/internal/config"
	"flipmatch/internal/render"
)

// MatchAward is the score increment for one matched pair.
const MatchAward = 10

// Default pacing. Tests inject shorter values through Options.
const (
	defaultTickInterval = time.Second
	defaultRevealDelay  = 500 * time.Millisecond
	defaultRevertDelay  = time.Second
)

const (
	finalFont    = "24px sans-serif"
	finalWinInk  = "#27ae60"
	finalLoseInk = "#c0392b"
)

// EndReason says which trigger ended the session. The win/lose decision does
// not key off it; the score/maxScore comparison is authoritative.
type EndReason string

const (
	EndTimeExpired EndReason = "time_expired"
	EndAllMatched  EndReason = "all_matched"
)

// TextSink receives score/time display updates (the page's two text targets).
type TextSink interface {
	SetText(text string)
}

// Options tune a session. Zero values fall back to production defaults.
type Options struct {
	// Rand drives the shuffle; inject a seeded source for reproducible boards.
	Rand *rand.Rand
	// Canvas receives all board drawing. Defaults to render.Nop.
	Canvas render.Canvas
	// TickInterval is how often the countdown is re-evaluated.
	TickInterval time.Duration
	// RevealDelay is the pause between the final match and the end screen.
	RevealDelay time.Duration
	// RevertDelay is how long a mismatched pair stays visible.
	RevertDelay time.Duration
	// ScoreSink and TimeSink receive display text on change / each tick.
	ScoreSink TextSink
	TimeSink  TextSink
	// OnChange is invoked with a fresh snapshot after every observable change.
	OnChange func(Snapshot)
}

// Summary is produced once, when the session ends.
type Summary struct {
	Win            bool      `json:"win"`
	Reason         EndReason `json:"reason"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"maxScore"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	Message        string    `json:"message"`
}

// TileView is the client-facing shape of a tile. Unflipped tiles do not
// expose their image reference.
type TileView struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Flipped bool   `json:"flipped"`
	Image   string `json:"image,omitempty"`
}

// Snapshot is the full client-facing session state.
type Snapshot struct {
	State     string     `json:"state"` // "not_started" | "running" | "ended"
	Score     int        `json:"score"`
	MaxScore  int        `json:"maxScore"`
	Remaining string     `json:"remaining"` // "MM:SS"
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Tiles     []TileView `json:"tiles"`
	Summary   *Summary   `json:"summary,omitempty"`
}

// Session owns the tiles, the pending-flip pair, the score and the countdown
// for one play-through.
type Session struct {
	mu sync.Mutex

	cfg    config.Game
	canvas render.Canvas

	tiles   []*Tile
	pending []*Tile // flipped, awaiting match resolution; never more than 2

	score    int
	maxScore int

	limit     time.Duration
	remaining time.Duration
	startedAt time.Time

	started  bool
	terminal bool
	summary  *Summary

	tickInterval time.Duration
	revealDelay  time.Duration
	revertDelay  time.Duration

	stopTick    chan struct{}
	revertTimer *time.Timer
	finishTimer *time.Timer

	scoreSink TextSink
	timeSink  TextSink
	onChange  func(Snapshot)
}

// New builds a session from a validated config: creates two tiles per image,
// shuffles them exactly once, assigns grid positions, and draws the initial
// face-down board. The session is not running until Start.
func New(cfg config.Game, opts Options) *Session {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var canvas render.Canvas = render.Nop{}
	if opts.Canvas != nil {
		canvas = opts.Canvas
	}

	s := &Session{
		cfg:          cfg,
		canvas:       canvas,
		maxScore:     cfg.PairCount() * MatchAward,
		limit:        cfg.TimeLimit(),
		remaining:    cfg.TimeLimit(),
		tickInterval: orDefault(opts.TickInterval, defaultTickInterval),
		revealDelay:  orDefault(opts.RevealDelay, defaultRevealDelay),
		revertDelay:  orDefault(opts.RevertDelay, defaultRevertDelay),
		scoreSink:    opts.ScoreSink,
		timeSink:     opts.TimeSink,
		onChange:     opts.OnChange,
	}

	// Two tiles per image reference.
	s.tiles = make([]*Tile, 0, 2*len(cfg.ImageURLs))
	for _, ref := range cfg.ImageURLs {
		s.tiles = append(s.tiles, &Tile{Image: ref}, &Tile{Image: ref})
	}
	s.shuffle(rng)
	s.layout()
	s.redrawLocked()
	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// shuffle permutes the tiles in place with Fisher–Yates, walking from the last
// index down and swapping with a uniformly chosen index at or below it. Run
// exactly once per session, before layout.
func (s *Session) shuffle(rng *rand.Rand) {
	for i := len(s.tiles) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		s.tiles[i], s.tiles[j] = s.tiles[j], s.tiles[i]
	}
}

// layout places tile i at column i mod cardsPerRow, row i div cardsPerRow,
// scaled by card size plus spacing and offset by one spacing unit. Pure
// function of the shuffled order.
func (s *Session) layout() {
	for i, t := range s.tiles {
		col := i % s.cfg.CardsPerRow
		row := i / s.cfg.CardsPerRow
		t.X = s.cfg.CardSpacing + col*(s.cfg.CardWidth+s.cfg.CardSpacing)
		t.Y = s.cfg.CardSpacing + row*(s.cfg.CardHeight+s.cfg.CardSpacing)
	}
}

// BoardSize returns the pixel dimensions covering the whole grid.
func (s *Session) BoardSize() (w, h int) {
	rows := (len(s.tiles) + s.cfg.CardsPerRow - 1) / s.cfg.CardsPerRow
	w = s.cfg.CardSpacing + s.cfg.CardsPerRow*(s.cfg.CardWidth+s.cfg.CardSpacing)
	h = s.cfg.CardSpacing + rows*(s.cfg.CardHeight+s.cfg.CardSpacing)
	return w, h
}

// Start marks the session running and begins the countdown. Calling it again
// (or after the session ended) is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.terminal {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.startedAt = time.Now()
	s.remaining = s.limit
	s.stopTick = make(chan struct{})
	go s.runTimer(s.stopTick)
	s.mu.Unlock()

	s.pushTime(s.limit)
	s.notify()
}

// runTimer drives the countdown until the session ends or tick reports expiry.
func (s *Session) runTimer(stop chan struct{}) {
	t := time.NewTicker(s.tickInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if !s.tick() {
				return
			}
		case <-stop:
			return
		}
	}
}

// tick recomputes remaining time from the wall clock, so missed or delayed
// ticks cannot stretch the game. Returns false once the countdown is done.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.terminal || !s.started {
		s.mu.Unlock()
		return false
	}
	rem := s.limit - time.Since(s.startedAt)
	if rem <= 0 {
		s.remaining = 0
		s.endLocked(EndTimeExpired)
		s.mu.Unlock()
		s.notify()
		return false
	}
	s.remaining = rem
	s.mu.Unlock()

	s.pushTime(rem)
	s.notify()
	return true
}

// Flip handles one pointer click at board coordinates. Guarded no-ops, never
// errors: ignored when the session is not running, when two tiles already
// await resolution, when the click misses every tile, or when the tile is
// already face up.
func (s *Session) Flip(x, y int) {
	s.mu.Lock()
	if !s.started || s.terminal || len(s.pending) == 2 {
		s.mu.Unlock()
		return
	}
	t := s.tileAt(x, y)
	if t == nil || t.Flipped {
		s.mu.Unlock()
		return
	}
	t.Flipped = true
	s.pending = append(s.pending, t)
	s.redrawLocked()
	if len(s.pending) == 2 {
		s.evaluateLocked()
	}
	score := s.score
	s.mu.Unlock()

	s.pushScore(score)
	s.notify()
}

func (s *Session) tileAt(x, y int) *Tile {
	for _, t := range s.tiles {
		if t.Contains(x, y, s.cfg.CardWidth, s.cfg.CardHeight) {
			return t
		}
	}
	return nil
}

// evaluateLocked resolves the two pending tiles.
// Match: award points, clear the pending pair at once, and if the board is
// complete schedule the end screen after a short reveal pause so the final
// flip is visible. Mismatch: keep both face up for the revert delay (the full
// pending set blocks a third flip meanwhile), then hide them again.
func (s *Session) evaluateLocked() {
	a, b := s.pending[0], s.pending[1]
	if a.Image == b.Image {
		s.score += MatchAward
		s.pending = s.pending[:0]
		s.redrawLocked()
		if s.allFlippedLocked() {
			s.finishTimer = time.AfterFunc(s.revealDelay, func() {
				s.mu.Lock()
				s.endLocked(EndAllMatched)
				s.mu.Unlock()
				s.notify()
			})
		}
		return
	}
	s.revertTimer = time.AfterFunc(s.revertDelay, func() {
		s.mu.Lock()
		if s.terminal {
			s.mu.Unlock()
			return
		}
		a.Flipped = false
		b.Flipped = false
		s.pending = s.pending[:0]
		s.revertTimer = nil
		s.redrawLocked()
		s.mu.Unlock()
		s.notify()
	})
}

func (s *Session) allFlippedLocked() bool {
	for _, t := range s.tiles {
		if !t.Flipped {
			return false
		}
	}
	return true
}

// endLocked finishes the session exactly once: stops the countdown and any
// delayed callbacks, fixes the summary, and replaces the board with the final
// message. Win is decided by the score comparison alone, so a final match and
// a last-second expiry racing each other cannot disagree.
func (s *Session) endLocked(reason EndReason) {
	if s.terminal {
		return
	}
	s.terminal = true
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
	if s.revertTimer != nil {
		s.revertTimer.Stop()
		s.revertTimer = nil
	}
	if s.finishTimer != nil {
		s.finishTimer.Stop()
		s.finishTimer = nil
	}

	if s.started {
		rem := s.limit - time.Since(s.startedAt)
		if rem < 0 {
			rem = 0
		}
		s.remaining = rem
	}
	elapsed := int((s.limit - s.remaining) / time.Second)

	win := s.score == s.maxScore
	msg := fmt.Sprintf("Time is up! Final score: %d", s.score)
	ink := finalLoseInk
	if win {
		msg = fmt.Sprintf("You matched them all! Score %d in %d seconds", s.score, elapsed)
		ink = finalWinInk
	}
	s.summary = &Summary{
		Win:            win,
		Reason:         reason,
		Score:          s.score,
		MaxScore:       s.maxScore,
		ElapsedSeconds: elapsed,
		Message:        msg,
	}

	w, h := s.BoardSize()
	s.canvas.Clear(0, 0, w, h)
	s.canvas.FillText(msg, s.cfg.CardSpacing, h/2, finalFont, ink)
}

// Close cancels the countdown and all delayed callbacks. The hosting layer
// calls it when the session is discarded (restart, eviction). The board is
// left as-is; a closed session is terminal.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.terminal = true
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
	if s.revertTimer != nil {
		s.revertTimer.Stop()
		s.revertTimer = nil
	}
	if s.finishTimer != nil {
		s.finishTimer.Stop()
		s.finishTimer = nil
	}
}

// redrawLocked repaints the whole board.
func (s *Session) redrawLocked() {
	w, h := s.BoardSize()
	s.canvas.Clear(0, 0, w, h)
	for _, t := range s.tiles {
		t.Draw(s.canvas, s.cfg.CardWidth, s.cfg.CardHeight)
	}
}

// Snapshot returns the client-facing state. Unflipped tiles keep their image
// reference to themselves.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := "not_started"
	switch {
	case s.terminal:
		state = "ended"
	case s.started:
		state = "running"
	}

	rem := s.remaining
	if s.started && !s.terminal {
		rem = s.limit - time.Since(s.startedAt)
		if rem < 0 {
			rem = 0
		}
	}

	tiles := make([]TileView, len(s.tiles))
	for i, t := range s.tiles {
		tv := TileView{X: t.X, Y: t.Y, Flipped: t.Flipped}
		if t.Flipped {
			tv.Image = t.Image
		}
		tiles[i] = tv
	}

	w, h := s.BoardSize()
	snap := Snapshot{
		State:     state,
		Score:     s.score,
		MaxScore:  s.maxScore,
		Remaining: FormatRemaining(rem),
		Width:     w,
		Height:    h,
		Tiles:     tiles,
	}
	if s.summary != nil {
		cp := *s.summary
		snap.Summary = &cp
	}
	return snap
}

// Score returns the current score.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// MaxScore returns the highest achievable score for this board.
func (s *Session) MaxScore() int { return s.maxScore }

// Terminal reports whether the session has ended.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Summary returns the terminal summary, or nil while the session is live.
func (s *Session) Summary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return nil
	}
	cp := *s.summary
	return &cp
}

// Config returns the configuration the session was built from, so a restart
// can reconstruct an identical board shape.
func (s *Session) Config() config.Game { return s.cfg }

func (s *Session) pushScore(score int) {
	if s.scoreSink != nil {
		s.scoreSink.SetText(fmt.Sprintf("%d", score))
	}
}

func (s *Session) pushTime(rem time.Duration) {
	if s.timeSink != nil {
		s.timeSink.SetText(FormatRemaining(rem))
	}
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

// FormatRemaining renders a countdown as zero-padded "MM:SS": minutes are the
// remaining milliseconds over 60000 floored, seconds the remainder.
func FormatRemaining(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d", ms/60000, (ms/1000)%60)
}
