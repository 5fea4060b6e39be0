// internal/render/canvas.go
//
// Draw target abstraction for the board.
// The engine issues rectangle/image/text draw requests against a Canvas and
// never looks at the result; the HTTP layer serves the recorded operations to
// the browser, which replays them onto a real 2D canvas.

package render

import "sync"

// Op is a single recorded draw operation, serializable for the client.
type Op struct {
	Kind  string `json:"kind"` // "fillRect" | "strokeRect" | "drawImage" | "fillText" | "clear"
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w,omitempty"`
	H     int    `json:"h,omitempty"`
	Color string `json:"color,omitempty"`
	Font  string `json:"font,omitempty"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Canvas is a stateless sink for draw requests.
type Canvas interface {
	FillRect(x, y, w, h int, color string)
	StrokeRect(x, y, w, h int, color string)
	DrawImage(ref string, x, y, w, h int)
	FillText(text string, x, y int, font, color string)
	Clear(x, y, w, h int)
}

// Recorder is a Canvas that keeps the operations since the last Clear.
// A Clear covering the previous drawing resets the list, so Ops always
// describes the current frame rather than the whole history.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) FillRect(x, y, w, h int, color string) {
	r.record(Op{Kind: "fillRect", X: x, Y: y, W: w, H: h, Color: color})
}

func (r *Recorder) StrokeRect(x, y, w, h int, color string) {
	r.record(Op{Kind: "strokeRect", X: x, Y: y, W: w, H: h, Color: color})
}

// DrawImage records the request even if the referenced image never loads on
// the client; a missing image is skipped there and is never fatal.
func (r *Recorder) DrawImage(ref string, x, y, w, h int) {
	r.record(Op{Kind: "drawImage", X: x, Y: y, W: w, H: h, Image: ref})
}

func (r *Recorder) FillText(text string, x, y int, font, color string) {
	r.record(Op{Kind: "fillText", X: x, Y: y, Text: text, Font: font, Color: color})
}

// Clear drops the recorded frame and records the clear itself.
func (r *Recorder) Clear(x, y, w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = r.ops[:0]
	r.ops = append(r.ops, Op{Kind: "clear", X: x, Y: y, W: w, H: h})
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns a copy of the current frame's operations.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Nop is a Canvas that discards everything. Useful where drawing is irrelevant.
type Nop struct{}

func (Nop) FillRect(x, y, w, h int, color string)              {}
func (Nop) StrokeRect(x, y, w, h int, color string)            {}
func (Nop) DrawImage(ref string, x, y, w, h int)               {}
func (Nop) FillText(text string, x, y int, font, color string) {}
func (Nop) Clear(x, y, w, h int)                               {}
