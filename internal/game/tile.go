// internal/game/tile.go
//
// A tile is one face-down/face-up card on the board: a position, the image
// reference shared by exactly two tiles, and a flipped flag. Its only behavior
// is drawing itself onto a render.Canvas.

package game

import "flipmatch/internal/render"

// Colors for the card back; the page styles the rest.
const (
	backFill   = "#2c3e50"
	backStroke = "#1a252f"
)

// Tile is one card. The flipped flag is mutated only by the session's
// flip/match logic.
type Tile struct {
	X       int
	Y       int
	Image   string
	Flipped bool
}

// Draw issues this tile's draw requests. A flipped tile shows its image,
// anything else a uniform back with a border. Drawing never fails; a missing
// image is the client's problem and is skipped there.
func (t *Tile) Draw(c render.Canvas, w, h int) {
	if t.Flipped {
		c.DrawImage(t.Image, t.X, t.Y, w, h)
		return
	}
	c.FillRect(t.X, t.Y, w, h, backFill)
	c.StrokeRect(t.X, t.Y, w, h, backStroke)
}

// Contains reports whether the point lies in the tile's bounding box given
// the board's card dimensions.
func (t *Tile) Contains(x, y, w, h int) bool {
	return x >= t.X && x < t.X+w && y >= t.Y && y < t.Y+h
}
