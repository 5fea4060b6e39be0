// internal/config/config.go
//
// Board configuration for a game session.
// Responsibilities:
//   - Define the settings payload the client/page historically fetched as JSON
//     (card dimensions, grid width, time limit, image list).
//   - Validate it before a session is built (construction is total afterwards).
//   - Load it from a JSON file when provided via GAME_CONFIG.
//
// A load or validation failure is fatal to game construction and is surfaced
// to the caller; there is no retry.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Game describes one board: tile geometry, grid width, time limit, and the
// image references (opaque URLs/paths, one pair of tiles per entry).
type Game struct {
	CardWidth          int      `json:"cardWidth"`
	CardHeight         int      `json:"cardHeight"`
	CardSpacing        int      `json:"cardSpacing"`
	CardsPerRow        int      `json:"cardsPerRow"`
	TimeLimitInMinutes float64  `json:"timeLimitInMinutes"`
	ImageURLs          []string `json:"imageUrls"`
}

// Validate checks the constraints a session relies on.
func (g Game) Validate() error {
	if g.CardWidth < 1 || g.CardHeight < 1 {
		return errors.New("config: card dimensions must be positive")
	}
	if g.CardSpacing < 1 {
		return errors.New("config: card spacing must be positive")
	}
	if g.CardsPerRow < 1 {
		return errors.New("config: cardsPerRow must be at least 1")
	}
	if g.TimeLimitInMinutes <= 0 {
		return errors.New("config: time limit must be positive")
	}
	if len(g.ImageURLs) < 1 {
		return errors.New("config: at least one image is required")
	}
	seen := make(map[string]struct{}, len(g.ImageURLs))
	for _, u := range g.ImageURLs {
		if u == "" {
			return errors.New("config: empty image reference")
		}
		if _, dup := seen[u]; dup {
			return fmt.Errorf("config: duplicate image reference %q", u)
		}
		seen[u] = struct{}{}
	}
	return nil
}

// TimeLimit converts the configured minutes to a duration.
func (g Game) TimeLimit() time.Duration {
	return time.Duration(g.TimeLimitInMinutes * float64(time.Minute))
}

// PairCount is the number of image pairs on the board.
func (g Game) PairCount() int { return len(g.ImageURLs) }

// Load reads and validates a Game from a JSON file.
func Load(path string) (Game, error) {
	var g Game
	b, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &g); err != nil {
		return g, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return g, err
	}
	return g, nil
}
