package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validGame() Game {
	return Game{
		CardWidth:          100,
		CardHeight:         100,
		CardSpacing:        10,
		CardsPerRow:        4,
		TimeLimitInMinutes: 3,
		ImageURLs:          []string{"a.png", "b.png"},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Game)
		ok     bool
	}{
		{"valid", func(g *Game) {}, true},
		{"single image", func(g *Game) { g.ImageURLs = []string{"a.png"} }, true},
		{"fractional minutes", func(g *Game) { g.TimeLimitInMinutes = 0.0167 }, true},
		{"zero width", func(g *Game) { g.CardWidth = 0 }, false},
		{"negative height", func(g *Game) { g.CardHeight = -1 }, false},
		{"zero spacing", func(g *Game) { g.CardSpacing = 0 }, false},
		{"zero per row", func(g *Game) { g.CardsPerRow = 0 }, false},
		{"zero time limit", func(g *Game) { g.TimeLimitInMinutes = 0 }, false},
		{"negative time limit", func(g *Game) { g.TimeLimitInMinutes = -1 }, false},
		{"no images", func(g *Game) { g.ImageURLs = nil }, false},
		{"duplicate image", func(g *Game) { g.ImageURLs = []string{"a.png", "a.png"} }, false},
		{"empty image ref", func(g *Game) { g.ImageURLs = []string{""} }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := validGame()
			tc.mutate(&g)
			err := g.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTimeLimit(t *testing.T) {
	g := validGame()
	g.TimeLimitInMinutes = 1.5
	if got := g.TimeLimit(); got != 90*time.Second {
		t.Errorf("TimeLimit() = %v, want 90s", got)
	}
}

func TestPairCount(t *testing.T) {
	g := validGame()
	if g.PairCount() != 2 {
		t.Errorf("PairCount() = %d, want 2", g.PairCount())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.json")
	payload := `{"cardWidth":50,"cardHeight":60,"cardSpacing":5,"cardsPerRow":3,
	             "timeLimitInMinutes":2,"imageUrls":["x.png","y.png","z.png"]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.CardWidth != 50 || g.CardsPerRow != 3 || len(g.ImageURLs) != 3 {
		t.Errorf("loaded config mismatch: %+v", g)
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	invalid := filepath.Join(dir, "invalid.json")
	_ = os.WriteFile(invalid, []byte(`{"cardWidth":0}`), 0o644)
	if _, err := Load(invalid); err == nil {
		t.Error("expected validation error")
	}
}
