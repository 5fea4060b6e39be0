// internal/httpserver/presets.go
//
// Named board presets, stored in sqlite. A preset is the settings payload the
// original page fetched before building a game: card geometry, grid width,
// time limit, image list. Reads are public; writes need an account.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"flipmatch/internal/config"
)

// defaultPresetName is used when a new game names no preset and carries no
// inline config. Seeded at startup.
const defaultPresetName = "classic"

var errPresetNotFound = errors.New("preset not found")

// mountPresets registers /presets routes.
func (s *Server) mountPresets() {
	s.r.Route("/presets", func(r chi.Router) {
		r.Get("/", s.handleListPresets)
		r.Get("/{name}", s.handleGetPreset)
		r.With(s.requireAuth()).Put("/{name}", s.handlePutPreset)
	})
}

// presetInfo is one row in the preset listing.
type presetInfo struct {
	Name      string `json:"name"`
	Pairs     int    `json:"pairs"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, `{"error":"presets_unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	rows, err := s.db.QueryContext(r.Context(), `SELECT name, config, created_at FROM presets ORDER BY name`)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out := []presetInfo{}
	for rows.Next() {
		var name, raw, created string
		if err := rows.Scan(&name, &raw, &created); err != nil {
			continue
		}
		var g config.Game
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			log.Warn().Str("preset", name).Err(err).Msg("skip unreadable preset")
			continue
		}
		out = append(out, presetInfo{Name: name, Pairs: g.PairCount(), CreatedAt: created})
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	g, err := s.loadPreset(r.Context(), name)
	if err != nil {
		if errors.Is(err, errPresetNotFound) {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "config": g})
}

// handlePutPreset creates or replaces a preset. The payload must validate
// like any board config.
func (s *Server) handlePutPreset(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, `{"error":"presets_unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > 64 {
		http.Error(w, `{"error":"invalid_name"}`, http.StatusBadRequest)
		return
	}
	var g config.Game
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if err := g.Validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if err := SavePreset(r.Context(), s.db, name, g); err != nil {
		log.Error().Err(err).Str("preset", name).Msg("save preset")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "config": g})
}

// loadPreset fetches and validates a stored preset.
func (s *Server) loadPreset(ctx context.Context, name string) (config.Game, error) {
	var g config.Game
	if s.db == nil {
		return g, errors.New("presets unavailable")
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM presets WHERE name=?`, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return g, errPresetNotFound
	}
	if err != nil {
		return g, err
	}
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return g, err
	}
	return g, g.Validate()
}

// SavePreset upserts a preset row. Exported for startup seeding.
func SavePreset(ctx context.Context, db *sql.DB, name string, g config.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
        INSERT INTO presets (name, config, created_at) VALUES (?,?,?)
        ON CONFLICT(name) DO UPDATE SET config=excluded.config`,
		name, string(raw), time.Now().UTC().Format(time.RFC3339))
	return err
}

// PresetExists reports whether a preset row is present. Exported for seeding.
func PresetExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM presets WHERE name=?`, name).Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}
