// internal/httpserver/server.go
//
// HTTP wiring for the flipmatch backend. This layer is the hosting shell the
// browser page used to be: it owns the active sessions, forwards clicks to
// the engine, and exposes the start/restart affordances.
//
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): create, start, flip, state, draw ops,
//     restart, live websocket updates.
//   - Preset endpoints backed by sqlite (writes require auth).
//   - Auth endpoints: signup/login/logout/me (see auth.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Sessions live in the store; restart replaces the entry under the same
//     ID after closing the old session, so its timers die with it.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"flipmatch/internal/config"
	"flipmatch/internal/daily"
	"flipmatch/internal/game"
	"flipmatch/internal/render"
	"flipmatch/internal/store"
)

// Server bundles router, session store, and DB handle.
type Server struct {
	r     *chi.Mux
	store store.Store
	db    *sql.DB
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), store: st, db: db}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"flipmatch-go","endpoints":["/health","POST /game/new","POST /game/{id}/flip","/presets","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Game endpoints — OPTIONAL AUTH (guests can play)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/game/new", s.handleNewGame)
		r.Route("/game/{id}", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Post("/flip", s.handleFlip)
			r.Get("/state", s.handleState)
			r.Get("/draw", s.handleDraw)
			r.Post("/restart", s.handleRestart)
			r.Get("/ws", s.handleWS)
		})
	})

	// Board presets (reads public, writes gated)
	s.mountPresets()

	// Auth + profile
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq configures a new session. Exactly one config source is used:
// inline config wins, otherwise the named preset (default "classic").
type newGameReq struct {
	Preset string       `json:"preset"`
	Config *config.Game `json:"config"`
	Seed   *int64       `json:"seed"`  // fixed shuffle seed (testing, replays)
	Daily  bool         `json:"daily"` // today's shared board layout
}

type gameRes struct {
	GameID   string        `json:"gameId"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleNewGame builds a session (not yet started) and stores it.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	cfg, err := s.resolveConfig(r, req)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	seed := time.Now().UnixNano()
	switch {
	case req.Daily:
		seed = daily.BoardSeed(time.Now(), getEnv("DAILY_SALT", "local_dev_salt"))
	case req.Seed != nil:
		seed = *req.Seed
	}

	owner := ""
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		owner = me.ID
	}

	e := buildEntry(uuid.NewString(), owner, cfg, seed, newHub())
	if err := s.store.Save(r.Context(), e); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	log.Info().Str("gameId", e.ID).Int("pairs", cfg.PairCount()).Bool("daily", req.Daily).Msg("game created")
	_ = json.NewEncoder(w).Encode(gameRes{GameID: e.ID, Snapshot: e.Session.Snapshot()})
}

// resolveConfig picks the board config for a new game: inline beats preset.
func (s *Server) resolveConfig(r *http.Request, req newGameReq) (config.Game, error) {
	if req.Config != nil {
		return *req.Config, req.Config.Validate()
	}
	name := req.Preset
	if name == "" {
		name = defaultPresetName
	}
	return s.loadPreset(r.Context(), name)
}

// buildEntry wires one hosted session: recorder canvas, live-update hub as
// the score/time sinks, seeded shuffle.
func buildEntry(id, owner string, cfg config.Game, seed int64, h *hub) *store.Entry {
	rec := render.NewRecorder()
	sess := game.New(cfg, game.Options{
		Rand:      rand.New(rand.NewSource(seed)),
		Canvas:    rec,
		ScoreSink: h.sink("score"),
		TimeSink:  h.sink("time"),
		OnChange:  h.Publish,
	})
	return &store.Entry{
		ID:       id,
		Owner:    owner,
		Config:   cfg,
		Session:  sess,
		Recorder: rec,
		Hub:      h,
	}
}

// entryFor loads the session entry for the {id} route param, enforcing
// ownership when the game belongs to an account.
func (s *Server) entryFor(w http.ResponseWriter, r *http.Request) *store.Entry {
	id := chi.URLParam(r, "id")
	e, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		} else {
			http.Error(w, `{"error":"store_error"}`, http.StatusInternalServerError)
		}
		return nil
	}
	if e.Owner != "" {
		me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
		if me == nil || me.ID != e.Owner {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return nil
		}
	}
	return e
}

// handleStart is the start affordance. Starting twice is a harmless no-op.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)
	if e == nil {
		return
	}
	e.Session.Start()
	_ = json.NewEncoder(w).Encode(gameRes{GameID: e.ID, Snapshot: e.Session.Snapshot()})
}

// flipReq carries one click in board coordinates.
type flipReq struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// handleFlip forwards a click to the engine. Invalid clicks (miss, already
// flipped, pending pair full, not running) are guarded no-ops there, so the
// reply is simply the resulting snapshot.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)
	if e == nil {
		return
	}
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e.Session.Flip(req.X, req.Y)
	_ = json.NewEncoder(w).Encode(gameRes{GameID: e.ID, Snapshot: e.Session.Snapshot()})
}

// handleState returns the current snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)
	if e == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(gameRes{GameID: e.ID, Snapshot: e.Session.Snapshot()})
}

// handleDraw returns the recorded draw operations for the current frame.
func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)
	if e == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"gameId": e.ID, "ops": e.Recorder.Ops()})
}

// handleRestart discards a finished session and rebuilds a fresh one from the
// same config under the same ID: new shuffle, score 0, full time. Live
// websocket subscribers keep their hub.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)
	if e == nil {
		return
	}
	if !e.Session.Terminal() {
		http.Error(w, `{"error":"game_in_progress"}`, http.StatusConflict)
		return
	}
	e.Session.Close()

	h, _ := e.Hub.(*hub)
	if h == nil {
		h = newHub()
	}
	fresh := buildEntry(e.ID, e.Owner, e.Config, time.Now().UnixNano(), h)
	if err := s.store.Save(r.Context(), fresh); err != nil {
		log.Error().Err(err).Str("gameId", e.ID).Msg("save restarted game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	log.Info().Str("gameId", e.ID).Msg("game restarted")
	_ = json.NewEncoder(w).Encode(gameRes{GameID: fresh.ID, Snapshot: fresh.Session.Snapshot()})
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
