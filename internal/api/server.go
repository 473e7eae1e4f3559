// Package api exposes the cover engine over HTTP: cover queries, effect
// toggles and the websocket action channel used by the privileged dispatch.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/config"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/effects"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

var upgrader = websocket.Upgrader{
	// The action channel re-validates every request, so origin checking is
	// left to the deployment's reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server routes cover queries and effect toggles.
type Server struct {
	router   *mux.Router
	scene    *scene.Scene
	settings *config.Settings
	manager  *effects.Manager
	local    *effects.LocalDispatcher
	area     cover.AreaRatioFunc
}

// NewServer wires the routes.
func NewServer(sc *scene.Scene, settings *config.Settings, manager *effects.Manager, local *effects.LocalDispatcher) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		scene:    sc,
		settings: settings,
		manager:  manager,
		local:    local,
	}
	s.router.HandleFunc("/api/cover/{viewer}/{target}", s.handleTargetCover).Methods("GET")
	s.router.HandleFunc("/api/cover/{viewer}", s.handleCoverCalculations).Methods("GET")
	s.router.HandleFunc("/api/effects/{token}", s.handleEnableCover).Methods("POST")
	s.router.HandleFunc("/api/effects/{token}", s.handleDisableCover).Methods("DELETE")
	s.router.HandleFunc("/api/effects/{token}", s.handleListEffects).Methods("GET")
	s.router.HandleFunc("/ws/actions", s.handleActions)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// SetAreaRatio installs the area-ratio collaborator for the area strategies.
func (s *Server) SetAreaRatio(f cover.AreaRatioFunc) { s.area = f }

// configFromQuery copies the default config and applies per-request flag
// overrides, keeping each calculation's config isolated.
func (s *Server) configFromQuery(r *http.Request) cover.Config {
	cfg := s.settings.CoverConfig()
	q := r.URL.Query()
	boolParam := func(name string, dst *bool) {
		if v := q.Get(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	boolParam("walls", &cfg.WallsBlock)
	boolParam("tiles", &cfg.TilesBlock)
	boolParam("dead_tokens", &cfg.DeadTokensBlock)
	boolParam("live_tokens", &cfg.LiveTokensBlock)
	boolParam("force_half", &cfg.LiveForceHalfCover)
	boolParam("prone_tokens", &cfg.ProneTokensBlock)
	return cfg
}

func (s *Server) algorithmFromQuery(r *http.Request) (cover.Algorithm, error) {
	name := r.URL.Query().Get("algorithm")
	if name == "" {
		return s.settings.DefaultAlgorithm(), nil
	}
	return cover.ParseAlgorithm(name)
}

func (s *Server) handleTargetCover(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	viewer := s.scene.Token(vars["viewer"])
	target := s.scene.Token(vars["target"])

	alg, err := s.algorithmFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	calc := cover.NewCalculator(s.scene, s.configFromQuery(r), cover.WithAreaRatio(s.area))
	cat, err := calc.TargetCover(viewer, target, alg)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, map[string]string{"cover": cat.String()})
}

func (s *Server) handleCoverCalculations(w http.ResponseWriter, r *http.Request) {
	viewer := s.scene.Token(mux.Vars(r)["viewer"])

	alg, err := s.algorithmFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var targets []*scene.Token
	for _, t := range s.scene.Tokens() {
		if viewer == nil || t.ID != viewer.ID {
			targets = append(targets, t)
		}
	}

	calc := cover.NewCalculator(s.scene, s.configFromQuery(r), cover.WithAreaRatio(s.area))
	cats, err := calc.CoverCalculations(viewer, targets, alg)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out := make(map[string]string, len(cats))
	for id, cat := range cats {
		out[id] = cat.String()
	}
	writeJSON(w, out)
}

func (s *Server) handleEnableCover(w http.ResponseWriter, r *http.Request) {
	tokenID := mux.Vars(r)["token"]
	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body")
		return
	}
	cat, ok := cover.ParseCategory(body.Category)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "unknown cover category")
		return
	}
	if err := s.manager.EnableCover(r.Context(), tokenID, cat); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleDisableCover(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DisableAllCover(r.Context(), mux.Vars(r)["token"]); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleListEffects(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.local.Store.ActiveFor(mux.Vars(r)["token"])
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, st.Category.String())
	}
	writeJSON(w, out)
}

// handleActions serves the privileged action channel: each JSON request is
// re-validated and executed against the local dispatcher, and the reply
// mirrors the outcome.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] failed to upgrade action channel: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req effects.ActionRequest
		if err := conn.ReadJSON(&req); err != nil {
			log.Printf("[api] action channel closed: %v", err)
			return
		}
		resp := effects.HandleAction(context.Background(), s.local, req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[api] failed to write action reply: %v", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
