package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/creature-duel-backend/internal/dex"
	"github.com/creature-duel-backend/internal/game"
	"github.com/creature-duel-backend/internal/store"
	"github.com/creature-duel-backend/internal/types"
	"github.com/creature-duel-backend/pkg/logger"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	registry *game.Registry
	lookup   dex.Lookup
	streaks  store.Store
	rules    game.Rules
	logger   *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(registry *game.Registry, lookup dex.Lookup, streaks store.Store, rules game.Rules, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		lookup:   lookup,
		streaks:  streaks,
		rules:    rules,
		logger:   log,
	}
}

// Routes sets up all HTTP routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/predict", h.Predict)
		r.Post("/sessions/{id}/retry", h.Retry)
		r.Post("/sessions/{id}/reset", h.Reset)
		r.Delete("/sessions/{id}", h.DeleteSession)
	})

	r.Get("/healthz", h.Health)

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession handles POST /v1/sessions.
// Creates a session at the requested difficulty and loads its first
// round. A round-load failure still creates the session; it is left in
// loading and the retry endpoint picks it up.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	difficulty, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid difficulty", err.Error())
		return
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = "default"
	}

	requestID := GetRequestID(r.Context())
	sessionID := "sess_" + uuid.New().String()

	session := game.NewSession(r.Context(), sessionID, playerID, h.lookup, h.streaks, h.rules, h.logger)
	h.registry.Add(session)

	h.logger.Info("Starting session",
		logger.F("session_id", sessionID),
		logger.F("player_id", playerID),
		logger.F("difficulty", string(difficulty)),
		logger.F("request_id", requestID))

	if err := session.Start(r.Context(), difficulty); err != nil {
		h.logger.Error("Failed to load first round",
			logger.F("session_id", sessionID),
			logger.F("error", err.Error()),
			logger.F("request_id", requestID))
	}

	h.respondJSON(w, http.StatusCreated, sessionResponse(session.Snapshot()))
}

// GetSession handles GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	h.respondJSON(w, http.StatusOK, sessionResponse(session.Snapshot()))
}

// Predict handles POST /v1/sessions/{id}/predict.
// Responds 409 when the controller's guard makes the submission a
// no-op (round already resolved, cooldown running, or not active).
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req types.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	pick, err := game.ParseSelector(req.Pick)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid pick", err.Error())
		return
	}

	if !session.SubmitPrediction(r.Context(), pick) {
		h.respondError(w, http.StatusConflict, "prediction not accepted", "no unresolved round to predict on")
		return
	}

	h.respondJSON(w, http.StatusOK, sessionResponse(session.Snapshot()))
}

// Retry handles POST /v1/sessions/{id}/retry: the manual retry path
// for a round load that exhausted its internal attempts.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if session.Snapshot().Mode != game.ModeLoading {
		h.respondError(w, http.StatusConflict, "nothing to retry", "session is not loading a round")
		return
	}

	if err := session.LoadRound(r.Context()); err != nil {
		h.logger.Error("Round retry failed",
			logger.F("session_id", session.ID()),
			logger.F("error", err.Error()),
			logger.F("request_id", GetRequestID(r.Context())))
		h.respondError(w, http.StatusBadGateway, "round load failed", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, sessionResponse(session.Snapshot()))
}

// Reset handles POST /v1/sessions/{id}/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Reset()
	h.respondJSON(w, http.StatusOK, sessionResponse(session.Snapshot()))
}

// DeleteSession handles DELETE /v1/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.registry.Remove(sessionID); err != nil {
		h.respondError(w, http.StatusNotFound, "session not found", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {id} path parameter to a live session, writing
// the error response itself when the lookup fails.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sessionID := chi.URLParam(r, "id")

	session, err := h.registry.Get(sessionID)
	if err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			h.respondError(w, http.StatusNotFound, "session not found", err.Error())
			return nil, false
		}
		h.respondError(w, http.StatusInternalServerError, "failed to get session", err.Error())
		return nil, false
	}

	return session, true
}

// sessionResponse builds the read-only API view of a snapshot.
// Candidate attributes and totals are withheld while the round is
// unresolved so the client has to guess.
func sessionResponse(snap game.Snapshot) types.SessionResponse {
	revealed := snap.Outcome != ""

	return types.SessionResponse{
		ID:            snap.ID,
		PlayerID:      snap.PlayerID,
		Mode:          string(snap.Mode),
		Difficulty:    string(snap.Difficulty),
		Streak:        snap.Streak,
		BestStreak:    snap.BestStreak,
		CooldownTicks: snap.CooldownTicks,
		CandidateA:    candidateView(snap.CandidateA, revealed),
		CandidateB:    candidateView(snap.CandidateB, revealed),
		Prediction:    string(snap.Prediction),
		Outcome:       string(snap.Outcome),
		Winner:        string(snap.Winner),
	}
}

func candidateView(record *types.CreatureRecord, revealed bool) *types.CandidateView {
	if record == nil {
		return nil
	}

	view := &types.CandidateView{
		ID:       record.ID,
		Name:     record.Name,
		ImageRef: record.ImageRef,
	}
	if revealed {
		total := record.TotalScore()
		view.Attributes = record.Attributes
		view.TotalScore = &total
	}

	return view
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
