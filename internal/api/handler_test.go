package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/creature-duel-backend/internal/dex"
	"github.com/creature-duel-backend/internal/game"
	"github.com/creature-duel-backend/internal/store"
	"github.com/creature-duel-backend/internal/types"
	"github.com/creature-duel-backend/pkg/logger"
)

// queueLookup implements dex.Lookup from a fixed queue of records
type queueLookup struct {
	mu    sync.Mutex
	queue []*types.CreatureRecord
}

func (q *queueLookup) Creature(ctx context.Context, id int) (*types.CreatureRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return nil, &dex.FetchError{ID: id, Err: errors.New("no more records")}
	}
	record := q.queue[0]
	q.queue = q.queue[1:]
	return record, nil
}

func (q *queueLookup) MaxID() int {
	return 898
}

func record(id, total int) *types.CreatureRecord {
	return &types.CreatureRecord{
		ID:       id,
		Name:     "creature-" + strconv.Itoa(id),
		ImageRef: "sprites/" + strconv.Itoa(id) + ".png",
		Attributes: []types.Attribute{
			{Name: "power", Value: total},
		},
	}
}

func newTestRouter(lookup dex.Lookup) (chi.Router, *Handler) {
	registry := game.NewRegistry(time.Second, logger.New())
	handler := NewHandler(registry, lookup, store.NewMemoryStore(), game.DefaultRules(), logger.New())

	router := chi.NewRouter()
	router.Mount("/", handler.Routes())
	return router, handler
}

func doJSON(t *testing.T, router chi.Router, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) types.SessionResponse {
	t.Helper()

	var resp types.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestHandler_CreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "valid request",
			requestBody:    types.CreateSessionRequest{Difficulty: "standard"},
			expectedStatus: http.StatusCreated,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeSession(t, w)
				if resp.ID == "" {
					t.Error("Expected session ID, got empty")
				}
				if resp.Mode != "active" {
					t.Errorf("Expected mode active, got %s", resp.Mode)
				}
				if resp.CandidateA == nil || resp.CandidateB == nil {
					t.Fatalf("Expected both candidates present")
				}
				// unresolved round: totals stay hidden
				if resp.CandidateA.TotalScore != nil || len(resp.CandidateA.Attributes) != 0 {
					t.Errorf("Expected candidate totals hidden before the prediction")
				}
				if resp.Streak != 0 {
					t.Errorf("Expected streak 0, got %d", resp.Streak)
				}
			},
		},
		{
			name:           "invalid difficulty",
			requestBody:    types.CreateSessionRequest{Difficulty: "impossible"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing difficulty",
			requestBody:    types.CreateSessionRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &queueLookup{queue: []*types.CreatureRecord{record(1, 300), record(2, 250)}}
			router, _ := newTestRouter(lookup)

			var w *httptest.ResponseRecorder
			if str, ok := tt.requestBody.(string); ok {
				req := httptest.NewRequest("POST", "/v1/sessions", bytes.NewReader([]byte(str)))
				w = httptest.NewRecorder()
				router.ServeHTTP(w, req)
			} else {
				w = doJSON(t, router, "POST", "/v1/sessions", tt.requestBody)
			}

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandler_PredictFlow(t *testing.T) {
	lookup := &queueLookup{queue: []*types.CreatureRecord{record(1, 300), record(2, 250)}}
	router, _ := newTestRouter(lookup)

	created := doJSON(t, router, "POST", "/v1/sessions", types.CreateSessionRequest{Difficulty: "standard"})
	if created.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", created.Code, created.Body.String())
	}
	sessionID := decodeSession(t, created).ID

	// candidate A totals 300 vs 250: picking a wins
	w := doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/predict", types.PredictRequest{Pick: "a"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	resp := decodeSession(t, w)
	if resp.Outcome != "correct" {
		t.Errorf("Expected outcome correct, got %s", resp.Outcome)
	}
	if resp.Winner != "a" {
		t.Errorf("Expected winner a, got %s", resp.Winner)
	}
	if resp.Streak != 1 {
		t.Errorf("Expected streak 1, got %d", resp.Streak)
	}
	if resp.CooldownTicks != 3 {
		t.Errorf("Expected cooldown 3, got %d", resp.CooldownTicks)
	}
	if resp.CandidateA.TotalScore == nil || *resp.CandidateA.TotalScore != 300 {
		t.Errorf("Expected candidate totals revealed after the prediction")
	}

	// round is resolved: a second prediction is refused
	w = doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/predict", types.PredictRequest{Pick: "b"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on a resolved round, got %d", w.Code)
	}
}

func TestHandler_PredictIncorrectEndsSession(t *testing.T) {
	lookup := &queueLookup{queue: []*types.CreatureRecord{record(1, 200), record(2, 250)}}
	router, _ := newTestRouter(lookup)

	created := doJSON(t, router, "POST", "/v1/sessions", types.CreateSessionRequest{Difficulty: "standard"})
	sessionID := decodeSession(t, created).ID

	w := doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/predict", types.PredictRequest{Pick: "a"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	resp := decodeSession(t, w)
	if resp.Outcome != "incorrect" {
		t.Errorf("Expected outcome incorrect, got %s", resp.Outcome)
	}
	if resp.Mode != "ended" {
		t.Errorf("Expected mode ended, got %s", resp.Mode)
	}
	if resp.Streak != 0 {
		t.Errorf("Expected streak 0, got %d", resp.Streak)
	}
}

func TestHandler_InvalidPick(t *testing.T) {
	lookup := &queueLookup{queue: []*types.CreatureRecord{record(1, 300), record(2, 250)}}
	router, _ := newTestRouter(lookup)

	created := doJSON(t, router, "POST", "/v1/sessions", types.CreateSessionRequest{Difficulty: "standard"})
	sessionID := decodeSession(t, created).ID

	w := doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/predict", types.PredictRequest{Pick: "c"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandler_RetryStalledRound(t *testing.T) {
	// empty queue: the first round load exhausts its attempts
	lookup := &queueLookup{}
	router, _ := newTestRouter(lookup)

	created := doJSON(t, router, "POST", "/v1/sessions", types.CreateSessionRequest{Difficulty: "standard"})
	if created.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", created.Code)
	}

	resp := decodeSession(t, created)
	if resp.Mode != "loading" {
		t.Fatalf("Expected a stalled loading session, got %s", resp.Mode)
	}

	// still nothing upstream: retry fails but stays retryable
	w := doJSON(t, router, "POST", "/v1/sessions/"+resp.ID+"/retry", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}

	// upstream recovers
	lookup.mu.Lock()
	lookup.queue = []*types.CreatureRecord{record(1, 300), record(2, 250)}
	lookup.mu.Unlock()

	w = doJSON(t, router, "POST", "/v1/sessions/"+resp.ID+"/retry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	if got := decodeSession(t, w).Mode; got != "active" {
		t.Errorf("Expected mode active after retry, got %s", got)
	}

	// an active session has nothing to retry
	w = doJSON(t, router, "POST", "/v1/sessions/"+resp.ID+"/retry", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestHandler_ResetAndDelete(t *testing.T) {
	lookup := &queueLookup{queue: []*types.CreatureRecord{record(1, 300), record(2, 250)}}
	router, _ := newTestRouter(lookup)

	created := doJSON(t, router, "POST", "/v1/sessions", types.CreateSessionRequest{Difficulty: "standard"})
	sessionID := decodeSession(t, created).ID

	w := doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := decodeSession(t, w).Mode; got != "idle" {
		t.Errorf("Expected mode idle after reset, got %s", got)
	}

	w = doJSON(t, router, "DELETE", "/v1/sessions/"+sessionID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/v1/sessions/"+sessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestHandler_GetSessionNotFound(t *testing.T) {
	router, _ := newTestRouter(&queueLookup{})

	w := doJSON(t, router, "GET", "/v1/sessions/non-existent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHandler_Health(t *testing.T) {
	router, _ := newTestRouter(&queueLookup{})

	w := doJSON(t, router, "GET", "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
