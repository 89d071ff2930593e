package game

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/creature-duel-backend/internal/dex"
	"github.com/creature-duel-backend/internal/store"
	"github.com/creature-duel-backend/internal/types"
	"github.com/creature-duel-backend/pkg/logger"
)

// Difficulty controls how the second candidate of a round is selected
type Difficulty string

const (
	DifficultyStandard    Difficulty = "standard"
	DifficultyChallenging Difficulty = "challenging"
)

// ParseDifficulty validates a difficulty string
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyStandard, DifficultyChallenging:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("invalid difficulty: %q (want standard or challenging)", s)
}

// Mode is the session lifecycle state
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeLoading Mode = "loading"
	ModeActive  Mode = "active"
	ModeEnded   Mode = "ended"
)

// Selector identifies one of the two candidates in a round
type Selector string

const (
	SelectorA Selector = "a"
	SelectorB Selector = "b"
)

// ParseSelector validates a selector string
func ParseSelector(s string) (Selector, error) {
	switch Selector(s) {
	case SelectorA, SelectorB:
		return Selector(s), nil
	}
	return "", fmt.Errorf("invalid pick: %q (want a or b)", s)
}

// Outcome is the result of a resolved prediction
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// Rules holds the controller tunables for a session
type Rules struct {
	// FetchAttempts bounds the retry loop around a single candidate
	// slot; each attempt re-rolls the random id.
	FetchAttempts int

	// SimilarityAttempts bounds the challenging-mode resampling loop
	SimilarityAttempts int

	// SimilarityTolerance is the maximum total-score difference a
	// challenging-mode sample is accepted at without resampling.
	SimilarityTolerance int

	// CooldownTicks is the number of ticks between a correct
	// prediction and the next round.
	CooldownTicks int
}

// DefaultRules returns the reference tunables
func DefaultRules() Rules {
	return Rules{
		FetchAttempts:       3,
		SimilarityAttempts:  5,
		SimilarityTolerance: 50,
		CooldownTicks:       3,
	}
}

// Session is the game session controller: the sole owner and mutator
// of one session's state. All reads go through Snapshot.
type Session struct {
	mu sync.Mutex

	id       string
	playerID string

	mode          Mode
	difficulty    Difficulty
	candidateA    *types.CreatureRecord
	candidateB    *types.CreatureRecord
	prediction    Selector
	outcome       Outcome
	winner        Selector
	streak        int
	bestStreak    int
	cooldownTicks int

	// epoch increments on Start and Reset; a deferred round load
	// carrying a stale epoch is dropped, so a reset mid-cooldown can
	// never surface a stale round.
	epoch uint64

	lookup  dex.Lookup
	streaks store.Store
	rules   Rules
	log     *logger.Logger
}

// Snapshot is a read-only copy of the session state.
// Candidate records are immutable, so sharing the pointers is safe.
type Snapshot struct {
	ID            string
	PlayerID      string
	Mode          Mode
	Difficulty    Difficulty
	Streak        int
	BestStreak    int
	CooldownTicks int
	CandidateA    *types.CreatureRecord
	CandidateB    *types.CreatureRecord
	Prediction    Selector
	Outcome       Outcome
	Winner        Selector
}

// NewSession creates an idle session and loads the player's persisted
// best streak. A missing or unreadable stored value starts the best
// streak at 0; streak bookkeeping itself never fails.
func NewSession(ctx context.Context, id, playerID string, lookup dex.Lookup, streaks store.Store, rules Rules, log *logger.Logger) *Session {
	s := &Session{
		id:       id,
		playerID: playerID,
		mode:     ModeIdle,
		lookup:   lookup,
		streaks:  streaks,
		rules:    rules,
		log:      log,
	}

	raw, err := streaks.Get(ctx, store.BestStreakKey(playerID))
	if err != nil {
		if err != store.ErrNotFound {
			log.Warn("failed to load best streak", logger.F("player_id", playerID), logger.F("error", err.Error()))
		}
		return s
	}

	best, err := strconv.Atoi(raw)
	if err != nil || best < 0 {
		log.Warn("ignoring malformed best streak", logger.F("player_id", playerID), logger.F("value", raw))
		return s
	}
	s.bestStreak = best

	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a read-only copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:            s.id,
		PlayerID:      s.playerID,
		Mode:          s.mode,
		Difficulty:    s.difficulty,
		Streak:        s.streak,
		BestStreak:    s.bestStreak,
		CooldownTicks: s.cooldownTicks,
		CandidateA:    s.candidateA,
		CandidateB:    s.candidateB,
		Prediction:    s.prediction,
		Outcome:       s.outcome,
		Winner:        s.winner,
	}
}

// Start begins a session at the given difficulty and loads the first
// round. The difficulty is fixed until the next Start.
func (s *Session) Start(ctx context.Context, difficulty Difficulty) error {
	s.mu.Lock()
	s.difficulty = difficulty
	s.streak = 0
	s.mode = ModeLoading
	s.candidateA = nil
	s.candidateB = nil
	s.prediction = ""
	s.outcome = ""
	s.winner = ""
	s.cooldownTicks = 0
	s.epoch++
	s.mu.Unlock()

	return s.LoadRound(ctx)
}

// LoadRound fetches the next candidate pair.
//
// Candidate A is a uniformly random id; each fetch failure re-rolls and
// retries up to the attempt bound. Candidate B is any distinct id in
// standard difficulty; in challenging difficulty up to
// SimilarityAttempts samples are drawn looking for a total score within
// SimilarityTolerance of A's, and the last sample is accepted when none
// qualifies. Similarity is a best-effort bias, never a blocking
// constraint.
//
// On failure the session stays in loading; calling LoadRound again is
// the manual retry path.
func (s *Session) LoadRound(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	difficulty := s.difficulty
	s.mode = ModeLoading
	s.prediction = ""
	s.outcome = ""
	s.winner = ""
	s.cooldownTicks = 0
	s.mu.Unlock()

	candidateA, err := s.fetchCandidate(ctx, 0)
	if err != nil {
		return fmt.Errorf("load round: %w", err)
	}

	var candidateB *types.CreatureRecord
	if difficulty == DifficultyChallenging {
		target := candidateA.TotalScore()
		for attempt := 0; attempt < s.rules.SimilarityAttempts; attempt++ {
			candidateB, err = s.fetchCandidate(ctx, candidateA.ID)
			if err != nil {
				return fmt.Errorf("load round: %w", err)
			}
			if absDiff(candidateB.TotalScore(), target) <= s.rules.SimilarityTolerance {
				break
			}
			// past the attempt bound the last sample stands,
			// similar or not
		}
	} else {
		candidateB, err = s.fetchCandidate(ctx, candidateA.ID)
		if err != nil {
			return fmt.Errorf("load round: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		// session was reset or restarted while fetching; drop the round
		return nil
	}

	s.candidateA = candidateA
	s.candidateB = candidateB
	s.prediction = ""
	s.outcome = ""
	s.winner = ""
	s.cooldownTicks = 0
	s.mode = ModeActive

	return nil
}

// SubmitPrediction records the user's pick and resolves the round.
// Returns false without any state change unless the session is active
// with an unresolved round (idempotent guard, not an error).
//
// The winner is the candidate with the greater total score; equal
// totals resolve to A by convention.
func (s *Session) SubmitPrediction(ctx context.Context, pick Selector) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeActive || s.prediction != "" || s.cooldownTicks != 0 {
		return false
	}
	if s.candidateA == nil || s.candidateB == nil {
		return false
	}

	winner := SelectorA
	if s.candidateA.TotalScore() < s.candidateB.TotalScore() {
		winner = SelectorB
	}

	s.prediction = pick
	s.winner = winner

	if pick == winner {
		s.outcome = OutcomeCorrect
		s.streak++
		s.cooldownTicks = s.rules.CooldownTicks
		if s.streak > s.bestStreak {
			s.bestStreak = s.streak
			key := store.BestStreakKey(s.playerID)
			if err := s.streaks.Set(ctx, key, strconv.Itoa(s.bestStreak)); err != nil {
				// in-memory bestStreak is already updated; losing the
				// write costs durability, not correctness
				s.log.Error("failed to persist best streak",
					logger.F("player_id", s.playerID),
					logger.F("error", err.Error()))
			}
		}
	} else {
		s.outcome = OutcomeIncorrect
		s.streak = 0
		s.mode = ModeEnded
	}

	return true
}

// TickCooldown decrements the cooldown by one, never below zero.
// Driven by an external scheduler, once per tick interval. Returns
// true with the current epoch when the cooldown just elapsed and the
// deferred round load is due.
func (s *Session) TickCooldown() (bool, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cooldownTicks == 0 {
		return false, 0
	}

	s.cooldownTicks--
	if s.cooldownTicks == 0 && s.outcome == OutcomeCorrect && s.mode == ModeActive {
		return true, s.epoch
	}

	return false, 0
}

// ReloadIfCurrent runs the deferred post-cooldown round load, unless
// the session moved on (reset or restarted) since the cooldown began.
func (s *Session) ReloadIfCurrent(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch || s.mode != ModeActive {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.LoadRound(ctx)
}

// Reset returns the session to idle. Usable from any mode, including
// the terminal ended state. The best streak is untouched; any pending
// deferred round load is cancelled.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = ModeIdle
	s.candidateA = nil
	s.candidateB = nil
	s.prediction = ""
	s.outcome = ""
	s.winner = ""
	s.streak = 0
	s.cooldownTicks = 0
	s.epoch++
}

// fetchCandidate fetches one candidate at a fresh random id, excluding
// a given id, retrying with a new id on each fetch failure up to the
// attempt bound.
func (s *Session) fetchCandidate(ctx context.Context, excludeID int) (*types.CreatureRecord, error) {
	var lastErr error
	for attempt := 0; attempt < s.rules.FetchAttempts; attempt++ {
		id := randomID(s.lookup.MaxID(), excludeID)
		record, err := s.lookup.Creature(ctx, id)
		if err == nil {
			return record, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// randomID returns a uniformly random id in [1, maxID], excluding one
// id (0 excludes nothing).
func randomID(maxID, excludeID int) int {
	for {
		id := 1 + rand.Intn(maxID)
		if id != excludeID {
			return id
		}
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
