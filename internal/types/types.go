package types

// Attribute is a single named stat on a creature record.
// Values are non-negative integers assigned by the lookup service.
type Attribute struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CreatureRecord is a creature as served by the lookup service.
// Records are read-only once fetched; the same id always maps to the
// same record.
type CreatureRecord struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	ImageRef   string      `json:"image_ref"`
	Attributes []Attribute `json:"attributes"`
}

// TotalScore returns the sum of all attribute values.
// Recomputed on demand, never cached on the record.
func (r *CreatureRecord) TotalScore() int {
	total := 0
	for _, a := range r.Attributes {
		total += a.Value
	}
	return total
}

// CreateSessionRequest represents a request to create a game session
type CreateSessionRequest struct {
	Difficulty string `json:"difficulty"`          // "standard" or "challenging"
	PlayerID   string `json:"player_id,omitempty"` // defaults to "default"
}

// PredictRequest represents a prediction for the current round
type PredictRequest struct {
	Pick string `json:"pick"` // "a" or "b"
}

// CandidateView is a creature as exposed to the presentation layer.
// Attributes and the total are withheld while a round is unresolved.
type CandidateView struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	ImageRef   string      `json:"image_ref"`
	Attributes []Attribute `json:"attributes,omitempty"`
	TotalScore *int        `json:"total_score,omitempty"`
}

// SessionResponse is the read-only session snapshot returned by the API
type SessionResponse struct {
	ID            string         `json:"id"`
	PlayerID      string         `json:"player_id"`
	Mode          string         `json:"mode"`
	Difficulty    string         `json:"difficulty"`
	Streak        int            `json:"streak"`
	BestStreak    int            `json:"best_streak"`
	CooldownTicks int            `json:"cooldown_ticks"`
	CandidateA    *CandidateView `json:"candidate_a,omitempty"`
	CandidateB    *CandidateView `json:"candidate_b,omitempty"`
	Prediction    string         `json:"prediction,omitempty"`
	Outcome       string         `json:"outcome,omitempty"`
	Winner        string         `json:"winner,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
