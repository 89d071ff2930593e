package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/creature-duel-backend/internal/types"
)

// Lookup is the creature lookup interface consumed by the game controller.
// Implemented by Client and by CachedClient.
type Lookup interface {
	// Creature fetches the record for the given id.
	// Returns *FetchError on network or service failure.
	Creature(ctx context.Context, id int) (*types.CreatureRecord, error)

	// MaxID returns the largest valid creature id.
	MaxID() int
}

// FetchError is a transient failure from the lookup service.
// The only modeled failure kind; callers retry or surface it, nothing
// else can go wrong on a fetch.
type FetchError struct {
	ID     int
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch creature %d: status %d", e.ID, e.Status)
	}
	return fmt.Sprintf("fetch creature %d: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client fetches creature records from a PokeAPI-style HTTP service
type Client struct {
	baseURL    string
	maxID      int
	httpClient *http.Client
}

// NewClient creates a lookup client.
// baseURL is the service root (e.g. "https://pokeapi.co/api/v2"),
// maxID the upper bound of the valid id range [1, maxID].
func NewClient(baseURL string, maxID int, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		maxID:   maxID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// creatureDoc mirrors the subset of the service payload we care about
type creatureDoc struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
	} `json:"sprites"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
}

// Creature fetches a single creature record by id
func (c *Client) Creature(ctx context.Context, id int) (*types.CreatureRecord, error) {
	url := fmt.Sprintf("%s/pokemon/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{ID: id, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{ID: id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{ID: id, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var doc creatureDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &FetchError{ID: id, Err: fmt.Errorf("decode response: %w", err)}
	}

	record := &types.CreatureRecord{
		ID:         doc.ID,
		Name:       doc.Name,
		ImageRef:   doc.Sprites.FrontDefault,
		Attributes: make([]types.Attribute, 0, len(doc.Stats)),
	}
	for _, s := range doc.Stats {
		record.Attributes = append(record.Attributes, types.Attribute{
			Name:  s.Stat.Name,
			Value: s.BaseStat,
		})
	}

	return record, nil
}

// MaxID returns the largest valid creature id
func (c *Client) MaxID() int {
	return c.maxID
}
