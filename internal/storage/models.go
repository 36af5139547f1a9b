package storage

import "time"

// CacheEntry is one cached aggregate report.
type CacheEntry struct {
	// Key is the cache key, "kind|quest".
	Key string `json:"key"`

	// Kind is the report kind (summary, detailed, failures).
	Kind string `json:"kind"`

	// Quest is the quest filter, or "" for all quests.
	Quest string `json:"quest"`

	// GeneratedAt is when the report was computed.
	GeneratedAt time.Time `json:"generated_at"`

	// TTL is how long the entry stays fresh.
	TTL time.Duration `json:"ttl"`

	// Payload is the serialized report.
	Payload []byte `json:"-"`
}

// RunRecord summarizes one evaluation run.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Filter      string    `json:"filter"`
	Concurrency int       `json:"concurrency"`
	LLMEnabled  bool      `json:"llm_enabled"`

	Total       int `json:"total"`
	Pass        int `json:"pass"`
	Fail        int `json:"fail"`
	NeedsReview int `json:"needs_review"`
	Errored     int `json:"errored"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// timeLayout is a fixed-width UTC layout so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"
