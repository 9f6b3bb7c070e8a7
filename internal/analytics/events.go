// Package analytics tracks search and interaction events. Services publish
// events through a Collector; the analytics service consumes them from
// Kafka and aggregates them in memory.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventClick      EventType = "click"
	EventClose      EventType = "close"
	EventIndexBuild EventType = "index_build"
)

// Event is the envelope for every analytics message. Fields that do not
// apply to a type are left empty.
type Event struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query,omitempty"`
	QueryID    string    `json:"query_id,omitempty"`
	Terms      []string  `json:"terms,omitempty"`
	Records    int       `json:"records,omitempty"`
	LatencyMs  int64     `json:"latency_ms,omitempty"`
	CacheHit   bool      `json:"cache_hit,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
	DocID      string    `json:"doc_id,omitempty"`
	Dwell      float64   `json:"dwell_seconds,omitempty"`
	Documents  int       `json:"documents,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// SearchEvent builds the event for a completed search. A search without
// records is typed zero_result.
func SearchEvent(query, queryID string, terms []string, records int, latencyMs int64, cacheHit bool, generation uint64) Event {
	t := EventSearch
	if records == 0 {
		t = EventZeroResult
	}
	return Event{
		Type:       t,
		Query:      query,
		QueryID:    queryID,
		Terms:      terms,
		Records:    records,
		LatencyMs:  latencyMs,
		CacheHit:   cacheHit,
		Generation: generation,
		Timestamp:  time.Now().UTC(),
	}
}
