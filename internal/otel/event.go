// Package otel records a per-run trace of pipeline stages.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<stage>.<action>".
type EventKind string

const (
	// Run lifecycle
	KindRunStart    EventKind = "run.start"
	KindRunComplete EventKind = "run.complete"
	KindRunEmpty    EventKind = "run.empty"
	KindRunError    EventKind = "run.error"

	// Stages
	KindIngest       EventKind = "ingest.complete"
	KindEmbedArticle EventKind = "embed.article"
	KindEmbedError   EventKind = "embed.error"
	KindIndexUpsert  EventKind = "index.upsert"
	KindIndexError   EventKind = "index.error"
	KindCluster      EventKind = "cluster.complete"
	KindFacts        EventKind = "facts.complete"
	KindBiasArticle  EventKind = "bias.article"
	KindBiasSkip     EventKind = "bias.skip"
	KindSummary      EventKind = "summary.complete"
	KindSummaryError EventKind = "summary.error"
	KindPersist      EventKind = "persist.cluster"
	KindStoreError   EventKind = "store.error"
)

// Event is the universal trace record. Every field except Kind and Time
// is optional. Serialized as a single JSONL line.
type Event struct {
	Time    time.Time      `json:"t"`
	Level   Level          `json:"level,omitempty"`
	Kind    EventKind      `json:"kind"`
	Comp    string         `json:"comp,omitempty"`   // "pipeline", "ingest", "cluster", ...
	RunID   string         `json:"run_id,omitempty"` // same for every event of one Logger
	Dur     time.Duration  `json:"-"`                // not serialized directly
	DurMs   float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count   int            `json:"count,omitempty"`
	Query   string         `json:"query,omitempty"`
	Cluster string         `json:"cluster,omitempty"`
	Article string         `json:"article,omitempty"`
	Err     string         `json:"err,omitempty"`
	Msg     string         `json:"msg,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
