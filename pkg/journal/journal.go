// Package journal records executed exchange operations. Entries are derived from
// the events an operation emitted, so a journal only ever sees committed work.
package journal

import (
	"context"
	"strings"
	"sync"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// Entry is one journaled event.
type Entry struct {
	ID         string            `json:"id"`
	Height     int64             `json:"height"`
	Time       time.Time         `json:"time"`
	Operation  string            `json:"operation"`
	EventType  string            `json:"event_type"`
	Attributes map[string]string `json:"attributes"`
}

// Sink persists journal entries.
type Sink interface {
	Record(ctx context.Context, entries []Entry) error
}

// EntriesFromEvents converts the dex events of one operation into entries.
// Events of other modules are skipped.
func EntriesFromEvents(height int64, blockTime time.Time, operation string, events sdk.Events) []Entry {
	entries := make([]Entry, 0, len(events))
	for _, ev := range events {
		if !strings.HasPrefix(ev.Type, types.ModuleName+"_") {
			continue
		}
		entries = append(entries, Entry{
			ID:         uuid.NewString(),
			Height:     height,
			Time:       blockTime,
			Operation:  operation,
			EventType:  ev.Type,
			Attributes: attributeMap(ev.Attributes),
		})
	}
	return entries
}

func attributeMap(attrs []abci.EventAttribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		out[attr.Key] = attr.Value
	}
	return out
}

// MemorySink keeps entries in memory. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// NewMemorySink returns a sink that keeps at most limit entries, dropping the
// oldest first. A non-positive limit keeps everything.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entries...)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = append([]Entry(nil), s.entries[len(s.entries)-s.limit:]...)
	}
	return nil
}

// Entries returns a copy of the recorded entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Filter returns the entries of the given event type.
func (s *MemorySink) Filter(eventType string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
