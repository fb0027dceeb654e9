package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SessionIDGenerator names query runs. The id tags every log line of a
// run and is returned with its result.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default: ids sort by start time, so the runs of
// one log file line up in the order they began.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a scripted list of ids, one per run. Running
// past the end of the list panics, as a test then made more runs than it
// declared.
type FixedGenerator struct {
	mu   sync.Mutex
	ids  []string
	next int
}

// NewFixedGenerator scripts the ids in the order runs will receive them.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next == len(g.ids) {
		panic(fmt.Sprintf("FixedGenerator: only %d session ids scripted", len(g.ids)))
	}
	id := g.ids[g.next]
	g.next++
	return id
}
