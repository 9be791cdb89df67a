package goal

import (
	"context"

	"github.com/smancode/sweep/internal/store"
)

// Structured selects from a fixed, ordered topic catalogue. Catalogue order
// is priority order: the first unprocessed topic wins. Whether a topic
// actually needs work is the engine's staleness check, not the provider's —
// this keeps Next side-effect free and idempotent.
type Structured struct {
	topics []store.Topic
}

// NewStructured builds a structured provider over a topic catalogue.
func NewStructured(topics []store.Topic) *Structured {
	return &Structured{topics: append([]store.Topic(nil), topics...)}
}

func (p *Structured) Next(_ context.Context, processed map[string]bool) (*Goal, error) {
	for _, t := range p.topics {
		if processed[t.ID] {
			continue
		}
		return FromTopic(t), nil
	}
	// A structured catalogue never exhausts permanently: file changes can
	// make any topic stale again, so a finished round just ends the sweep.
	return nil, ErrSweepComplete
}

func (p *Structured) MarkSelected(*Goal) {}

func (p *Structured) Reset() {}

func (p *Structured) RequiresStalenessCheck() bool { return true }
