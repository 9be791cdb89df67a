package goal

import (
	"context"
	"sort"
	"sync"
)

// maxAvoidList bounds the avoid list sent to the generator so prompts do
// not grow without limit on long-lived loops.
const maxAvoidList = 50

// Exploratory asks an external generator for candidate questions and picks
// the highest-priority one that differs from the immediately preceding
// selection. Generated candidates are cached until MarkSelected or Reset so
// repeated Next calls over the same processed snapshot agree.
type Exploratory struct {
	gen       Generator
	projectID string
	count     int

	mu       sync.Mutex
	cached   []Candidate
	prevHash string
	avoid    []string
}

// NewExploratory builds an exploratory provider. count is how many
// candidates to request per selection.
func NewExploratory(gen Generator, projectID string, count int) *Exploratory {
	if count < 1 {
		count = 1
	}
	return &Exploratory{gen: gen, projectID: projectID, count: count}
}

func (p *Exploratory) Next(ctx context.Context, processed map[string]bool) (*Goal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		cands, err := p.gen.Generate(ctx, p.projectID, p.avoid)
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			return nil, ErrExhausted
		}
		if len(cands) > p.count {
			cands = cands[:p.count]
		}
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].Priority > cands[j].Priority })
		p.cached = cands
	}

	// Prefer the best candidate whose hash differs from the previous
	// selection. When every remaining candidate repeats it, return the top
	// one anyway: the guard's duplicate counter decides when to stop.
	var fallback *Goal
	for _, c := range p.cached {
		g := FromQuestion(c.Text)
		if processed[g.ID] {
			continue
		}
		if g.Hash != p.prevHash {
			return g, nil
		}
		if fallback == nil {
			fallback = g
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrSweepComplete
}

func (p *Exploratory) MarkSelected(g *Goal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prevHash = g.Hash
	p.avoid = append(p.avoid, g.Text)
	if len(p.avoid) > maxAvoidList {
		p.avoid = p.avoid[len(p.avoid)-maxAvoidList:]
	}
	p.cached = nil
}

func (p *Exploratory) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

func (p *Exploratory) RequiresStalenessCheck() bool { return false }
