package goal

import (
	"context"
	"errors"
	"testing"

	"github.com/smancode/sweep/internal/store"
)

func catalogue() []store.Topic {
	return []store.Topic{
		{ID: "arch", Title: "Architecture overview"},
		{ID: "deps", Title: "Dependency analysis"},
		{ID: "risk", Title: "Risk assessment"},
	}
}

func TestStructuredSelectsInCatalogueOrder(t *testing.T) {
	p := NewStructured(catalogue())
	ctx := context.Background()

	processed := map[string]bool{}
	for _, want := range []string{"arch", "deps", "risk"} {
		g, err := p.Next(ctx, processed)
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if g.ID != want {
			t.Fatalf("Next() = %q, want %q", g.ID, want)
		}
		processed[g.ID] = true
	}

	if _, err := p.Next(ctx, processed); !errors.Is(err, ErrSweepComplete) {
		t.Fatalf("Next() after full round = %v, want ErrSweepComplete", err)
	}
}

func TestStructuredNeverReturnsProcessed(t *testing.T) {
	p := NewStructured(catalogue())
	g, err := p.Next(context.Background(), map[string]bool{"arch": true})
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if g.ID == "arch" {
		t.Error("Next() returned a processed topic")
	}
}

func TestStructuredNextIsIdempotent(t *testing.T) {
	p := NewStructured(catalogue())
	ctx := context.Background()
	processed := map[string]bool{}

	a, err := p.Next(ctx, processed)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	b, err := p.Next(ctx, processed)
	if err != nil {
		t.Fatalf("second Next() error: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("repeated Next() = %q then %q over same snapshot", a.ID, b.ID)
	}
}

func TestStructuredRequiresStalenessCheck(t *testing.T) {
	if !NewStructured(nil).RequiresStalenessCheck() {
		t.Error("structured provider must require staleness checks")
	}
}

func TestStructuredEmptyCatalogue(t *testing.T) {
	p := NewStructured(nil)
	if _, err := p.Next(context.Background(), nil); !errors.Is(err, ErrSweepComplete) {
		t.Errorf("Next() on empty catalogue = %v, want ErrSweepComplete", err)
	}
}
