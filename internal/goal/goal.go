// Package goal defines the unit of analytical work a loop can select and
// the provider strategies that propose the next one.
package goal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/smancode/sweep/internal/store"
)

// Goal is one discrete unit of work: a catalogue topic to analyze or a
// generated question to explore.
type Goal struct {
	ID        string
	Text      string
	Hash      string
	FollowUps []string
	Iteration int
}

// HashText returns the content hash used for duplicate detection.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// FromTopic builds a goal from a catalogue topic.
func FromTopic(t store.Topic) *Goal {
	text := t.Title
	if t.Hint != "" {
		text += "\n" + t.Hint
	}
	return &Goal{
		ID:   t.ID,
		Text: text,
		Hash: HashText("topic:" + t.ID),
	}
}

// FromQuestion builds a goal from a generated question.
func FromQuestion(text string) *Goal {
	h := HashText(text)
	return &Goal{
		ID:   "q-" + h[:12],
		Text: text,
		Hash: h,
	}
}

// ToState converts the goal to its checkpoint representation.
func (g *Goal) ToState() *store.GoalState {
	return &store.GoalState{
		ID:        g.ID,
		Text:      g.Text,
		Hash:      g.Hash,
		FollowUps: append([]string(nil), g.FollowUps...),
		Iteration: g.Iteration,
	}
}

// FromState reconstructs a goal from a checkpoint, preserving the follow-up
// list and iteration count of the interrupted attempt.
func FromState(st *store.GoalState) *Goal {
	return &Goal{
		ID:        st.ID,
		Text:      st.Text,
		Hash:      st.Hash,
		FollowUps: append([]string(nil), st.FollowUps...),
		Iteration: st.Iteration,
	}
}
