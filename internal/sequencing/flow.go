package sequencing

import (
	"errors"
	"fmt"

	"github.com/mind-engage/scorm-engine/internal/content"
)

var (
	// ErrNavUnavailable means the requested direction is hidden or has no
	// destination in the current position.
	ErrNavUnavailable = errors.New("navigation unavailable")
	// ErrChoiceDenied means the chosen target exists but its prerequisite
	// rule is not met.
	ErrChoiceDenied = errors.New("choice target prerequisites not met")
)

// Outcome is a navigation decision. EndAttempt set means forward flow
// walked off the end of the organization and the caller must close the
// attempt instead of re-showing the last object.
type Outcome struct {
	SCO        *content.SCO
	EndAttempt bool
}

// Navigator computes directional moves over a built tree. Invisible
// objects are skipped in every direction but still shape the tree used
// for skip-level flow.
type Navigator struct {
	tree  *Tree
	order []int
	posOf map[int]int
}

func NewNavigator(tree *Tree) *Navigator {
	order := tree.Flatten()
	posOf := make(map[int]int, len(order))
	for pos, idx := range order {
		posOf[idx] = pos
	}
	return &Navigator{tree: tree, order: order, posOf: posOf}
}

// First returns the first visible launchable object of the organization,
// or an end-of-attempt outcome for content with nothing to launch.
func (n *Navigator) First() Outcome {
	for _, idx := range n.order {
		if sco := n.eligible(idx); sco != nil {
			return Outcome{SCO: sco}
		}
	}
	return Outcome{EndAttempt: true}
}

// Forward moves to the next visible launchable object in document order,
// flowing up past the end of a subtree into the parent's next sibling.
// Walking past the last object ends the attempt.
func (n *Navigator) Forward(currentID int64) (Outcome, error) {
	pos, cur, err := n.position(currentID)
	if err != nil {
		return Outcome{}, err
	}
	if cur.SCO.HideContinue() {
		return Outcome{}, fmt.Errorf("%w: continue hidden on %q", ErrNavUnavailable, cur.SCO.Identifier)
	}
	for p := pos + 1; p < len(n.order); p++ {
		if sco := n.eligible(n.order[p]); sco != nil {
			return Outcome{SCO: sco}, nil
		}
	}
	return Outcome{EndAttempt: true}, nil
}

// Backward moves to the previous visible launchable object in document
// order, which for a previous sibling with children is its deepest last
// descendant.
func (n *Navigator) Backward(currentID int64) (Outcome, error) {
	pos, cur, err := n.position(currentID)
	if err != nil {
		return Outcome{}, err
	}
	if cur.SCO.HidePrevious() {
		return Outcome{}, fmt.Errorf("%w: previous hidden on %q", ErrNavUnavailable, cur.SCO.Identifier)
	}
	for p := pos - 1; p >= 0; p-- {
		if sco := n.eligible(n.order[p]); sco != nil {
			return Outcome{SCO: sco}, nil
		}
	}
	return Outcome{}, fmt.Errorf("%w: no object before %q", ErrNavUnavailable, cur.SCO.Identifier)
}

// Choice jumps straight to the named object regardless of flow adjacency,
// gated by its prerequisite rule evaluated over statuses.
func (n *Navigator) Choice(target string, statuses map[string]string) (Outcome, error) {
	idx, ok := n.tree.IndexOfIdentifier(target)
	if !ok {
		return Outcome{}, fmt.Errorf("choice target %q: %w", target, content.ErrSCONotFound)
	}
	sco := n.eligible(idx)
	if sco == nil {
		return Outcome{}, fmt.Errorf("%w: target %q not launchable", ErrNavUnavailable, target)
	}
	if rule := sco.Prerequisites(); rule != "" {
		ok, err := EvalPrerequisites(rule, statuses)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			return Outcome{}, fmt.Errorf("%w: %q", ErrChoiceDenied, target)
		}
	}
	return Outcome{SCO: sco}, nil
}

func (n *Navigator) position(currentID int64) (int, *Node, error) {
	idx, ok := n.tree.IndexOf(currentID)
	if !ok {
		return 0, nil, fmt.Errorf("current sco %d: %w", currentID, content.ErrSCONotFound)
	}
	return n.posOf[idx], n.tree.Node(idx), nil
}

func (n *Navigator) eligible(idx int) *content.SCO {
	node := n.tree.Node(idx)
	if !node.SCO.Visible() || !node.SCO.Launchable() {
		return nil
	}
	return &node.SCO
}
