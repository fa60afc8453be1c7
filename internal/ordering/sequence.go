package ordering

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUnknownMember = errors.New("member not in scope")
	ErrAlreadyFirst  = errors.New("member is already first")
	ErrAlreadyLast   = errors.New("member is already last")
)

type moveKind int

const (
	moveUp moveKind = iota + 1
	moveDown
	moveTo
)

// Move describes one reorder request.
type Move struct {
	kind   moveKind
	target int
}

// Up swaps a member with its predecessor.
func Up() Move { return Move{kind: moveUp} }

// Down swaps a member with its successor.
func Down() Move { return Move{kind: moveDown} }

// To places a member at position n (1 based); n is clamped to the scope size.
func To(n int) Move { return Move{kind: moveTo, target: n} }

func (m Move) String() string {
	switch m.kind {
	case moveUp:
		return "up"
	case moveDown:
		return "down"
	case moveTo:
		return "to"
	}
	return "unknown"
}

// The sequence helpers operate on ids sorted by position; index i holds the
// member at position i+1. Inputs are never mutated.

func indexOf(seq []uuid.UUID, id uuid.UUID) int {
	for i, candidate := range seq {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Apply returns seq after applying move to id.
func Apply(seq []uuid.UUID, id uuid.UUID, move Move) ([]uuid.UUID, error) {
	idx := indexOf(seq, id)
	if idx < 0 {
		return nil, ErrUnknownMember
	}
	out := append([]uuid.UUID(nil), seq...)

	switch move.kind {
	case moveUp:
		if idx == 0 {
			return nil, ErrAlreadyFirst
		}
		out[idx-1], out[idx] = out[idx], out[idx-1]
	case moveDown:
		if idx == len(out)-1 {
			return nil, ErrAlreadyLast
		}
		out[idx+1], out[idx] = out[idx], out[idx+1]
	case moveTo:
		target := clamp(move.target, 1, len(out)) - 1
		if target == idx {
			return out, nil
		}
		// shift everything strictly between the old and new slot by one
		if target < idx {
			copy(out[target+1:idx+1], out[target:idx])
		} else {
			copy(out[idx:target], out[idx+1:target+1])
		}
		out[target] = id
	default:
		return nil, errors.New("unknown move")
	}
	return out, nil
}

// Remove drops id and closes the gap.
func Remove(seq []uuid.UUID, id uuid.UUID) ([]uuid.UUID, error) {
	idx := indexOf(seq, id)
	if idx < 0 {
		return nil, ErrUnknownMember
	}
	out := make([]uuid.UUID, 0, len(seq)-1)
	out = append(out, seq[:idx]...)
	return append(out, seq[idx+1:]...), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
