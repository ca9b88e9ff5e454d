package board

import (
	"fmt"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
)

// Resolve is the conflict resolver: a pure decision over whether candidate
// may be appended given the events accepted so far. It returns nil to accept,
// ErrConflict to drop, and ErrInvalidEvent for types that have no resolution
// path. It never reads the clock and never mutates its inputs, so the same
// history and candidate always produce the same decision.
//
// Rules:
//   - Drawing events (DRAW_LINE, DRAW_PATH, ERASE) are always accepted.
//   - CLEAR_CANVAS is dropped when the history holds a CLEAR_CANVAS whose
//     timestamp is within clearCooldown of the candidate's. The comparison
//     uses the most recent clear by timestamp and is strict, so two clears
//     exactly one cooldown apart are both accepted. This debounces two users
//     clearing within one human reaction time.
//   - Control events never reach the resolver; the coordinator's control path
//     handles them.
func Resolve(history []types.Event, candidate *types.Event, clearCooldown time.Duration) error {
	if candidate.IsDrawing() {
		return nil
	}
	if candidate.Type != types.EventTypeClearCanvas {
		return fmt.Errorf("%w: %s has no resolution path", types.ErrInvalidEvent, candidate.Type)
	}

	last, ok := latestClear(history)
	if !ok {
		return nil
	}
	gap := candidate.Timestamp - last.Timestamp
	if gap < 0 {
		gap = -gap
	}
	if gap < clearCooldown.Milliseconds() {
		return fmt.Errorf("%w: clear within %v of previous clear", types.ErrConflict, clearCooldown)
	}
	return nil
}

// latestClear returns the CLEAR_CANVAS with the greatest timestamp.
func latestClear(history []types.Event) (types.Event, bool) {
	var best types.Event
	found := false
	for _, ev := range history {
		if ev.Type != types.EventTypeClearCanvas {
			continue
		}
		if !found || ev.Timestamp > best.Timestamp {
			best = ev
			found = true
		}
	}
	return best, found
}
