package service

import (
	"fmt"
	"time"

	"tripfluence-api/core/errors"
	"tripfluence-api/modules/space/entity"
)

// Overlaps is the canonical half-open interval overlap predicate: two
// windows [aStart,aEnd) and [bStart,bEnd) overlap iff
// aStart < bEnd && bStart < aEnd. Adjacent windows do not overlap.
// Every overlap decision in the codebase (block conflicts, request
// conflicts) goes through this one predicate.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// CheckCapacity rejects requests over the space's attendee ceiling. The
// error message carries both values so the caller can surface it directly.
func CheckCapacity(space *entity.Space, attendees int) *errors.AppError {
	if attendees > space.Capacity {
		return errors.NewAppError(errors.ErrConflict,
			fmt.Sprintf("Space capacity is %d, requested %d", space.Capacity, attendees), nil)
	}
	return nil
}

// CheckBlocks decides whether a window is bookable against a space's
// availability blocks. Policy: a space with no explicit blocks at all is
// open by default. With blocks present, the window must intersect at
// least one non-blocked block and must not intersect any blocked block.
func CheckBlocks(blocks []entity.AvailabilityBlock, start, end time.Time) *errors.AppError {
	if len(blocks) == 0 {
		return nil
	}

	hasOpenBlock := false
	intersectsOpen := false
	for _, block := range blocks {
		if block.IsBlocked {
			if Overlaps(start, end, block.StartAt, block.EndAt) {
				return errors.NewAppError(errors.ErrConflict,
					fmt.Sprintf("requested window overlaps a blocked period %s to %s",
						block.StartAt.Format(time.RFC3339), block.EndAt.Format(time.RFC3339)), nil)
			}
			continue
		}
		hasOpenBlock = true
		if Overlaps(start, end, block.StartAt, block.EndAt) {
			intersectsOpen = true
		}
	}

	if hasOpenBlock && !intersectsOpen {
		return errors.NewAppError(errors.ErrConflict,
			"requested window falls outside the space's available periods", nil)
	}

	return nil
}

// ValidateWindow rejects malformed candidate windows before any overlap
// logic runs.
func ValidateWindow(start, end time.Time) *errors.AppError {
	if !start.Before(end) {
		return errors.NewAppError(errors.ErrInvalidInput, "window start must be before end", nil)
	}
	return nil
}
