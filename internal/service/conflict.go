package service

import (
	"context"
	"fmt"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictChecker detects overlapping slots on a tutor's schedule.
type ConflictChecker struct {
	store Store
}

func NewConflictChecker(store Store) *ConflictChecker {
	return &ConflictChecker{store: store}
}

// FindOverlaps returns the tutor's active slots overlapping [start, end).
func (c *ConflictChecker) FindOverlaps(ctx context.Context, tutorID int64, start, end time.Time) ([]*model.AvailabilitySlot, error) {
	return c.store.ListActiveSlotsOverlapping(ctx, tutorID, start, end)
}

// CheckAgainstSchedule rejects the candidate interval when it overlaps an
// already persisted active slot of the tutor. Slots owned by
// excludeSessionID are ignored, for slot replacement where the current set
// dies in the same transaction; pass 0 to exclude nothing. The first
// conflicting slot is surfaced in the error.
func (c *ConflictChecker) CheckAgainstSchedule(ctx context.Context, tutorID int64, start, end time.Time, excludeSessionID int64) error {
	overlapping, err := c.FindOverlaps(ctx, tutorID, start, end)
	if err != nil {
		return fmt.Errorf("find overlapping slots: %w", err)
	}

	for _, slot := range overlapping {
		if excludeSessionID != 0 && slot.SessionID == excludeSessionID {
			continue
		}
		return &ConflictError{
			Reason: fmt.Sprintf(
				"tutor %d already has slot %d scheduled from %s to %s",
				tutorID, slot.ID,
				slot.StartsAt.Format(time.RFC3339), slot.EndsAt.Format(time.RFC3339),
			),
			ConflictingSlotID: slot.ID,
		}
	}

	return nil
}

// CheckBatch rejects candidate slots that overlap each other. Candidates
// submitted together must obey the same rule as persisted slots.
func (c *ConflictChecker) CheckBatch(specs []SlotSpec) error {
	for i := 0; i < len(specs); i++ {
		for j := i + 1; j < len(specs); j++ {
			if Overlaps(specs[i].StartsAt, specs[i].EndsAt, specs[j].StartsAt, specs[j].EndsAt) {
				return conflictf(
					"candidate slot %d (%s-%s) overlaps candidate slot %d (%s-%s)",
					j+1, specs[j].StartsAt.Format(time.RFC3339), specs[j].EndsAt.Format(time.RFC3339),
					i+1, specs[i].StartsAt.Format(time.RFC3339), specs[i].EndsAt.Format(time.RFC3339),
				)
			}
		}
	}

	return nil
}
