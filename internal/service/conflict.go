package service

import (
	"strconv"
	"strings"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// parseClock converts "HH:MM" (seconds tolerated) to minutes since midnight.
func parseClock(value string) (int, bool) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) < 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}

// SlotsOverlap applies the half-open interval test: two slots conflict iff
// they share a day and start1 < end2 AND end1 > start2. Back-to-back slots
// (10:00-11:00 then 11:00-12:00) do not conflict.
func SlotsOverlap(a, b models.ScheduleSlot) bool {
	if !strings.EqualFold(a.DayOfWeek, b.DayOfWeek) {
		return false
	}
	aStart, ok1 := parseClock(a.StartTime)
	aEnd, ok2 := parseClock(a.EndTime)
	bStart, ok3 := parseClock(b.StartTime)
	bEnd, ok4 := parseClock(b.EndTime)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return aStart < bEnd && aEnd > bStart
}

// FindSlotConflict compares every requested slot against every reserved slot
// and returns the first overlapping day/time pair, or nil. The cross product
// matters: conflicts occur across unrelated courses, not only within one.
func FindSlotConflict(existing, requested []models.ScheduleSlot) *models.SlotConflict {
	for _, req := range requested {
		for _, cur := range existing {
			if SlotsOverlap(cur, req) {
				return &models.SlotConflict{
					DayOfWeek:         cur.DayOfWeek,
					ExistingStartTime: cur.StartTime,
					ExistingEndTime:   cur.EndTime,
					RequestedStart:    req.StartTime,
					RequestedEnd:      req.EndTime,
				}
			}
		}
	}
	return nil
}

// FindConflictAmong checks the requested groups against each other, so that
// two activity groups selected in the same batch cannot share a slot.
func FindConflictAmong(slots []models.GroupSlot) *models.SlotConflict {
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].AvailableCourseScheduleID == slots[j].AvailableCourseScheduleID {
				continue
			}
			if SlotsOverlap(slots[i].ScheduleSlot, slots[j].ScheduleSlot) {
				return &models.SlotConflict{
					DayOfWeek:         slots[i].DayOfWeek,
					ExistingStartTime: slots[i].StartTime,
					ExistingEndTime:   slots[i].EndTime,
					RequestedStart:    slots[j].StartTime,
					RequestedEnd:      slots[j].EndTime,
				}
			}
		}
	}
	return nil
}
