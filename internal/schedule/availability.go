package schedule

import (
	"iter"
	"time"
)

// AvailableSlots enumerates every bookable slot of slotDuration minutes on
// one weekday, after subtracting existing appointments (each expanded by
// bufferMinutes on both sides) and break windows from the working window.
//
// The result is a lazy, restartable sequence: nothing is computed until the
// sequence is ranged over, and it can be ranged over any number of times.
// A disabled day yields an empty sequence.
func AvailableSlots(
	day time.Weekday,
	hours WorkingHours,
	booked []TimeWindow,
	breaks []TimeWindow,
	bufferMinutes int,
	slotDuration int,
) iter.Seq[TimeWindow] {
	return func(yield func(TimeWindow) bool) {
		if slotDuration < 1 {
			return
		}
		work, ok := hours.Window(day)
		if !ok {
			return
		}

		blocked := make([]TimeWindow, 0, len(booked)+len(breaks))
		for _, b := range booked {
			blocked = append(blocked, b.expand(bufferMinutes))
		}
		blocked = append(blocked, breaks...)
		blocked = MergeWindows(blocked)

		for _, free := range subtract(work, blocked) {
			for start := free.Start; start+slotDuration <= free.End; start += slotDuration {
				if !yield(TimeWindow{Start: start, End: start + slotDuration}) {
					return
				}
			}
		}
	}
}

// subtract removes a sorted, non-overlapping set of blocked windows from the
// working window and returns the maximal free intervals in order.
func subtract(work TimeWindow, blocked []TimeWindow) []TimeWindow {
	var free []TimeWindow
	cursor := work.Start

	for _, b := range blocked {
		if b.End <= cursor {
			continue
		}
		if b.Start >= work.End {
			break
		}
		if b.Start > cursor {
			free = append(free, TimeWindow{Start: cursor, End: min(b.Start, work.End)})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}

	if cursor < work.End {
		free = append(free, TimeWindow{Start: cursor, End: work.End})
	}

	return free
}
