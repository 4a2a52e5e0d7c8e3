package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const minutesPerDay = 24 * 60

var (
	ErrInvalidWindow = errors.New("invalid time window")
)

// TimeWindow is a half-open interval [Start, End) on a single calendar day,
// expressed in minutes since midnight. A window never crosses midnight.
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewTimeWindow builds a TimeWindow and rejects windows with start >= end or
// bounds outside the day.
func NewTimeWindow(start, end int) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// MustWindow is NewTimeWindow for literals that are known to be valid.
// It panics on invalid input.
func MustWindow(start, end int) TimeWindow {
	w, err := NewTimeWindow(start, end)
	if err != nil {
		panic(err)
	}
	return w
}

func (w TimeWindow) Validate() error {
	if w.Start < 0 || w.End > minutesPerDay {
		return fmt.Errorf("%w: [%d, %d) crosses the day boundary", ErrInvalidWindow, w.Start, w.End)
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w: start %d is not before end %d", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Duration returns the window length in minutes.
func (w TimeWindow) Duration() int {
	return w.End - w.Start
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// Overlaps reports whether two windows share at least one minute. Touching
// windows (a.End == b.Start) do not overlap.
func Overlaps(a, b TimeWindow) bool {
	return a.Start < b.End && b.Start < a.End
}

// Gap returns the signed distance in minutes between the earlier window's end
// and the later window's start. It is only meaningful for non-overlapping
// pairs; an overlapping pair yields a negative value.
func Gap(a, b TimeWindow) int {
	if a.Start <= b.Start {
		return b.Start - a.End
	}
	return a.Start - b.End
}

// IntersectsAny reports whether the window overlaps any of the given windows.
func (w TimeWindow) IntersectsAny(windows []TimeWindow) bool {
	for _, other := range windows {
		if Overlaps(w, other) {
			return true
		}
	}
	return false
}

// expand grows the window by buffer minutes on both sides, clipped to the
// day boundaries.
func (w TimeWindow) expand(buffer int) TimeWindow {
	start := w.Start - buffer
	if start < 0 {
		start = 0
	}
	end := w.End + buffer
	if end > minutesPerDay {
		end = minutesPerDay
	}
	return TimeWindow{Start: start, End: end}
}

// MergeWindows returns the union of the given windows as a sorted set of
// non-overlapping windows. Touching windows are coalesced.
func MergeWindows(windows []TimeWindow) []TimeWindow {
	if len(windows) == 0 {
		return nil
	}

	sorted := make([]TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []TimeWindow{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}

	return merged
}

// DateOnly truncates a timestamp to midnight of its calendar day, preserving
// the location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
