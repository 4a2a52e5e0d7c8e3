package schedule

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeWindow_RejectsInvalid(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
	}{
		{"start equals end", 540, 540},
		{"start after end", 600, 540},
		{"negative start", -10, 60},
		{"end past midnight", 1400, 1500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTimeWindow(tc.start, tc.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidWindow)
		})
	}
}

func TestOverlaps_Symmetry(t *testing.T) {
	pairs := [][2]TimeWindow{
		{MustWindow(540, 600), MustWindow(570, 630)},
		{MustWindow(540, 600), MustWindow(600, 660)},
		{MustWindow(540, 600), MustWindow(700, 760)},
		{MustWindow(540, 600), MustWindow(540, 600)},
		{MustWindow(540, 700), MustWindow(560, 580)},
	}

	for _, p := range pairs {
		assert.Equal(t, Overlaps(p[0], p[1]), Overlaps(p[1], p[0]),
			"overlaps(%s, %s) must be symmetric", p[0], p[1])
	}
}

func TestOverlaps_TouchingWindowsDoNotOverlap(t *testing.T) {
	a := MustWindow(540, 570) // 09:00-09:30
	b := MustWindow(570, 600) // 09:30-10:00

	assert.False(t, Overlaps(a, b))
	assert.False(t, Overlaps(b, a))
}

func TestGap(t *testing.T) {
	a := MustWindow(540, 570)
	b := MustWindow(575, 600)

	assert.Equal(t, 5, Gap(a, b))
	assert.Equal(t, 5, Gap(b, a))
	assert.Equal(t, 0, Gap(MustWindow(540, 570), MustWindow(570, 600)))
	assert.Negative(t, Gap(MustWindow(540, 600), MustWindow(570, 630)))
}

func TestMergeWindows(t *testing.T) {
	merged := MergeWindows([]TimeWindow{
		{Start: 700, End: 760},
		{Start: 540, End: 600},
		{Start: 580, End: 620},
		{Start: 620, End: 640}, // touching, coalesced
	})

	require.Len(t, merged, 2)
	assert.Equal(t, TimeWindow{Start: 540, End: 640}, merged[0])
	assert.Equal(t, TimeWindow{Start: 700, End: 760}, merged[1])
}

func TestWithinWorkingHours(t *testing.T) {
	hours := WorkingHours{
		time.Monday:  {Enabled: true, Window: MustWindow(540, 1020)},
		time.Tuesday: {Enabled: false, Window: MustWindow(540, 1020)},
	}

	assert.True(t, MustWindow(540, 570).WithinWorkingHours(hours, time.Monday))
	assert.True(t, MustWindow(990, 1020).WithinWorkingHours(hours, time.Monday))
	assert.False(t, MustWindow(500, 560).WithinWorkingHours(hours, time.Monday))
	assert.False(t, MustWindow(1000, 1030).WithinWorkingHours(hours, time.Monday))
	assert.False(t, MustWindow(540, 570).WithinWorkingHours(hours, time.Tuesday), "disabled day")
	assert.False(t, MustWindow(540, 570).WithinWorkingHours(hours, time.Friday), "absent day")
}

func TestAvailableSlots_SubtractsAppointmentsAndBreaks(t *testing.T) {
	hours := WorkingHours{
		time.Monday: {Enabled: true, Window: MustWindow(540, 1020)}, // 09:00-17:00
	}
	booked := []TimeWindow{MustWindow(600, 630)}      // 10:00-10:30
	breaks := []TimeWindow{MustWindow(720, 780)}      // 12:00-13:00
	blockedByAppt := TimeWindow{Start: 595, End: 635} // appointment + 5 min buffer

	slots := slices.Collect(AvailableSlots(time.Monday, hours, booked, breaks, 5, 30))
	require.NotEmpty(t, slots)

	for _, slot := range slots {
		assert.False(t, Overlaps(slot, blockedByAppt), "slot %s overlaps buffered appointment", slot)
		assert.False(t, Overlaps(slot, breaks[0]), "slot %s overlaps the break", slot)
		assert.True(t, slot.WithinWorkingHours(hours, time.Monday))
		assert.Equal(t, 30, slot.Duration())
	}

	// Chronological order.
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1].Start, slots[i].Start)
	}

	assert.Equal(t, TimeWindow{Start: 540, End: 570}, slots[0])
}

func TestAvailableSlots_DisabledDayIsEmpty(t *testing.T) {
	hours := WorkingHours{
		time.Sunday: {Enabled: false, Window: MustWindow(540, 1020)},
	}

	assert.Empty(t, slices.Collect(AvailableSlots(time.Sunday, hours, nil, nil, 0, 30)))
	assert.Empty(t, slices.Collect(AvailableSlots(time.Saturday, hours, nil, nil, 0, 30)))
}

func TestAvailableSlots_OverlappingBreaksAreMergedFirst(t *testing.T) {
	hours := WorkingHours{
		time.Monday: {Enabled: true, Window: MustWindow(540, 720)},
	}
	breaks := []TimeWindow{
		MustWindow(600, 660),
		MustWindow(630, 690), // overlaps the first break
	}

	slots := slices.Collect(AvailableSlots(time.Monday, hours, nil, breaks, 0, 30))
	want := []TimeWindow{
		{Start: 540, End: 570},
		{Start: 570, End: 600},
		{Start: 690, End: 720},
	}
	assert.Equal(t, want, slots)
}

func TestAvailableSlots_IsRestartable(t *testing.T) {
	hours := WorkingHours{
		time.Monday: {Enabled: true, Window: MustWindow(540, 660)},
	}
	seq := AvailableSlots(time.Monday, hours, nil, nil, 0, 30)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}
