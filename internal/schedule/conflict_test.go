package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDoctor  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testPatient = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testMonday  = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func testConstraints() SchedulingConstraints {
	return SchedulingConstraints{
		MaxPatientsPerDay:        16,
		DefaultDurationMinutes:   30,
		EmergencyDurationMinutes: 60,
		BreakWindows:             []TimeWindow{MustWindow(720, 780)},
		BufferMinutes:            10,
		MinNoticeHours:           0,
		MaxAdvanceDays:           7,
	}
}

func scheduledAppt(id byte, start, end int) Appointment {
	return Appointment{
		ID:        uuid.UUID{id},
		PatientID: testPatient,
		DoctorID:  testDoctor,
		Date:      testMonday,
		Window:    TimeWindow{Start: start, End: end},
		Priority:  PriorityNormal,
		Status:    StatusScheduled,
	}
}

func conflictsOfKind(report *ConflictReport, kind ConflictKind) []ConflictRecord {
	var out []ConflictRecord
	for _, c := range report.Conflicts {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestDetectConflicts_RejectsInvalidConstraints(t *testing.T) {
	bad := testConstraints()
	bad.MaxPatientsPerDay = 0

	_, err := DetectConflicts(nil, bad)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "maxPatientsPerDay", verr.Field)
}

func TestDetectConflicts_OverlapClusterIsSingleRecord(t *testing.T) {
	// Three appointments all inside 09:00-10:00 must yield one cluster
	// with all three ids, not three pairwise records.
	appts := []Appointment{
		scheduledAppt(1, 540, 600),
		scheduledAppt(2, 550, 590),
		scheduledAppt(3, 560, 600),
	}

	report, err := DetectConflicts(appts, testConstraints())
	require.NoError(t, err)

	overlaps := conflictsOfKind(report, KindOverlap)
	require.Len(t, overlaps, 1)
	assert.Equal(t, SeverityHigh, overlaps[0].Severity)
	assert.Len(t, overlaps[0].InvolvedAppointmentIDs, 3)
	assert.NotEmpty(t, overlaps[0].SuggestedResolution)
}

func TestDetectConflicts_TransitiveChainIsOneCluster(t *testing.T) {
	// A overlaps B, B overlaps C, but A does not overlap C. Still one
	// cluster of three.
	appts := []Appointment{
		scheduledAppt(1, 540, 580),
		scheduledAppt(2, 570, 620),
		scheduledAppt(3, 610, 650),
	}

	report, err := DetectConflicts(appts, testConstraints())
	require.NoError(t, err)

	overlaps := conflictsOfKind(report, KindOverlap)
	require.Len(t, overlaps, 1)
	assert.Len(t, overlaps[0].InvolvedAppointmentIDs, 3)
}

func TestDetectConflicts_DoubleBookingIsAdditive(t *testing.T) {
	appts := []Appointment{
		scheduledAppt(1, 540, 570),
		scheduledAppt(2, 540, 570),
	}

	report, err := DetectConflicts(appts, testConstraints())
	require.NoError(t, err)

	overlaps := conflictsOfKind(report, KindOverlap)
	doubles := conflictsOfKind(report, KindDoubleBooking)
	require.Len(t, overlaps, 1)
	require.Len(t, doubles, 1)

	assert.Equal(t, overlaps[0].InvolvedAppointmentIDs, doubles[0].InvolvedAppointmentIDs)
	assert.Equal(t, SeverityHigh, doubles[0].Severity)
}

func TestDetectConflicts_GapThreshold(t *testing.T) {
	t.Run("gap below buffer is flagged", func(t *testing.T) {
		appts := []Appointment{
			scheduledAppt(1, 540, 570), // 09:00-09:30
			scheduledAppt(2, 575, 600), // 09:35-10:00, gap 5 < 10
		}

		report, err := DetectConflicts(appts, testConstraints())
		require.NoError(t, err)

		gaps := conflictsOfKind(report, KindGapTooSmall)
		require.Len(t, gaps, 1)
		assert.Equal(t, SeverityMedium, gaps[0].Severity)
		assert.Len(t, gaps[0].InvolvedAppointmentIDs, 2)
	})

	t.Run("gap at or above buffer is fine", func(t *testing.T) {
		appts := []Appointment{
			scheduledAppt(1, 540, 570), // 09:00-09:30
			scheduledAppt(2, 585, 600), // 09:45-10:00, gap 15 >= 10
		}

		report, err := DetectConflicts(appts, testConstraints())
		require.NoError(t, err)
		assert.Empty(t, conflictsOfKind(report, KindGapTooSmall))
	})

	t.Run("gap equal to buffer is fine", func(t *testing.T) {
		appts := []Appointment{
			scheduledAppt(1, 540, 570),
			scheduledAppt(2, 580, 610), // gap exactly 10
		}

		report, err := DetectConflicts(appts, testConstraints())
		require.NoError(t, err)
		assert.Empty(t, conflictsOfKind(report, KindGapTooSmall))
	})
}

func TestDetectConflicts_OverbookSeverityThreshold(t *testing.T) {
	constraints := testConstraints()
	constraints.MaxPatientsPerDay = 10

	build := func(n int) []Appointment {
		appts := make([]Appointment, 0, n)
		for i := 0; i < n; i++ {
			start := 540 + i*40
			appts = append(appts, scheduledAppt(byte(i+1), start, start+30))
		}
		return appts
	}

	t.Run("at most 20 percent over is medium", func(t *testing.T) {
		report, err := DetectConflicts(build(12), constraints) // 2 over 10 = 20%
		require.NoError(t, err)

		over := conflictsOfKind(report, KindOverbook)
		require.Len(t, over, 1)
		assert.Equal(t, SeverityMedium, over[0].Severity)
		assert.Len(t, over[0].InvolvedAppointmentIDs, 12)
	})

	t.Run("beyond 20 percent is high", func(t *testing.T) {
		report, err := DetectConflicts(build(13), constraints) // 3 over 10 = 30%
		require.NoError(t, err)

		over := conflictsOfKind(report, KindOverbook)
		require.Len(t, over, 1)
		assert.Equal(t, SeverityHigh, over[0].Severity)
	})

	t.Run("at the limit is fine", func(t *testing.T) {
		report, err := DetectConflicts(build(10), constraints)
		require.NoError(t, err)
		assert.Empty(t, conflictsOfKind(report, KindOverbook))
	})
}

func TestDetectConflicts_IgnoresNonScheduled(t *testing.T) {
	cancelled := scheduledAppt(1, 540, 600)
	cancelled.Status = StatusCancelled
	completed := scheduledAppt(2, 540, 600)
	completed.Status = StatusCompleted

	report, err := DetectConflicts([]Appointment{cancelled, completed, scheduledAppt(3, 540, 600)}, testConstraints())
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
}

func TestDetectConflicts_SkipsInvalidRecordsAndKeepsScanning(t *testing.T) {
	bad := scheduledAppt(9, 600, 540) // start >= end
	noDate := scheduledAppt(8, 540, 570)
	noDate.Date = time.Time{}

	appts := []Appointment{
		bad,
		noDate,
		scheduledAppt(1, 540, 570),
		scheduledAppt(2, 540, 570), // conflicts with the record above
	}

	report, err := DetectConflicts(appts, testConstraints())
	require.NoError(t, err)

	require.Len(t, report.Skipped, 2)
	skippedIDs := []uuid.UUID{report.Skipped[0].ID, report.Skipped[1].ID}
	assert.Contains(t, skippedIDs, bad.ID)
	assert.Contains(t, skippedIDs, noDate.ID)

	// The bad records must not hide the real conflict.
	assert.Len(t, conflictsOfKind(report, KindDoubleBooking), 1)
}

func TestDetectConflicts_DeterministicOrder(t *testing.T) {
	tuesday := testMonday.AddDate(0, 0, 1)

	mondayGap := []Appointment{
		scheduledAppt(1, 540, 570),
		scheduledAppt(2, 575, 600), // gap-too-small, medium
	}
	tuesdayOverlap := scheduledAppt(3, 540, 600)
	tuesdayOverlap.Date = tuesday
	tuesdayOverlap2 := scheduledAppt(4, 550, 590)
	tuesdayOverlap2.Date = tuesday

	appts := append(mondayGap, tuesdayOverlap, tuesdayOverlap2)

	report, err := DetectConflicts(appts, testConstraints())
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 2)

	// Day ascending beats severity: Monday's medium conflict first.
	assert.Equal(t, KindGapTooSmall, report.Conflicts[0].Kind)
	assert.Equal(t, KindOverlap, report.Conflicts[1].Kind)

	// Severity descending within one day.
	sameDay := []Appointment{
		scheduledAppt(1, 540, 570),
		scheduledAppt(2, 540, 570), // overlap + double-booking, high
		scheduledAppt(3, 575, 600), // too close to the 09:00-09:30 pair
	}
	report, err = DetectConflicts(sameDay, testConstraints())
	require.NoError(t, err)
	require.NotEmpty(t, report.Conflicts)

	for i := 1; i < len(report.Conflicts); i++ {
		assert.LessOrEqual(t,
			severityRank(report.Conflicts[i-1].Severity),
			severityRank(report.Conflicts[i].Severity))
	}
}

func TestDetectConflicts_SeparateDoctorsDoNotConflict(t *testing.T) {
	other := scheduledAppt(2, 540, 600)
	other.DoctorID = uuid.MustParse("33333333-3333-3333-3333-333333333333")

	report, err := DetectConflicts([]Appointment{scheduledAppt(1, 540, 600), other}, testConstraints())
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
}
