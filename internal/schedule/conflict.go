package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConflictKind string

const (
	KindOverlap       ConflictKind = "overlap"
	KindDoubleBooking ConflictKind = "double-booking"
	KindGapTooSmall   ConflictKind = "gap-too-small"
	KindOverbook      ConflictKind = "overbook"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// severityRank orders severities for deterministic output, highest first.
func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// overbookHighRatio is the cutoff between a medium and a high overbook
// conflict: a day at most 20% over its patient limit is medium, anything
// beyond is high.
const overbookHighRatio = 0.2

// ConflictRecord is one detected scheduling problem. It is derived data the
// caller owns; the detector never mutates the appointments it describes.
type ConflictRecord struct {
	Kind                   ConflictKind
	DoctorID               uuid.UUID
	Date                   time.Time
	InvolvedAppointmentIDs []uuid.UUID
	Severity               Severity
	Description            string
	SuggestedResolution    string
}

// ConflictReport is the result of one batch scan. Skipped lists records that
// were structurally invalid and excluded; their presence never aborts the
// scan.
type ConflictReport struct {
	Conflicts []ConflictRecord
	Skipped   []InvalidAppointment
}

// DetectConflicts scans the scheduled appointments for overlaps, duplicate
// bookings, buffer violations and overbooked days. Appointments are grouped
// per doctor per day; records with any other status are ignored.
//
// The returned conflicts are deterministically ordered by day ascending, then
// severity descending, then first involved appointment id.
func DetectConflicts(appointments []Appointment, constraints SchedulingConstraints) (*ConflictReport, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	report := &ConflictReport{}

	type groupKey struct {
		doctor uuid.UUID
		date   string
	}
	groups := make(map[groupKey][]Appointment)
	var keys []groupKey

	for _, appt := range appointments {
		if appt.Status != StatusScheduled {
			continue
		}
		if err := appt.validate(); err != nil {
			report.Skipped = append(report.Skipped, InvalidAppointment{ID: appt.ID, Reason: err.Error()})
			continue
		}
		key := groupKey{doctor: appt.DoctorID, date: DateOnly(appt.Date).Format("2006-01-02")}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], appt)
	}

	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Window.Start != group[j].Window.Start {
				return group[i].Window.Start < group[j].Window.Start
			}
			return group[i].ID.String() < group[j].ID.String()
		})

		day := DateOnly(group[0].Date)
		doctor := group[0].DoctorID

		report.Conflicts = append(report.Conflicts, overlapClusters(doctor, day, group)...)
		report.Conflicts = append(report.Conflicts, doubleBookings(doctor, day, group)...)
		report.Conflicts = append(report.Conflicts, bufferViolations(doctor, day, group, constraints.BufferMinutes)...)
		if c := overbooked(doctor, day, group, constraints.MaxPatientsPerDay); c != nil {
			report.Conflicts = append(report.Conflicts, *c)
		}
	}

	sort.SliceStable(report.Conflicts, func(i, j int) bool {
		a, b := report.Conflicts[i], report.Conflicts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if severityRank(a.Severity) != severityRank(b.Severity) {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
		return firstID(a).String() < firstID(b).String()
	})

	return report, nil
}

func firstID(c ConflictRecord) uuid.UUID {
	if len(c.InvolvedAppointmentIDs) == 0 {
		return uuid.Nil
	}
	return c.InvolvedAppointmentIDs[0]
}

// overlapClusters sweeps a start-sorted group and emits one record per
// maximal cluster of transitively overlapping appointments.
func overlapClusters(doctor uuid.UUID, day time.Time, group []Appointment) []ConflictRecord {
	var records []ConflictRecord

	var cluster []Appointment
	clusterEnd := 0

	flush := func() {
		if len(cluster) >= 2 {
			records = append(records, newOverlapRecord(doctor, day, cluster))
		}
		cluster = nil
	}

	for _, appt := range group {
		if len(cluster) > 0 && appt.Window.Start < clusterEnd {
			cluster = append(cluster, appt)
			if appt.Window.End > clusterEnd {
				clusterEnd = appt.Window.End
			}
			continue
		}
		flush()
		cluster = []Appointment{appt}
		clusterEnd = appt.Window.End
	}
	flush()

	return records
}

func newOverlapRecord(doctor uuid.UUID, day time.Time, cluster []Appointment) ConflictRecord {
	ids := make([]uuid.UUID, len(cluster))
	start, end := cluster[0].Window.Start, cluster[0].Window.End
	for i, appt := range cluster {
		ids[i] = appt.ID
		if appt.Window.Start < start {
			start = appt.Window.Start
		}
		if appt.Window.End > end {
			end = appt.Window.End
		}
	}
	sortIDs(ids)

	span := TimeWindow{Start: start, End: end}
	return ConflictRecord{
		Kind:                   KindOverlap,
		DoctorID:               doctor,
		Date:                   day,
		InvolvedAppointmentIDs: ids,
		Severity:               SeverityHigh,
		Description:            fmt.Sprintf("%d appointments overlap between %s", len(cluster), span),
		SuggestedResolution:    "Move the later appointments to the next available slots of equal duration",
	}
}

// doubleBookings finds sets of appointments sharing an identical window.
// These are reported in addition to the overlap cluster they belong to.
func doubleBookings(doctor uuid.UUID, day time.Time, group []Appointment) []ConflictRecord {
	byWindow := make(map[TimeWindow][]uuid.UUID)
	var windows []TimeWindow
	for _, appt := range group {
		if _, seen := byWindow[appt.Window]; !seen {
			windows = append(windows, appt.Window)
		}
		byWindow[appt.Window] = append(byWindow[appt.Window], appt.ID)
	}

	var records []ConflictRecord
	for _, w := range windows {
		ids := byWindow[w]
		if len(ids) < 2 {
			continue
		}
		sortIDs(ids)
		records = append(records, ConflictRecord{
			Kind:                   KindDoubleBooking,
			DoctorID:               doctor,
			Date:                   day,
			InvolvedAppointmentIDs: ids,
			Severity:               SeverityHigh,
			Description:            fmt.Sprintf("%d appointments booked for the identical window %s", len(ids), w),
			SuggestedResolution:    "Keep one appointment and reschedule the duplicates to the next available slot",
		})
	}
	return records
}

// bufferViolations flags chronologically adjacent pairs whose gap is positive
// but smaller than the required buffer. Overlapping pairs are already covered
// by the overlap records, and touching pairs (gap 0) are not buffer
// violations on their own.
func bufferViolations(doctor uuid.UUID, day time.Time, group []Appointment, bufferMinutes int) []ConflictRecord {
	if bufferMinutes <= 0 {
		return nil
	}

	var records []ConflictRecord
	for i := 1; i < len(group); i++ {
		prev, next := group[i-1], group[i]
		if Overlaps(prev.Window, next.Window) {
			continue
		}
		gap := Gap(prev.Window, next.Window)
		if gap > 0 && gap < bufferMinutes {
			ids := []uuid.UUID{prev.ID, next.ID}
			sortIDs(ids)
			records = append(records, ConflictRecord{
				Kind:                   KindGapTooSmall,
				DoctorID:               doctor,
				Date:                   day,
				InvolvedAppointmentIDs: ids,
				Severity:               SeverityMedium,
				Description:            fmt.Sprintf("only %d min between %s and %s, %d min required", gap, prev.Window, next.Window, bufferMinutes),
				SuggestedResolution:    fmt.Sprintf("Shift the later appointment %d min later to restore the buffer", bufferMinutes-gap),
			})
		}
	}
	return records
}

func overbooked(doctor uuid.UUID, day time.Time, group []Appointment, maxPerDay int) *ConflictRecord {
	if len(group) <= maxPerDay {
		return nil
	}

	severity := SeverityMedium
	over := len(group) - maxPerDay
	if float64(over)/float64(maxPerDay) > overbookHighRatio {
		severity = SeverityHigh
	}

	ids := make([]uuid.UUID, len(group))
	for i, appt := range group {
		ids[i] = appt.ID
	}
	sortIDs(ids)

	return &ConflictRecord{
		Kind:                   KindOverbook,
		DoctorID:               doctor,
		Date:                   day,
		InvolvedAppointmentIDs: ids,
		Severity:               severity,
		Description:            fmt.Sprintf("%d appointments scheduled on %s, limit is %d", len(group), day.Format("2006-01-02"), maxPerDay),
		SuggestedResolution:    "Move the lowest-priority appointments to the next day with spare capacity",
	}
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return strings.Compare(ids[i].String(), ids[j].String()) < 0
	})
}
