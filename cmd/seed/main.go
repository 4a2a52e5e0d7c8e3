package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/scheduling/internal/appointment"
	"github.com/medassist/scheduling/internal/db"
	"github.com/medassist/scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patients, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctors, patients); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

// preferredTimes maps a few specialties to their usual examination slot; the
// suggestion engine rewards slots matching this preference.
var preferredTimes = map[string]string{
	"Dermatology": "morning",
	"Cardiology":  "morning",
	"Psychiatry":  "afternoon",
}

func defaultWorkingHours() schedule.WorkingHours {
	day := schedule.DayHours{Enabled: true, Window: schedule.TimeWindow{Start: 9 * 60, End: 17 * 60}}
	return schedule.WorkingHours{
		time.Monday:    day,
		time.Tuesday:   day,
		time.Wednesday: day,
		time.Thursday:  day,
		time.Friday:    day,
	}
}

func defaultConstraints() schedule.SchedulingConstraints {
	return schedule.SchedulingConstraints{
		MaxPatientsPerDay:        16,
		DefaultDurationMinutes:   30,
		EmergencyDurationMinutes: 60,
		BreakWindows:             []schedule.TimeWindow{{Start: 12 * 60, End: 13 * 60}},
		BufferMinutes:            5,
		MinNoticeHours:           1,
		MaxAdvanceDays:           30,
	}
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		hoursJSON, err := json.Marshal(defaultWorkingHours())
		if err != nil {
			return nil, err
		}
		constraintsJSON, err := json.Marshal(defaultConstraints())
		if err != nil {
			return nil, err
		}

		var settingsJSON []byte
		if pref := preferredTimes[spec]; pref != "" {
			settingsJSON, err = json.Marshal(schedule.SpecialtySettings{
				PreferredExaminationTime: pref,
				DurationMinutes:          gofakeit.Number(30, 45),
			})
			if err != nil {
				return nil, err
			}
		}

		// roughly one doctor in ten is on leave
		status := appointment.DoctorAvailable
		if i%10 == 9 {
			status = appointment.DoctorOnLeave
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, status, working_hours, constraints, specialty_settings, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, id, name, spec, string(status), hoursJSON, constraintsJSON, settingsJSON)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 250

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			severity := gofakeit.Number(1, 10)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, condition_severity, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, severity)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedAppointments fills the coming week with visits, and plants a handful of
// overlapping and buffer-violating pairs so a fresh install has conflicts to
// surface.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctors, patients []uuid.UUID) error {
	log.Println("seeding one week of appointments")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	total := 0

	insert := func(doctorID, patientID uuid.UUID, date time.Time, w schedule.TimeWindow, priority schedule.Priority) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, doctor_id, patient_id, date, start_minute, end_minute, priority, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		`, uuid.New(), doctorID, patientID, date, w.Start, w.End, string(priority), string(schedule.StatusScheduled))
		if err == nil {
			total++
		}
		return err
	}

	randomPatient := func() uuid.UUID {
		return patients[gofakeit.Number(0, len(patients)-1)]
	}

	for _, doctorID := range doctors {
		for dayOffset := 0; dayOffset < 7; dayOffset++ {
			date := today.AddDate(0, 0, dayOffset)
			wd := date.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				continue
			}

			// clean morning visits spaced past the buffer
			start := 9 * 60
			for i := 0; i < gofakeit.Number(3, 6); i++ {
				w := schedule.TimeWindow{Start: start, End: start + 30}
				priority := schedule.PriorityNormal
				if gofakeit.Number(0, 9) == 0 {
					priority = schedule.PriorityUrgent
				}
				if err := insert(doctorID, randomPatient(), date, w, priority); err != nil {
					return err
				}
				start = w.End + 35
			}
		}
	}

	// deliberate conflicts on the first few doctors
	if len(doctors) >= 3 {
		tomorrow := nextWeekday(today.AddDate(0, 0, 1))

		// overlapping pair
		if err := insert(doctors[0], randomPatient(), tomorrow, schedule.TimeWindow{Start: 14 * 60, End: 14*60 + 30}, schedule.PriorityNormal); err != nil {
			return err
		}
		if err := insert(doctors[0], randomPatient(), tomorrow, schedule.TimeWindow{Start: 14*60 + 15, End: 14*60 + 45}, schedule.PriorityNormal); err != nil {
			return err
		}

		// exact double-booking
		shared := schedule.TimeWindow{Start: 15 * 60, End: 15*60 + 30}
		if err := insert(doctors[1], randomPatient(), tomorrow, shared, schedule.PriorityNormal); err != nil {
			return err
		}
		if err := insert(doctors[1], randomPatient(), tomorrow, shared, schedule.PriorityUrgent); err != nil {
			return err
		}

		// 2-minute gap against a 5-minute buffer
		if err := insert(doctors[2], randomPatient(), tomorrow, schedule.TimeWindow{Start: 16 * 60, End: 16*60 + 30}, schedule.PriorityNormal); err != nil {
			return err
		}
		if err := insert(doctors[2], randomPatient(), tomorrow, schedule.TimeWindow{Start: 16*60 + 32, End: 16*60 + 50}, schedule.PriorityNormal); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}

func nextWeekday(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
