package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/medassist/scheduling/internal/appointment"
	"github.com/medassist/scheduling/internal/config"
	"github.com/medassist/scheduling/internal/db"
	redisclient "github.com/medassist/scheduling/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("conflict-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running conflict worker in env=%s interval=%s scan_days=%d",
		cfg.Env, cfg.WorkerInterval, cfg.WorkerScanDays)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	svc, err := appointment.NewService(repo, locker, cfg)
	if err != nil {
		log.Fatalf("service init error: %v", err)
	}

	// Run once at startup
	runOnce(rootCtx, repo, svc, cfg.WorkerScanDays)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping conflict worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, repo, svc, cfg.WorkerScanDays)
		}
	}
}

// runOnce scans every doctor's upcoming schedule for conflicts. Findings are
// logged here; the service records them as CONFLICT_DETECTED events.
func runOnce(ctx context.Context, repo appointment.Repository, svc *appointment.Service, scanDays int) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	doctors, err := repo.ListDoctors(runCtx)
	if err != nil {
		log.Printf("conflict scan: list doctors error: %v", err)
		return
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, scanDays)

	var totalConflicts, totalSkipped int
	for _, doc := range doctors {
		report, err := svc.DetectDoctorConflicts(runCtx, doc.ID, from, to)
		if err != nil {
			log.Printf("conflict scan: doctor=%s error: %v", doc.ID, err)
			continue
		}
		totalConflicts += len(report.Conflicts)
		totalSkipped += len(report.Skipped)
		for _, c := range report.Conflicts {
			log.Printf("conflict: doctor=%s date=%s kind=%s severity=%s appointments=%d",
				doc.ID, c.Date.Format("2006-01-02"), c.Kind, c.Severity, len(c.InvolvedAppointmentIDs))
		}
	}

	log.Printf("conflict scan complete: doctors=%d conflicts=%d skipped=%d elapsed=%s",
		len(doctors), totalConflicts, totalSkipped, time.Since(start))
}
