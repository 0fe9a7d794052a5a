package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ExpiredSessionCleaner is a session store that needs explicit expiry sweeps
type ExpiredSessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RateLimitCleaner drops rate limit records outside the window
type RateLimitCleaner interface {
	CleanupExpiredRateLimits() (int64, error)
}

// VisitCleaner prunes recorded gateway session visits
type VisitCleaner interface {
	CountActiveSince(since time.Time) (int64, error)
	DeleteInactive(olderThan time.Duration) (int64, error)
}

// VisitRetention is how long an idle session visit row is kept
const VisitRetention = 30 * 24 * time.Hour

// AuditRetention is how long audit rows are kept
const AuditRetention = 90 * 24 * time.Hour

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	logger     *logrus.Logger
	sessions   ExpiredSessionCleaner
	rateLimits RateLimitCleaner
	audit      *AuditService
	visits     VisitCleaner
}

// NewCronService creates a new CronService. Any of the cleaners may be nil.
func NewCronService(sessions ExpiredSessionCleaner, rateLimits RateLimitCleaner, audit *AuditService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger,
		sessions:   sessions,
		rateLimits: rateLimits,
		audit:      audit,
	}
}

// WithVisitCleaner adds the daily visit cleanup job
func (s *CronService) WithVisitCleaner(visits VisitCleaner) *CronService {
	s.visits = visits
	return s
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	// second minute hour day month weekday
	if s.sessions != nil {
		if _, err := s.cron.AddFunc("0 */15 * * * *", s.cleanupSessionsJob); err != nil {
			return fmt.Errorf("failed to schedule session cleanup job: %w", err)
		}
		s.logger.Info("Scheduled: expired session cleanup (every 15 minutes)")
	}

	if s.rateLimits != nil {
		if _, err := s.cron.AddFunc("0 */10 * * * *", s.cleanupRateLimitsJob); err != nil {
			return fmt.Errorf("failed to schedule rate limit cleanup job: %w", err)
		}
		s.logger.Info("Scheduled: rate limit cleanup (every 10 minutes)")
	}

	if s.audit != nil {
		if _, err := s.cron.AddFunc("0 0 4 * * *", s.cleanupAuditLogsJob); err != nil {
			return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
		}
		s.logger.Info("Scheduled: audit log cleanup (daily at 4:00 AM)")
	}

	if s.visits != nil {
		if _, err := s.cron.AddFunc("0 30 4 * * *", s.cleanupVisitsJob); err != nil {
			return fmt.Errorf("failed to schedule visit cleanup job: %w", err)
		}
		s.logger.Info("Scheduled: session visit cleanup (daily at 4:30 AM)")
	}

	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) cleanupSessionsJob() {
	start := time.Now()
	removed, err := s.sessions.DeleteExpired(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to delete expired sessions")
		return
	}
	s.logger.WithFields(logrus.Fields{"removed": removed, "duration": time.Since(start)}).Info("[CRON] Expired sessions deleted")
}

func (s *CronService) cleanupRateLimitsJob() {
	start := time.Now()
	removed, err := s.rateLimits.CleanupExpiredRateLimits()
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to clean up rate limits")
		return
	}
	s.logger.WithFields(logrus.Fields{"removed": removed, "duration": time.Since(start)}).Info("[CRON] Rate limits cleaned up")
}

func (s *CronService) cleanupAuditLogsJob() {
	start := time.Now()
	removed, err := s.audit.CleanupOldAuditLogs(AuditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to clean up audit logs")
		return
	}
	s.logger.WithFields(logrus.Fields{"removed": removed, "duration": time.Since(start)}).Info("[CRON] Audit logs cleaned up")
}

func (s *CronService) cleanupVisitsJob() {
	removed, err := s.visits.DeleteInactive(VisitRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to delete inactive session visits")
		return
	}
	active, err := s.visits.CountActiveSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		s.logger.WithError(err).Warn("[CRON] Failed to count active sessions")
	}
	s.logger.WithFields(logrus.Fields{"removed": removed, "active_24h": active}).Info("[CRON] Inactive session visits deleted")
}

// RunCleanupNow runs every configured job immediately
func (s *CronService) RunCleanupNow() {
	if s.sessions != nil {
		s.cleanupSessionsJob()
	}
	if s.rateLimits != nil {
		s.cleanupRateLimitsJob()
	}
	if s.audit != nil {
		s.cleanupAuditLogsJob()
	}
	if s.visits != nil {
		s.cleanupVisitsJob()
	}
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
