package janitor

import (
	"context"
	"time"

	"github.com/samSKIF/ThrivioHR-sub000/internal/config"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/bulkimport"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// retentionSchedule runs the purge every night at 03:00
const retentionSchedule = "0 3 * * *"

// JanitorService purges import audit documents past the retention window
type JanitorService struct {
	auditRepo bulkimport.ImportAuditRepository
	retention time.Duration
	logger    *zap.Logger
	scheduler *cron.Cron
}

func NewJanitorService(lc fx.Lifecycle, cfg *config.Config, auditRepo bulkimport.ImportAuditRepository, logger *zap.Logger) *JanitorService {
	s := &JanitorService{
		auditRepo: auditRepo,
		retention: time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour,
		logger:    logger,
		scheduler: cron.New(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := s.scheduler.AddFunc(retentionSchedule, s.purge); err != nil {
				return err
			}
			s.scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.scheduler.Stop()
			return nil
		},
	})

	return s
}

func (s *JanitorService) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.auditRepo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge import audits", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("purged import audits",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
}
