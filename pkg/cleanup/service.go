// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/services"
)

// Service periodically enforces retention policies (§4.K):
//   - Soft-deletes sessions untouched past SessionRetentionDays
//   - Hard-deletes the transcript of sessions soft-deleted past
//     MessageRetention
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config         *config.RetentionConfig
	sessionService *services.SessionService
	messageService *services.MessageService

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(
	cfg *config.RetentionConfig,
	sessionService *services.SessionService,
	messageService *services.MessageService,
) *Service {
	return &Service{
		config:         cfg,
		sessionService: sessionService,
		messageService: messageService,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"session_retention_days", s.config.SessionRetentionDays,
		"message_retention", s.config.MessageRetention,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.softDeleteOldSessions(ctx)
	s.purgeOldMessages(ctx)
}

func (s *Service) softDeleteOldSessions(ctx context.Context) {
	count, err := s.sessionService.SoftDeleteOldSessions(ctx, s.config.SessionRetentionDays)
	if err != nil {
		slog.Error("Retention: soft-delete sessions failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: soft-deleted old sessions", "count", count)
	}
}

func (s *Service) purgeOldMessages(ctx context.Context) {
	count, err := s.messageService.PurgeMessagesForDeletedSessions(ctx, s.config.MessageRetention)
	if err != nil {
		slog.Error("Retention: message purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged messages for deleted sessions", "count", count)
	}
}
