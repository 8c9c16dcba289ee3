package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/pkg/jobs"
)

// NotificationEvent names a committed workflow transition.
type NotificationEvent string

const (
	NotificationSubmitted   NotificationEvent = "request.submitted"
	NotificationApproved    NotificationEvent = "request.approved"
	NotificationRejected    NotificationEvent = "request.rejected"
	NotificationScheduled   NotificationEvent = "session.scheduled"
	NotificationRescheduled NotificationEvent = "session.rescheduled"
	NotificationDismissed   NotificationEvent = "session.dismissed"
)

// Notification is the message delivered to one user.
type Notification struct {
	UserID    string            `json:"user_id"`
	Event     NotificationEvent `json:"event"`
	Course    models.Course     `json:"course"`
	SessionID string            `json:"session_id,omitempty"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier accepts notifications after a transition commits. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, notifications ...Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, ...Notification) {}

type messagePublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationConfig configures NotificationService.
type NotificationConfig struct {
	Enabled       bool
	Workers       int
	Retries       int
	ChannelPrefix string
}

// NotificationService fans notifications out to per-user Redis channels through a worker queue.
type NotificationService struct {
	publisher messagePublisher
	queue     *jobs.Queue
	cfg       NotificationConfig
	logger    *zap.Logger
}

// NewNotificationService constructs the service. Call Start before notifying.
func NewNotificationService(publisher messagePublisher, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "skillpath:notifications"
	}
	s := &NotificationService{publisher: publisher, cfg: cfg, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers when notifications are enabled.
func (s *NotificationService) Start(ctx context.Context) {
	if s.cfg.Enabled {
		s.queue.Start(ctx)
	}
}

// Stop halts delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Channel returns the pub/sub channel for a user.
func (s *NotificationService) Channel(userID string) string {
	return fmt.Sprintf("%s:%s", s.cfg.ChannelPrefix, userID)
}

// Notify enqueues one delivery job per notification.
func (s *NotificationService) Notify(ctx context.Context, notifications ...Notification) {
	for _, n := range notifications {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		if !s.cfg.Enabled {
			s.logger.Debug("notification skipped", zap.String("user_id", n.UserID), zap.String("event", string(n.Event)))
			continue
		}
		job := jobs.Job{ID: uuid.NewString(), Type: string(n.Event), Payload: n}
		if err := s.queue.TryEnqueue(job); err != nil {
			s.logger.Warn("failed to enqueue notification",
				zap.String("user_id", n.UserID),
				zap.String("event", string(n.Event)),
				zap.Error(err),
			)
		}
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		s.logger.Error("dropping malformed notification job", zap.String("job_id", job.ID))
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to encode notification", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	channel := s.Channel(n.UserID)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, channel, payload); err != nil {
			return err
		}
	}
	s.logger.Info("notification delivered",
		zap.String("channel", channel),
		zap.String("event", string(n.Event)),
		zap.String("course", n.Course.String()),
	)
	return nil
}
