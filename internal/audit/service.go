package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to members by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogAdminAction records an admin mutation such as a manual coin grant.
func (s *Service) LogAdminAction(ctx context.Context, actorUserID, actorRole, ip, message, accountID string, coins int64, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAdminAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		AccountID:   accountID,
		Coins:       coins,
		Message:     message,
		Metadata:    metadata,
	})
}

// LogCoinPurchase records a coin package top-up.
func (s *Service) LogCoinPurchase(ctx context.Context, accountID, ip string, coins int64, metadata string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeCoinPurchase,
		AccountID: accountID,
		IPAddress: ip,
		Coins:     coins,
		Message:   "coin package purchased",
		Metadata:  metadata,
	})
}

// LogSessionCancel records an administrative session cancellation.
func (s *Service) LogSessionCancel(ctx context.Context, actorUserID, actorRole, ip, sessionID string, coinsRefunded int64) error {
	return s.Append(ctx, Event{
		Type:        EventTypeSessionCancel,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		SessionID:   sessionID,
		Coins:       coinsRefunded,
		Message:     "session cancelled by admin",
	})
}
