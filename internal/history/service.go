package history

import (
	"context"
	"errors"

	"consult-platform/internal/session"
)

var ErrInvalidPage = errors.New("history: invalid pagination")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service is the read side of call sessions: paginated history and
// per-participant aggregates. It never writes session or ledger state.
type Service struct {
	sessions session.Store
}

func NewService(sessions session.Store) *Service {
	return &Service{sessions: sessions}
}

func (s *Service) List(ctx context.Context, req ListRequest) (Page, error) {
	if req.AccountID == "" {
		return Page{}, ErrInvalidPage
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}
	if req.Page < 1 || req.PageSize < 1 || req.PageSize > maxPageSize {
		return Page{}, ErrInvalidPage
	}
	if req.Status != "" && !req.Status.Valid() {
		return Page{}, ErrInvalidPage
	}

	offset := (req.Page - 1) * req.PageSize
	items, total, err := s.sessions.ListByParticipant(ctx, req.AccountID, req.AsProvider, req.Status, req.PageSize, offset)
	if err != nil {
		return Page{}, err
	}

	totalPages := total / req.PageSize
	if total%req.PageSize != 0 {
		totalPages++
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Summary folds the participant's full history into aggregate counters.
func (s *Service) Summary(ctx context.Context, accountID string, asProvider bool) (CallsSummary, error) {
	if accountID == "" {
		return CallsSummary{}, ErrInvalidPage
	}

	out := CallsSummary{AccountID: accountID, AsProvider: asProvider}
	ratingSum := 0

	offset := 0
	for {
		items, total, err := s.sessions.ListByParticipant(ctx, accountID, asProvider, "", maxPageSize, offset)
		if err != nil {
			return CallsSummary{}, err
		}
		for _, sess := range items {
			out.TotalCalls++
			switch sess.Status {
			case session.StatusCompleted:
				out.CompletedCalls++
				out.TotalMinutes += sess.ActualMinutes
				if asProvider {
					out.CoinsEarned += sess.CoinsReserved
				} else {
					out.CoinsSpent += sess.CoinsReserved
				}
				if sess.Rating != 0 {
					out.RatedCalls++
					ratingSum += sess.Rating
				}
			case session.StatusRejected:
				out.RejectedCalls++
			case session.StatusCancelled:
				out.CancelledCalls++
			case session.StatusPending, session.StatusActive:
				out.OpenCalls++
			}
		}
		offset += len(items)
		if offset >= total || len(items) == 0 {
			break
		}
	}

	if out.CompletedCalls > 0 {
		out.AverageMinutes = out.TotalMinutes / out.CompletedCalls
	}
	if out.RatedCalls > 0 {
		out.AverageRating = float64(ratingSum) / float64(out.RatedCalls)
	}
	return out, nil
}
