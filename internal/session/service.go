package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"consult-platform/internal/catalog"
	"consult-platform/internal/ledger"
	"consult-platform/internal/video"

	"github.com/google/uuid"
)

// Config bounds call durations and timing behavior.
type Config struct {
	// MinDurationMinutes / MaxDurationMinutes bound the requested duration of
	// a new call and of extensions.
	MinDurationMinutes int
	MaxDurationMinutes int

	// ResponseWindow is how long a provider has to accept before the session
	// auto-rejects and the reservation refunds.
	ResponseWindow time.Duration

	// LowBalanceWarnMinutes is the remaining-time threshold at which
	// TimeRemaining flags the countdown as low.
	LowBalanceWarnMinutes int
}

func (c Config) withDefaults() Config {
	out := c
	if out.MinDurationMinutes <= 0 {
		out.MinDurationMinutes = 5
	}
	if out.MaxDurationMinutes <= 0 {
		out.MaxDurationMinutes = 480
	}
	if out.ResponseWindow <= 0 {
		out.ResponseWindow = 30 * time.Second
	}
	if out.LowBalanceWarnMinutes <= 0 {
		out.LowBalanceWarnMinutes = 2
	}
	return out
}

// Service is the call session manager: the sole writer of session state and
// the sole caller of ledger settlement operations.
//
// Transition rules live here and nowhere else. Handlers, timers, and the room
// webhook all funnel into the same guarded transitions, so duplicate or stale
// triggers fall out as ErrInvalidState or idempotent no-ops.
type Service struct {
	store    Store
	coins    *ledger.Service
	listings catalog.Lookup
	rooms    video.RoomProvider

	cfg   Config
	log   *slog.Logger
	clock func() time.Time

	locks  *keyedMutex
	timers *timerRegistry
}

func NewService(store Store, coins *ledger.Service, listings catalog.Lookup, rooms video.RoomProvider, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		coins:    coins,
		listings: listings,
		rooms:    rooms,
		cfg:      cfg.withDefaults(),
		log:      log,
		clock:    time.Now,
		locks:    newKeyedMutex(),
		timers:   newTimerRegistry(),
	}
}

// Close stops all pending session timers. For process shutdown.
func (s *Service) Close() {
	s.timers.stopAll()
}

type CreateRequest struct {
	ListingID       string `json:"listing_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CreateResult struct {
	Session          Session `json:"session"`
	RoomHandle       string  `json:"room_handle"`
	MemberToken      string  `json:"member_token"`
	ProviderToken    string  `json:"provider_token"`
	RemainingBalance int64   `json:"remaining_balance"`
}

// Create reserves the member's coins, provisions a room, and persists a
// Pending session. Each step either succeeds or leaves no partial effect:
// a room failure after the reservation refunds the coins before returning.
func (s *Service) Create(ctx context.Context, memberID string, req CreateRequest) (CreateResult, error) {
	if memberID == "" {
		return CreateResult{}, ErrNotAuthorized
	}
	if req.DurationMinutes < s.cfg.MinDurationMinutes || req.DurationMinutes > s.cfg.MaxDurationMinutes {
		return CreateResult{}, ErrInvalidDuration
	}

	listing, err := catalog.FindActive(ctx, s.listings, req.ListingID)
	if err != nil {
		if errors.Is(err, catalog.ErrListingNotFound) || errors.Is(err, catalog.ErrInvalidListing) {
			return CreateResult{}, ErrListingNotFound
		}
		return CreateResult{}, err
	}

	sessionID := uuid.NewString()
	required := catalog.RequiredCoins(listing.HourlyRate, req.DurationMinutes)

	_, bal, err := s.coins.Reserve(ctx, memberID, required, sessionID)
	if err != nil {
		return CreateResult{}, err
	}

	room, err := s.rooms.CreateRoom(ctx, sessionID)
	if err != nil {
		// Compensate: the reservation must not outlive a failed room.
		if _, _, refundErr := s.coins.Refund(ctx, memberID, required, sessionID); refundErr != nil {
			s.log.Error("compensation refund failed", "session_id", sessionID, "err", refundErr)
		}
		if errors.Is(err, video.ErrRoomCreationFailed) {
			return CreateResult{}, err
		}
		return CreateResult{}, fmt.Errorf("%w: %v", video.ErrRoomCreationFailed, err)
	}

	now := s.clock().UTC()
	sess := Session{
		ID:               sessionID,
		MemberID:         memberID,
		ProviderID:       listing.ProviderID,
		ListingID:        listing.ID,
		HourlyRate:       listing.HourlyRate,
		Status:           StatusPending,
		ScheduledMinutes: req.DurationMinutes,
		CoinsReserved:    required,
		RoomHandle:       room.Handle,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		if _, _, refundErr := s.coins.Refund(ctx, memberID, required, sessionID); refundErr != nil {
			s.log.Error("compensation refund failed", "session_id", sessionID, "err", refundErr)
		}
		s.closeRoom(sessionID, room.Handle)
		return CreateResult{}, err
	}

	memberToken, err := s.rooms.IssueAccessToken(ctx, room, memberID, video.ParticipantRoleMember)
	if err != nil {
		s.log.Error("member token issue failed", "session_id", sessionID, "err", err)
	}
	providerToken, err := s.rooms.IssueAccessToken(ctx, room, listing.ProviderID, video.ParticipantRoleProvider)
	if err != nil {
		s.log.Error("provider token issue failed", "session_id", sessionID, "err", err)
	}

	// Auto-reject if the provider never answers.
	s.timers.set(sessionID, s.cfg.ResponseWindow, func() { s.timeoutPending(sessionID) })

	s.log.Info("session created",
		"session_id", sessionID,
		"listing_id", listing.ID,
		"coins_reserved", required,
		"duration_minutes", req.DurationMinutes,
	)

	return CreateResult{
		Session:          sess,
		RoomHandle:       room.Handle,
		MemberToken:      memberToken,
		ProviderToken:    providerToken,
		RemainingBalance: bal.Coins,
	}, nil
}

// Respond records the provider's accept/reject decision on a pending session.
// Only the provider of record may respond; a second response, or a response
// racing the auto-reject timer, fails with ErrInvalidState.
func (s *Service) Respond(ctx context.Context, sessionID, providerID string, accept bool) (Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.ProviderID != providerID {
		return Session{}, ErrNotAuthorized
	}
	if sess.Status != StatusPending {
		return Session{}, ErrInvalidState
	}

	if accept {
		now := s.clock().UTC()
		sess.Status = StatusActive
		sess.StartTime = &now
		updated, err := s.store.Update(ctx, sess)
		if err != nil {
			return Session{}, err
		}
		s.armExpiry(updated)
		s.log.Info("session accepted", "session_id", sessionID)
		return updated, nil
	}

	return s.reject(ctx, sess)
}

// timeoutPending auto-rejects a session whose response window lapsed.
// Behaves identically to an explicit reject; already-answered sessions are
// left alone.
func (s *Service) timeoutPending(sessionID string) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	ctx := context.Background()
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.log.Error("response timeout load failed", "session_id", sessionID, "err", err)
		return
	}
	if sess.Status != StatusPending {
		return
	}
	if _, err := s.reject(ctx, sess); err != nil {
		s.log.Error("response timeout reject failed", "session_id", sessionID, "err", err)
	}
}

// reject transitions Pending -> Rejected and refunds the full reservation.
// Caller holds the session lock and has verified status.
func (s *Service) reject(ctx context.Context, sess Session) (Session, error) {
	sess.Status = StatusRejected
	updated, err := s.store.Update(ctx, sess)
	if err != nil {
		return Session{}, err
	}
	if _, _, err := s.coins.Refund(ctx, sess.MemberID, sess.CoinsReserved, sess.ID); err != nil {
		s.log.Error("reject refund failed", "session_id", sess.ID, "err", err)
	}
	s.timers.cancel(sess.ID)
	s.closeRoom(sess.ID, sess.RoomHandle)
	s.log.Info("session rejected", "session_id", sess.ID, "coins_refunded", sess.CoinsReserved)
	return updated, nil
}

type ExtendResult struct {
	NewScheduledMinutes int   `json:"new_scheduled_minutes"`
	CoinsUsed           int64 `json:"coins_used"`
	RemainingBalance    int64 `json:"remaining_balance"`
}

// Extend buys additional minutes for an active session at the rate captured
// when the session was created. The extension debit commits before any state
// change, so an insufficient balance leaves the schedule untouched.
func (s *Service) Extend(ctx context.Context, sessionID, memberID string, additionalMinutes int) (ExtendResult, error) {
	if additionalMinutes <= 0 || additionalMinutes > s.cfg.MaxDurationMinutes {
		return ExtendResult{}, ErrInvalidDuration
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return ExtendResult{}, err
	}
	if sess.MemberID != memberID {
		return ExtendResult{}, ErrNotAuthorized
	}
	if sess.Status != StatusActive {
		return ExtendResult{}, ErrInvalidState
	}

	additionalCoins := catalog.RequiredCoins(sess.HourlyRate, additionalMinutes)
	_, bal, err := s.coins.Extend(ctx, memberID, additionalCoins, sessionID)
	if err != nil {
		return ExtendResult{}, err
	}

	sess.ScheduledMinutes += additionalMinutes
	sess.CoinsReserved += additionalCoins
	updated, err := s.store.Update(ctx, sess)
	if err != nil {
		// The debit went through but the schedule didn't; hand the coins back.
		if _, _, refundErr := s.coins.Refund(ctx, memberID, additionalCoins, sessionID); refundErr != nil {
			s.log.Error("extend compensation refund failed", "session_id", sessionID, "err", refundErr)
		}
		return ExtendResult{}, err
	}

	// Re-arm the expiry against the new schedule so a racing expiry timer
	// cannot fire early.
	s.armExpiry(updated)

	s.log.Info("session extended",
		"session_id", sessionID,
		"additional_minutes", additionalMinutes,
		"coins_used", additionalCoins,
	)
	return ExtendResult{
		NewScheduledMinutes: updated.ScheduledMinutes,
		CoinsUsed:           additionalCoins,
		RemainingBalance:    bal.Coins,
	}, nil
}

type CompleteRequest struct {
	// ActualMinutes overrides the wall-clock duration; zero means derive it.
	ActualMinutes int    `json:"actual_minutes,omitempty"`
	Rating        int    `json:"rating,omitempty"`
	Feedback      string `json:"feedback,omitempty"`
}

// Complete drives a session to Completed and settles the full reserved amount
// to the provider. Policy: no proration on early termination; the reservation
// captured the agreed price.
//
// Either participant or the expiry timer may complete. Completing an already
// terminal session returns its current state, so duplicate teardown signals
// (timer vs. webhook vs. client) are harmless.
func (s *Service) Complete(ctx context.Context, sessionID, callerID string, req CompleteRequest) (Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.completeLocked(ctx, sessionID, callerID, req)
}

func (s *Service) completeLocked(ctx context.Context, sessionID, callerID string, req CompleteRequest) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if callerID != "" && !sess.IsParticipant(callerID) {
		return Session{}, ErrNotAuthorized
	}
	if sess.Status.Terminal() {
		return sess, nil
	}
	if req.Rating != 0 && (req.Rating < 1 || req.Rating > 5) {
		return Session{}, ErrInvalidRating
	}

	now := s.clock().UTC()
	sess.Status = StatusCompleted
	sess.EndTime = &now
	sess.ActualMinutes = req.ActualMinutes
	if sess.ActualMinutes <= 0 && sess.StartTime != nil {
		sess.ActualMinutes = ceilMinutes(now.Sub(*sess.StartTime))
	}
	if req.Rating != 0 && (callerID == "" || callerID == sess.MemberID) {
		sess.Rating = req.Rating
		sess.Feedback = req.Feedback
	}

	updated, err := s.store.Update(ctx, sess)
	if err != nil {
		return Session{}, err
	}

	// Settlement happens exactly once: the terminal-state guard above makes a
	// second Complete a read, not a transition.
	if _, _, err := s.coins.Settle(ctx, sess.ProviderID, sess.CoinsReserved, sess.ID); err != nil {
		s.log.Error("settlement failed", "session_id", sess.ID, "err", err)
		return Session{}, err
	}

	s.timers.cancel(sess.ID)
	s.closeRoom(sess.ID, sess.RoomHandle)
	if err := s.listings.RecordCompletedCall(ctx, sess.ListingID); err != nil {
		s.log.Error("listing stats update failed", "listing_id", sess.ListingID, "err", err)
	}
	if updated.Rating != 0 {
		if err := s.listings.RecordRating(ctx, sess.ListingID, updated.Rating); err != nil {
			s.log.Error("listing rating update failed", "listing_id", sess.ListingID, "err", err)
		}
	}

	s.log.Info("session completed",
		"session_id", sess.ID,
		"actual_minutes", updated.ActualMinutes,
		"coins_settled", sess.CoinsReserved,
	)
	return updated, nil
}

// Cancel is the administrative/disconnect cleanup path: any unsettled
// reservation refunds to the member. Cancelling a terminal session is a no-op.
func (s *Service) Cancel(ctx context.Context, sessionID string) (Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.cancelLocked(ctx, sessionID)
}

func (s *Service) cancelLocked(ctx context.Context, sessionID string) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Status.Terminal() {
		return sess, nil
	}

	now := s.clock().UTC()
	sess.Status = StatusCancelled
	sess.EndTime = &now
	updated, err := s.store.Update(ctx, sess)
	if err != nil {
		return Session{}, err
	}

	if sess.CoinsReserved > 0 {
		if _, _, err := s.coins.Refund(ctx, sess.MemberID, sess.CoinsReserved, sess.ID); err != nil {
			s.log.Error("cancel refund failed", "session_id", sess.ID, "err", err)
			return Session{}, err
		}
	}

	s.timers.cancel(sess.ID)
	s.closeRoom(sess.ID, sess.RoomHandle)
	s.log.Info("session cancelled", "session_id", sess.ID, "coins_refunded", sess.CoinsReserved)
	return updated, nil
}

// Rate records the member's rating once the session completed. Also valid as
// a later follow-up to a Complete that carried no rating.
func (s *Service) Rate(ctx context.Context, sessionID, memberID string, rating int, feedback string) (Session, error) {
	if rating < 1 || rating > 5 {
		return Session{}, ErrInvalidRating
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.MemberID != memberID {
		return Session{}, ErrNotAuthorized
	}
	if sess.Status != StatusCompleted {
		return Session{}, ErrInvalidState
	}

	firstRating := sess.Rating == 0
	sess.Rating = rating
	if feedback != "" {
		sess.Feedback = feedback
	}
	updated, err := s.store.Update(ctx, sess)
	if err != nil {
		return Session{}, err
	}
	if firstRating {
		if err := s.listings.RecordRating(ctx, sess.ListingID, rating); err != nil {
			s.log.Error("listing rating update failed", "listing_id", sess.ListingID, "err", err)
		}
	}
	return updated, nil
}

type TimeRemaining struct {
	SessionID        string `json:"session_id"`
	RemainingMinutes int    `json:"remaining_minutes"`
	LowBalance       bool   `json:"low_balance"`
}

// CheckTimeRemaining reports the countdown for an active session.
func (s *Service) CheckTimeRemaining(ctx context.Context, sessionID, callerID string) (TimeRemaining, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return TimeRemaining{}, err
	}
	if !sess.IsParticipant(callerID) {
		return TimeRemaining{}, ErrNotAuthorized
	}
	if sess.Status != StatusActive || sess.StartTime == nil {
		return TimeRemaining{}, ErrInvalidState
	}

	elapsed := int(s.clock().UTC().Sub(*sess.StartTime) / time.Minute)
	remaining := sess.ScheduledMinutes - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return TimeRemaining{
		SessionID:        sessionID,
		RemainingMinutes: remaining,
		LowBalance:       remaining <= s.cfg.LowBalanceWarnMinutes,
	}, nil
}

// Get returns a session visible to one of its participants.
func (s *Service) Get(ctx context.Context, sessionID, callerID string) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsParticipant(callerID) {
		return Session{}, ErrNotAuthorized
	}
	return sess, nil
}

// HandleRoomEnded routes a provider "room ended" push event into the state
// machine: an active call completes and settles, a still-pending one cancels
// and refunds. A session must never stay Active with no ledger settlement
// after its room is gone.
func (s *Service) HandleRoomEnded(ctx context.Context, roomHandle string) error {
	sess, err := s.store.GetByRoomHandle(ctx, roomHandle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	unlock := s.locks.lock(sess.ID)
	defer unlock()

	current, err := s.store.Get(ctx, sess.ID)
	if err != nil {
		return err
	}
	switch current.Status {
	case StatusActive:
		_, err = s.completeLocked(ctx, sess.ID, "", CompleteRequest{})
		return err
	case StatusPending:
		_, err = s.cancelLocked(ctx, sess.ID)
		return err
	default:
		return nil
	}
}

// armExpiry (re)schedules the hard-expiry auto-complete for an active session.
func (s *Service) armExpiry(sess Session) {
	if sess.StartTime == nil {
		return
	}
	deadline := sess.StartTime.Add(time.Duration(sess.ScheduledMinutes) * time.Minute)
	d := deadline.Sub(s.clock().UTC())
	if d < 0 {
		d = 0
	}
	id := sess.ID
	s.timers.set(id, d, func() { s.expireActive(id) })
}

// expireActive fires when the scheduled time runs out. It re-checks the
// current schedule: an extension that committed after this timer was armed
// moves the deadline, so the timer re-arms instead of completing early.
func (s *Service) expireActive(sessionID string) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	ctx := context.Background()
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.log.Error("expiry load failed", "session_id", sessionID, "err", err)
		return
	}
	if sess.Status != StatusActive || sess.StartTime == nil {
		return
	}

	deadline := sess.StartTime.Add(time.Duration(sess.ScheduledMinutes) * time.Minute)
	now := s.clock().UTC()
	if now.Before(deadline) {
		id := sess.ID
		s.timers.set(id, deadline.Sub(now), func() { s.expireActive(id) })
		return
	}

	if _, err := s.completeLocked(ctx, sessionID, "", CompleteRequest{}); err != nil {
		s.log.Error("expiry complete failed", "session_id", sessionID, "err", err)
	}
}

func (s *Service) closeRoom(sessionID, roomHandle string) {
	if roomHandle == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.rooms.CloseRoom(ctx, roomHandle); err != nil {
		// Best-effort only: the call is logically finished either way.
		s.log.Error("room close failed", "session_id", sessionID, "room_handle", roomHandle, "err", err)
	}
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}
