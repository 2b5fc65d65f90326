package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"consult-platform/internal/catalog"
	"consult-platform/internal/ledger"
	"consult-platform/internal/video"
)

type testEnv struct {
	svc      *Service
	coins    *ledger.Service
	coinsDB  *ledger.MemoryStore
	sessions *MemoryStore
	listings *catalog.MemoryRepo
	rooms    *video.MemoryProvider
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	coinsDB := ledger.NewMemoryStore()
	coins := ledger.NewService(coinsDB)
	sessions := NewMemoryStore()
	listings := catalog.NewMemoryRepo()
	rooms := video.NewMemoryProvider()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(sessions, coins, listings, rooms, cfg, log)
	t.Cleanup(svc.Close)
	return &testEnv{svc: svc, coins: coins, coinsDB: coinsDB, sessions: sessions, listings: listings, rooms: rooms}
}

func (e *testEnv) seed(t *testing.T, memberCoins int64, hourlyRate int64) {
	t.Helper()
	ctx := context.Background()
	if memberCoins > 0 {
		if _, _, err := e.coins.Purchase(ctx, "member-1", memberCoins); err != nil {
			t.Fatalf("seed purchase: %v", err)
		}
	}
	e.listings.Put(catalog.Listing{ID: "listing-1", ProviderID: "provider-1", HourlyRate: hourlyRate, Active: true})
}

func (e *testEnv) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	bal, err := e.coins.GetBalance(context.Background(), accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Coins
}

func TestCreateReservesCoinsAndProvisionsRoom(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Session.Status != StatusPending {
		t.Fatalf("expected pending, got %s", res.Session.Status)
	}
	if res.Session.CoinsReserved != 60 {
		t.Fatalf("expected 60 coins reserved, got %d", res.Session.CoinsReserved)
	}
	if res.RemainingBalance != 40 || env.balance(t, "member-1") != 40 {
		t.Fatalf("expected balance 40, got %d", res.RemainingBalance)
	}
	if res.RoomHandle == "" || res.MemberToken == "" || res.ProviderToken == "" {
		t.Fatalf("expected room handle and tokens, got %+v", res)
	}
	if res.Session.ProviderID != "provider-1" || res.Session.HourlyRate != 60 {
		t.Fatalf("expected listing snapshot on session, got %+v", res.Session)
	}
}

func TestCreateRejectsBadDurationAndListing(t *testing.T) {
	env := newTestEnv(t, Config{MinDurationMinutes: 5, MaxDurationMinutes: 120})
	env.seed(t, 1000, 60)
	env.listings.Put(catalog.Listing{ID: "listing-off", ProviderID: "provider-1", HourlyRate: 60, Active: false})
	ctx := context.Background()

	if _, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 0}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 121}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration over max, got %v", err)
	}
	if _, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "missing", DurationMinutes: 30}); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
	if _, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-off", DurationMinutes: 30}); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound for inactive, got %v", err)
	}
	if env.balance(t, "member-1") != 1000 {
		t.Fatalf("failed creates must not touch the balance")
	}
}

func TestCreateInsufficientFundsBoundary(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 50, 51) // 60 min at 51/h needs 51 coins, one over the balance
	env.listings.Put(catalog.Listing{ID: "listing-2", ProviderID: "provider-1", HourlyRate: 50, Active: true})
	ctx := context.Background()

	if _, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if env.balance(t, "member-1") != 50 {
		t.Fatalf("failed reservation must not change the balance")
	}

	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-2", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create at exact balance: %v", err)
	}
	if res.RemainingBalance != 0 {
		t.Fatalf("expected balance drained to 0, got %d", res.RemainingBalance)
	}
}

func TestCreateRefundsWhenRoomCreationFails(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	env.rooms.FailCreate = true
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if !errors.Is(err, video.ErrRoomCreationFailed) {
		t.Fatalf("expected ErrRoomCreationFailed, got %v", err)
	}
	if env.balance(t, "member-1") != 100 {
		t.Fatalf("expected full compensation, balance %d", env.balance(t, "member-1"))
	}
	if env.coinsDB.SumDeltas("member-1") != 100 {
		t.Fatalf("ledger entries must reconcile after compensation")
	}
}

func TestRespondAuthorizationAndStateGuards(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Session.ID

	if _, err := env.svc.Respond(ctx, id, "someone-else", true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	accepted, err := env.svc.Respond(ctx, id, "provider-1", true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != StatusActive || accepted.StartTime == nil {
		t.Fatalf("expected active with start time, got %+v", accepted)
	}

	// Double-accept is a detectable race, not a silent no-op.
	if _, err := env.svc.Respond(ctx, id, "provider-1", true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestRejectRefundsFullReservation(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rejected, err := env.svc.Respond(ctx, res.Session.ID, "provider-1", false)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if env.balance(t, "member-1") != 100 {
		t.Fatalf("expected balance restored to 100, got %d", env.balance(t, "member-1"))
	}
	if env.rooms.OpenRooms() != 0 {
		t.Fatalf("expected room torn down after reject")
	}
}

func TestResponseWindowAutoRejects(t *testing.T) {
	env := newTestEnv(t, Config{ResponseWindow: 30 * time.Millisecond})
	env.seed(t, 100, 60)
	ctx := context.Background()

	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, err := env.sessions.Get(ctx, res.Session.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if sess.Status == StatusRejected {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("auto-reject did not fire, status %s", sess.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if env.balance(t, "member-1") != 100 {
		t.Fatalf("expected refund after timeout, balance %d", env.balance(t, "member-1"))
	}

	// The late explicit answer observes the terminal state.
	if _, err := env.svc.Respond(ctx, res.Session.ID, "provider-1", true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after timeout, got %v", err)
	}
}

func startActiveSession(t *testing.T, env *testEnv, minutes int) Session {
	t.Helper()
	ctx := context.Background()
	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: minutes})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sess, err := env.svc.Respond(ctx, res.Session.ID, "provider-1", true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return sess
}

func TestExtendAddsMinutesAtSnapshotRate(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60) // balance 40

	// A rate change after creation must not affect the in-flight session.
	env.listings.Put(catalog.Listing{ID: "listing-1", ProviderID: "provider-1", HourlyRate: 600, Active: true})

	out, err := env.svc.Extend(ctx, sess.ID, "member-1", 30)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if out.NewScheduledMinutes != 90 || out.CoinsUsed != 30 {
		t.Fatalf("expected 90 scheduled / 30 coins, got %+v", out)
	}
	if out.RemainingBalance != 10 || env.balance(t, "member-1") != 10 {
		t.Fatalf("expected balance 10, got %d", out.RemainingBalance)
	}

	updated, err := env.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.CoinsReserved != 90 {
		t.Fatalf("expected 90 coins reserved, got %d", updated.CoinsReserved)
	}
}

func TestExtendGuards(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 200, 60)
	ctx := context.Background()

	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Pending sessions cannot extend.
	if _, err := env.svc.Extend(ctx, res.Session.ID, "member-1", 30); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := env.svc.Respond(ctx, res.Session.ID, "provider-1", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.svc.Extend(ctx, res.Session.ID, "provider-1", 30); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := env.svc.Extend(ctx, res.Session.ID, "member-1", 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	// Insufficient funds leaves the schedule untouched.
	if _, err := env.svc.Extend(ctx, res.Session.ID, "member-1", 400); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	sess, err := env.sessions.Get(ctx, res.Session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.ScheduledMinutes != 60 || sess.CoinsReserved != 60 {
		t.Fatalf("failed extend mutated the session: %+v", sess)
	}
}

func TestConcurrentExtendsOnlyOneSucceeds(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 90, 60)
	ctx := context.Background()

	startActiveSessionID := startActiveSession(t, env, 60).ID // balance 30: covers one 30-minute extension

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Extend(ctx, startActiveSessionID, "member-1", 30)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ledger.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one successful extend, got ok=%d insufficient=%d", ok, insufficient)
	}

	sess, err := env.sessions.Get(ctx, startActiveSessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.ScheduledMinutes != 90 || sess.CoinsReserved != 90 {
		t.Fatalf("expected only the winning extension applied: %+v", sess)
	}
	if env.balance(t, "member-1") != 0 {
		t.Fatalf("expected balance 0, got %d", env.balance(t, "member-1"))
	}
}

func TestCompleteSettlesFullReservedAmount(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60)
	if _, err := env.svc.Extend(ctx, sess.ID, "member-1", 30); err != nil {
		t.Fatalf("extend: %v", err)
	}

	// Ends early: 45 actual vs 90 scheduled. No proration; the provider
	// receives everything reserved.
	done, err := env.svc.Complete(ctx, sess.ID, "member-1", CompleteRequest{ActualMinutes: 45, Rating: 5, Feedback: "great"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted || done.EndTime == nil {
		t.Fatalf("expected completed, got %+v", done)
	}
	if done.ActualMinutes != 45 {
		t.Fatalf("expected actual 45, got %d", done.ActualMinutes)
	}
	if env.balance(t, "provider-1") != 90 {
		t.Fatalf("expected provider credited 90, got %d", env.balance(t, "provider-1"))
	}
	if env.rooms.OpenRooms() != 0 {
		t.Fatalf("expected room closed after completion")
	}

	listing, _, err := env.listings.Find(ctx, "listing-1")
	if err != nil {
		t.Fatalf("find listing: %v", err)
	}
	if listing.TotalCalls != 1 || listing.ReviewCount != 1 || listing.AvgRating != 5 {
		t.Fatalf("expected listing stats updated, got %+v", listing)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60)

	first, err := env.svc.Complete(ctx, sess.ID, "provider-1", CompleteRequest{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	second, err := env.svc.Complete(ctx, sess.ID, "member-1", CompleteRequest{})
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second.Status != StatusCompleted || second.ID != first.ID {
		t.Fatalf("expected current state back, got %+v", second)
	}
	// Settled exactly once.
	if env.balance(t, "provider-1") != 60 {
		t.Fatalf("expected single settlement of 60, got %d", env.balance(t, "provider-1"))
	}
}

func TestCompleteRejectsOutsiders(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60)
	if _, err := env.svc.Complete(ctx, sess.ID, "stranger", CompleteRequest{}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestCancelRefundsAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60)

	cancelled, err := env.svc.Cancel(ctx, sess.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if env.balance(t, "member-1") != 100 {
		t.Fatalf("expected refund to 100, got %d", env.balance(t, "member-1"))
	}
	if env.balance(t, "provider-1") != 0 {
		t.Fatalf("cancel must not settle the provider")
	}

	// Second cancel is a no-op, not an error, and must not refund twice.
	again, err := env.svc.Cancel(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != StatusCancelled || env.balance(t, "member-1") != 100 {
		t.Fatalf("second cancel changed state or balance")
	}
}

func TestRateOnlyAfterCompleted(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 100, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60)

	if _, err := env.svc.Rate(ctx, sess.ID, "member-1", 4, "early"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before completion, got %v", err)
	}
	if _, err := env.svc.Complete(ctx, sess.ID, "member-1", CompleteRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.svc.Rate(ctx, sess.ID, "provider-1", 4, ""); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for provider, got %v", err)
	}
	if _, err := env.svc.Rate(ctx, sess.ID, "member-1", 6, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}

	rated, err := env.svc.Rate(ctx, sess.ID, "member-1", 4, "helpful")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.Rating != 4 || rated.Feedback != "helpful" {
		t.Fatalf("expected rating recorded, got %+v", rated)
	}
}

func TestRoomEndedEventRoutesToTerminalState(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 200, 60)
	ctx := context.Background()

	// Active session: the ended room completes and settles it.
	active := startActiveSession(t, env, 60)
	if err := env.svc.HandleRoomEnded(ctx, active.RoomHandle); err != nil {
		t.Fatalf("room ended: %v", err)
	}
	got, err := env.sessions.Get(ctx, active.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if env.balance(t, "provider-1") != 60 {
		t.Fatalf("expected settlement 60, got %d", env.balance(t, "provider-1"))
	}

	// Pending session: the ended room cancels and refunds it.
	res, err := env.svc.Create(ctx, "member-1", CreateRequest{ListingID: "listing-1", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.svc.HandleRoomEnded(ctx, res.RoomHandle); err != nil {
		t.Fatalf("room ended: %v", err)
	}
	got, err = env.sessions.Get(ctx, res.Session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if env.balance(t, "member-1") != 140 {
		t.Fatalf("expected refund back to 140, got %d", env.balance(t, "member-1"))
	}

	// Unknown rooms are ignored.
	if err := env.svc.HandleRoomEnded(ctx, "RM-unknown"); err != nil {
		t.Fatalf("unknown room must be a no-op, got %v", err)
	}
}

func TestExpiryRespectsExtendedSchedule(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 200, 60)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	env.svc.clock = func() time.Time { return now }

	sess := startActiveSession(t, env, 60)
	if _, err := env.svc.Extend(ctx, sess.ID, "member-1", 30); err != nil {
		t.Fatalf("extend: %v", err)
	}

	// A timer armed for the original deadline fires; the extension moved the
	// deadline, so the session must stay active.
	now = base.Add(61 * time.Minute)
	env.svc.expireActive(sess.ID)
	got, err := env.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusActive {
		t.Fatalf("expiry fired early despite extension, status %s", got.Status)
	}

	// Past the extended deadline the session completes and settles.
	now = base.Add(91 * time.Minute)
	env.svc.expireActive(sess.ID)
	got, err = env.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed after extended deadline, got %s", got.Status)
	}
	if got.ActualMinutes != 91 {
		t.Fatalf("expected wall-clock actual minutes 91, got %d", got.ActualMinutes)
	}
	if env.balance(t, "provider-1") != 90 {
		t.Fatalf("expected settlement of 90, got %d", env.balance(t, "provider-1"))
	}
}

func TestCheckTimeRemaining(t *testing.T) {
	env := newTestEnv(t, Config{LowBalanceWarnMinutes: 2})
	env.seed(t, 100, 60)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	env.svc.clock = func() time.Time { return now }

	sess := startActiveSession(t, env, 60)

	if _, err := env.svc.CheckTimeRemaining(ctx, sess.ID, "stranger"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	now = base.Add(30 * time.Minute)
	tr, err := env.svc.CheckTimeRemaining(ctx, sess.ID, "member-1")
	if err != nil {
		t.Fatalf("time remaining: %v", err)
	}
	if tr.RemainingMinutes != 30 || tr.LowBalance {
		t.Fatalf("expected 30 minutes left, got %+v", tr)
	}

	now = base.Add(59 * time.Minute)
	tr, err = env.svc.CheckTimeRemaining(ctx, sess.ID, "provider-1")
	if err != nil {
		t.Fatalf("time remaining: %v", err)
	}
	if tr.RemainingMinutes != 1 || !tr.LowBalance {
		t.Fatalf("expected low-balance warning, got %+v", tr)
	}
}

func TestSessionLedgerReconciliation(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seed(t, 200, 60)
	ctx := context.Background()

	sess := startActiveSession(t, env, 60)
	if _, err := env.svc.Extend(ctx, sess.ID, "member-1", 30); err != nil {
		t.Fatalf("extend: %v", err)
	}

	// While non-terminal: coinsReserved == reserves + extends - refunds.
	entries, err := env.coins.SessionEntries(ctx, sess.ID)
	if err != nil {
		t.Fatalf("session entries: %v", err)
	}
	var reserved int64
	for _, e := range entries {
		switch e.Kind {
		case ledger.EntryKindCallReserve, ledger.EntryKindCallExtend:
			reserved += -e.Coins
		case ledger.EntryKindCallRefund:
			reserved -= e.Coins
		}
	}
	got, err := env.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CoinsReserved != reserved {
		t.Fatalf("session reserved %d diverges from ledger %d", got.CoinsReserved, reserved)
	}
}
