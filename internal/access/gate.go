package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/internal/apperr"
)

// Options configures a Gate.
type Options struct {
	Admins     []int64
	Store      Store
	Membership Membership
	Notifier   Notifier
	Metrics    Recorder
	Now        func() time.Time
}

// Gate runs the access checks and the admin transitions around them.
type Gate struct {
	admins     map[int64]struct{}
	store      Store
	membership Membership
	notifier   Notifier
	metrics    Recorder
	now        func() time.Time
}

// NewGate builds a Gate. Membership and Notifier may be bound later with Bind
// because the platform client exists only once the bot is running.
func NewGate(opts Options) *Gate {
	g := &Gate{
		admins:     make(map[int64]struct{}, len(opts.Admins)),
		store:      opts.Store,
		membership: opts.Membership,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
	for _, id := range opts.Admins {
		g.admins[id] = struct{}{}
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.metrics == nil {
		g.metrics = nopRecorder{}
	}
	return g
}

// Bind sets the platform collaborators. It must be called before the first update is handled.
func (g *Gate) Bind(m Membership, n Notifier) {
	g.membership = m
	g.notifier = n
}

// IsAdmin reports whether id is in the static admin set.
func (g *Gate) IsAdmin(id int64) bool {
	_, ok := g.admins[id]
	return ok
}

// Admins returns the static admin ids in no particular order.
func (g *Gate) Admins() []int64 {
	out := make([]int64, 0, len(g.admins))
	for id := range g.admins {
		out = append(out, id)
	}
	return out
}

// CheckAccess classifies a. Store errors are returned; membership errors count as not subscribed.
func (g *Gate) CheckAccess(ctx context.Context, a Applicant) (Decision, error) {
	d, err := g.check(ctx, a)
	if err != nil {
		logger.SVCAccess.ErrorContext(ctx, "check failed",
			slog.String("event", "access.check"),
			slog.Int64("target_user_id", a.UserID),
			slog.String("err", err.Error()),
		)
		return Decision{}, err
	}
	g.metrics.Decision(d.Status.String())
	logger.SVCAccess.DebugContext(ctx, "checked",
		slog.String("event", "access.check"),
		slog.Int64("target_user_id", a.UserID),
		slog.String("access", d.Status.String()),
	)
	return d, nil
}

func (g *Gate) check(ctx context.Context, a Applicant) (Decision, error) {
	if g.IsAdmin(a.UserID) {
		return Decision{Status: StatusAdmin}, nil
	}
	if ValidHandle(a.Handle) {
		claimed, err := g.store.ClaimHandle(ctx, Applicant{
			UserID:      a.UserID,
			Handle:      NormalizeHandle(a.Handle),
			DisplayName: a.DisplayName,
		}, g.now())
		if err != nil {
			return Decision{}, err
		}
		if claimed {
			logger.SVCAccess.InfoContext(ctx, "handle claimed",
				slog.String("event", "access.claim"),
				slog.Int64("target_user_id", a.UserID),
				slog.String("handle", NormalizeHandle(a.Handle)),
			)
			return Decision{Status: StatusAllowed}, nil
		}
	}
	allowed, err := g.store.IsAllowed(ctx, a.UserID)
	if err != nil {
		return Decision{}, err
	}
	if allowed {
		return Decision{Status: StatusAllowed}, nil
	}
	if !g.subscribed(ctx, a.UserID) {
		return Decision{Status: StatusDenied, Prompt: PromptSubscribe}, nil
	}
	pending, err := g.store.HasPending(ctx, a.UserID)
	if err != nil {
		return Decision{}, err
	}
	if pending {
		return Decision{Status: StatusPending}, nil
	}
	return Decision{Status: StatusDenied, Prompt: PromptRequestAccess}, nil
}

func (g *Gate) subscribed(ctx context.Context, userID int64) bool {
	if g.membership == nil {
		return false
	}
	ok, err := g.membership.IsMember(ctx, userID)
	if err != nil {
		logger.SVCAccess.WarnContext(ctx, "membership check failed",
			slog.String("event", "access.membership"),
			slog.Int64("target_user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return ok
}

// RequestAccess files a pending request for a and notifies every admin.
// created is false when a request already existed.
func (g *Gate) RequestAccess(ctx context.Context, a Applicant) (bool, error) {
	if g.IsAdmin(a.UserID) {
		return false, ErrAlreadyAllowed
	}
	allowed, err := g.store.IsAllowed(ctx, a.UserID)
	if err != nil {
		return false, err
	}
	if allowed {
		return false, ErrAlreadyAllowed
	}

	req := PendingRequest{Applicant: a, RequestedAt: g.now()}
	created, err := g.store.CreatePending(ctx, req)
	if err != nil {
		return false, err
	}
	logger.SVCAccess.InfoContext(ctx, "access requested",
		slog.String("event", "access.request"),
		slog.Int64("target_user_id", a.UserID),
		slog.Bool("created", created),
	)
	if !created {
		return false, nil
	}
	for id := range g.admins {
		g.notify(ctx, "request", id, func() error {
			return g.notifier.AccessRequested(ctx, id, req)
		})
	}
	return true, nil
}

// Approve moves userID from pending to allowed and tells the user.
func (g *Gate) Approve(ctx context.Context, userID int64) (PendingRequest, error) {
	req, err := g.store.Approve(ctx, userID, g.now())
	if err != nil {
		return PendingRequest{}, err
	}
	g.audit(ctx, "access.approve", userID)
	g.notify(ctx, "granted", userID, func() error { return g.notifier.AccessGranted(ctx, userID) })
	return req, nil
}

// Deny drops the pending request of userID. No denial is recorded.
func (g *Gate) Deny(ctx context.Context, userID int64) error {
	deleted, err := g.store.DeletePending(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotPending
	}
	g.audit(ctx, "access.deny", userID)
	g.notify(ctx, "denied", userID, func() error { return g.notifier.AccessDenied(ctx, userID) })
	return nil
}

// Revoke removes userID from the allowed list. Admins cannot be revoked.
func (g *Gate) Revoke(ctx context.Context, userID int64) error {
	if g.IsAdmin(userID) {
		return ErrAdminImmune
	}
	deleted, err := g.store.DeleteAllowed(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotAllowed
	}
	g.audit(ctx, "access.revoke", userID)
	g.notify(ctx, "revoked", userID, func() error { return g.notifier.AccessRevoked(ctx, userID) })
	return nil
}

// Grant allows a directly, replacing any pending request.
func (g *Gate) Grant(ctx context.Context, a Applicant) error {
	if a.UserID <= 0 {
		return apperr.Usagef("user id must be positive")
	}
	if g.IsAdmin(a.UserID) {
		return ErrAlreadyAllowed
	}
	a.Handle = NormalizeHandle(a.Handle)
	if err := g.store.Grant(ctx, AllowedUser{Applicant: a, GrantedAt: g.now()}); err != nil {
		return err
	}
	g.audit(ctx, "access.grant", a.UserID)
	g.notify(ctx, "granted", a.UserID, func() error { return g.notifier.AccessGranted(ctx, a.UserID) })
	return nil
}

// GrantHandle pre-authorizes a handle. The first user presenting it is promoted on their next check.
func (g *Gate) GrantHandle(ctx context.Context, handle string) (string, error) {
	handle = NormalizeHandle(handle)
	if !handleRe.MatchString(handle) {
		return "", ErrInvalidHandle
	}
	if err := g.store.AddHandle(ctx, handle, g.now()); err != nil {
		return "", err
	}
	logger.SVCAccess.InfoContext(ctx, "handle granted",
		slog.String("event", "access.grant_handle"),
		slog.String("handle", handle),
	)
	return handle, nil
}

// BulkResult counts a bulk run. Skipped requests vanished between listing and processing.
type BulkResult struct {
	Processed int
	Skipped   int
}

// ApproveAll approves every currently pending request.
func (g *Gate) ApproveAll(ctx context.Context) (BulkResult, error) {
	return g.bulk(ctx, func(id int64) error {
		_, err := g.Approve(ctx, id)
		return err
	})
}

// DenyAll denies every currently pending request.
func (g *Gate) DenyAll(ctx context.Context) (BulkResult, error) {
	return g.bulk(ctx, func(id int64) error { return g.Deny(ctx, id) })
}

func (g *Gate) bulk(ctx context.Context, apply func(int64) error) (BulkResult, error) {
	var res BulkResult
	pending, err := g.store.ListPending(ctx)
	if err != nil {
		return res, err
	}
	for _, req := range pending {
		switch err := apply(req.UserID); {
		case err == nil:
			res.Processed++
		case errors.Is(err, ErrNotPending):
			res.Skipped++
		default:
			return res, err
		}
	}
	return res, nil
}

// Pending lists open requests, oldest first.
func (g *Gate) Pending(ctx context.Context) ([]PendingRequest, error) {
	return g.store.ListPending(ctx)
}

// Allowed lists users with explicit access.
func (g *Gate) Allowed(ctx context.Context) ([]AllowedUser, error) {
	return g.store.ListAllowed(ctx)
}

// Handles lists pre-authorized handles still waiting for their owner.
func (g *Gate) Handles(ctx context.Context) ([]string, error) {
	return g.store.ListHandles(ctx)
}

func (g *Gate) audit(ctx context.Context, event string, userID int64) {
	logger.SVCAccess.InfoContext(ctx, "access changed",
		slog.String("event", event),
		slog.Int64("user_id", logger.UserIDFrom(ctx)),
		slog.Int64("target_user_id", userID),
	)
}

func (g *Gate) notify(ctx context.Context, kind string, to int64, send func() error) {
	var err error
	if g.notifier == nil {
		err = errors.New("notifier not bound")
	} else {
		err = send()
	}
	g.metrics.Notification(kind, err)
	if err != nil {
		logger.SVCAccess.WarnContext(ctx, "notification skipped",
			slog.String("event", "access.notify"),
			slog.String("kind", kind),
			slog.Int64("target_user_id", to),
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
		)
	}
}

type nopRecorder struct{}

func (nopRecorder) Decision(string)            {}
func (nopRecorder) Notification(string, error) {}
