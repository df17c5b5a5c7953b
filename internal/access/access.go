// Package access decides who may use the bot: static admins, users an admin
// allowed, users waiting for review and everyone else.
package access

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/logobot/internal/apperr"
)

// Status is the outcome of a gate check.
type Status int

const (
	StatusDenied Status = iota
	StatusPending
	StatusAllowed
	StatusAdmin
)

func (s Status) String() string {
	switch s {
	case StatusAdmin:
		return "admin"
	case StatusAllowed:
		return "allowed"
	case StatusPending:
		return "pending"
	default:
		return "denied"
	}
}

// Permitted reports whether features may run for this status.
func (s Status) Permitted() bool {
	return s == StatusAdmin || s == StatusAllowed
}

// Prompt tells a denied user what to do next.
type Prompt int

const (
	PromptNone Prompt = iota
	PromptSubscribe
	PromptRequestAccess
)

// Decision is the result of CheckAccess.
type Decision struct {
	Status Status
	Prompt Prompt
}

// Applicant identifies a platform user.
type Applicant struct {
	UserID      int64
	Handle      string
	DisplayName string
}

// Label renders the applicant for admin messages.
func (a Applicant) Label() string {
	switch {
	case a.DisplayName != "" && a.Handle != "":
		return a.DisplayName + " (@" + a.Handle + ")"
	case a.Handle != "":
		return "@" + a.Handle
	case a.DisplayName != "":
		return a.DisplayName
	}
	return "id " + strconv.FormatInt(a.UserID, 10)
}

// PendingRequest is a request awaiting an admin decision.
type PendingRequest struct {
	Applicant
	RequestedAt time.Time
}

// AllowedUser is a user granted access.
type AllowedUser struct {
	Applicant
	GrantedAt time.Time
}

var (
	ErrNotPending     = apperr.New(apperr.CodeNotFound, "no pending request for this user")
	ErrNotAllowed     = apperr.New(apperr.CodeNotFound, "user is not in the allowed list")
	ErrAdminImmune    = apperr.New(apperr.CodeForbidden, "admins cannot be revoked")
	ErrAlreadyAllowed = apperr.New(apperr.CodeConflict, "user already has access")
	ErrInvalidHandle  = apperr.New(apperr.CodeUsage, "handle must be 5-32 letters, digits or underscores")
)

// Store persists the access tables. Every method is a single transaction.
type Store interface {
	IsAllowed(ctx context.Context, userID int64) (bool, error)
	// ClaimHandle promotes a to AllowedUser when its handle was pre-authorized
	// and not yet claimed, then marks the entry claimed. It reports whether a
	// claim happened.
	ClaimHandle(ctx context.Context, a Applicant, at time.Time) (bool, error)
	HasPending(ctx context.Context, userID int64) (bool, error)
	// CreatePending inserts req unless one exists for the user and reports whether it inserted.
	CreatePending(ctx context.Context, req PendingRequest) (bool, error)
	// Approve moves a pending request to the allowed list. It returns ErrNotPending when there is none.
	Approve(ctx context.Context, userID int64, at time.Time) (PendingRequest, error)
	// Grant upserts an allowed user and drops any pending request for it.
	Grant(ctx context.Context, u AllowedUser) error
	AddHandle(ctx context.Context, handle string, at time.Time) error
	DeletePending(ctx context.Context, userID int64) (bool, error)
	DeleteAllowed(ctx context.Context, userID int64) (bool, error)
	ListPending(ctx context.Context) ([]PendingRequest, error)
	ListAllowed(ctx context.Context) ([]AllowedUser, error)
	// ListHandles returns pre-authorized handles nobody has claimed yet.
	ListHandles(ctx context.Context) ([]string, error)
}

// Membership checks the subscription channel on the platform.
type Membership interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// Notifier delivers gate events. Errors are logged by the gate and never returned.
type Notifier interface {
	AccessRequested(ctx context.Context, adminID int64, req PendingRequest) error
	AccessGranted(ctx context.Context, userID int64) error
	AccessDenied(ctx context.Context, userID int64) error
	AccessRevoked(ctx context.Context, userID int64) error
}

// Recorder receives counters. *metrics.BotMetrics satisfies it.
type Recorder interface {
	Decision(status string)
	Notification(kind string, err error)
}

var handleRe = regexp.MustCompile(`^[a-z0-9_]{5,32}$`)

// NormalizeHandle lowercases h and strips a leading @.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// ValidHandle reports whether h, after normalization, is a well-formed handle.
func ValidHandle(h string) bool {
	return handleRe.MatchString(NormalizeHandle(h))
}
