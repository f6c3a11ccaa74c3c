// Package authz decides whether a caller may perform an action within an
// organization.
package authz

//go:generate mockgen -source=authz.go -destination=mock_membership.go -package=authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/store"
)

// Action is an operation class guarded by a minimum role.
type Action string

const (
	SpendRead  Action = "SPEND_READ"
	SpendWrite Action = "SPEND_WRITE"
	OrgManage  Action = "ORG_MANAGE"
)

// MinRole returns the lowest role allowed to perform a.
// Unknown actions require ADMIN.
func (a Action) MinRole() model.Role {
	switch a {
	case SpendRead:
		return model.RoleViewer
	case SpendWrite:
		return model.RoleEditor
	default:
		return model.RoleAdmin
	}
}

var (
	// ErrUnauthenticated means the request carries no caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotMember means the caller has no membership in the organization.
	ErrNotMember = errors.New("not a member of org")
)

// ForbiddenError means the caller's role ranks below what the action needs.
type ForbiddenError struct {
	Required model.Role
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: requires %s", e.Required)
}

// Principal is an authorized caller.
type Principal struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
}

// MembershipReader looks up a user's membership in an organization.
// Implementations return store.ErrNotFound when none exists.
type MembershipReader interface {
	GetMembership(ctx context.Context, orgID, userID string) (*model.Membership, error)
}

// Gate checks memberships on every call; nothing is cached.
type Gate struct {
	members MembershipReader
}

// NewGate returns a Gate reading memberships from members.
func NewGate(members MembershipReader) *Gate {
	return &Gate{members: members}
}

// Require authorizes the caller identified in ctx for action in orgID.
func (g *Gate) Require(ctx context.Context, orgID string, action Action) (Principal, error) {
	userID, ok := UserIDFrom(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}

	m, err := g.members.GetMembership(ctx, orgID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Principal{}, ErrNotMember
	}
	if err != nil {
		return Principal{}, fmt.Errorf("loading membership: %w", err)
	}

	need := action.MinRole()
	if m.Role.Rank() < need.Rank() {
		return Principal{}, &ForbiddenError{Required: need}
	}
	return Principal{UserID: userID, Role: m.Role}, nil
}
