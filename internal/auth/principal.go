package auth

import (
	"context"
	"fmt"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

type Role string

const (
	RoleOperator  Role = "operator"
	RoleSettler   Role = "settler"
	RoleRequester Role = "requester"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOperator, RoleSettler, RoleRequester:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Capability is a single permitted operation.
type Capability string

const (
	CapReserve         Capability = "reserve"
	CapViewAny         Capability = "view_any_reservation"
	CapCancelAny       Capability = "cancel_any_reservation"
	CapSettleCash      Capability = "settle_cash"
	CapManageClosures  Capability = "manage_closures"
	CapManageTemplates Capability = "manage_templates"
	CapReviewPayments  Capability = "review_payments"
)

var grants = map[Role]map[Capability]bool{
	RoleOperator: {
		CapReserve:         true,
		CapViewAny:         true,
		CapCancelAny:       true,
		CapSettleCash:      true,
		CapManageClosures:  true,
		CapManageTemplates: true,
		CapReviewPayments:  true,
	},
	RoleSettler: {
		CapViewAny:    true,
		CapSettleCash: true,
	},
	RoleRequester: {
		CapReserve: true,
	},
}

// Principal is the authenticated actor of a request. It is resolved once
// and passed explicitly to every operation that checks rights.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) Can(c Capability) bool {
	return p.ID != "" && grants[p.Role][c]
}

// Require returns domain.ErrForbidden unless p holds c.
func (p Principal) Require(c Capability) error {
	if !p.Can(c) {
		return domain.ErrForbidden
	}
	return nil
}

// Owns reports whether p is the given requester.
func (p Principal) Owns(requesterID string) bool {
	return p.ID != "" && p.ID == requesterID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
