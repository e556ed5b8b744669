package models

import "time"

// PlanType is the access tier associated with a token. It selects which
// dataset an export request reads and which date-bound policy applies.
type PlanType string

const (
	PlanBulk         PlanType = "bulk"
	PlanSubscription PlanType = "subscription"
	PlanTrial        PlanType = "trial"
)

// Valid reports whether p is a known plan type.
func (p PlanType) Valid() bool {
	switch p {
	case PlanBulk, PlanSubscription, PlanTrial:
		return true
	}
	return false
}

// Token is an opaque access credential for the export API.
type Token struct {
	ID        int64
	Token     string
	PlanType  PlanType
	IsActive  bool
	ExpiresAt *time.Time
	UserName  *string
	UserEmail *string
	CreatedAt time.Time
}

// Usable reports whether the token grants access at the given time.
func (t *Token) Usable(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}
