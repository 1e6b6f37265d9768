// Package models contains shared data models used across the PixelFlow codebase.
package models

// Plan is the subscription tier of a user.
type Plan string

const (
	PlanFree   Plan = "Free"
	PlanPro    Plan = "Pro"
	PlanAgency Plan = "Agency"
)

// User is the identity attached to a session. Quota counters are read-only;
// nothing in the service decrements them.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Plan       Plan   `json:"plan"`
	QuotaUsed  int    `json:"quota_used"`
	QuotaTotal int    `json:"quota_total"`
}

// QuotaRemaining returns the unused part of the quota, never negative.
func (u User) QuotaRemaining() int {
	if r := u.QuotaTotal - u.QuotaUsed; r > 0 {
		return r
	}
	return 0
}
