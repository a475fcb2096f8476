package model

import "time"

// Account is a registered demo user. Passwords are stored as plain text
// on purpose: this is a throwaway demo login in front of the Stage
// checkout flow, not a real credential store.
type Account struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity is the cookie-visible slice of an account.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Plan is owned by Stage; this system only reads it.
type Plan struct {
	Identifier        string      `json:"identifier"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	Draft             bool        `json:"draft"`
	MonthlyUnitAmount int64       `json:"monthlyUnitAmount"`
	YearlyUnitAmount  int64       `json:"yearlyUnitAmount"`
	Features          FeatureList `json:"features"`
}

type FeatureList struct {
	Items []Feature `json:"items"`
}

// Feature is a plan capability. A nil Limit means unbounded.
type Feature struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Limit      *int64 `json:"limit,omitempty"`
}

type PlanList struct {
	Items []Plan `json:"items"`
}

// UserPlans is Stage's view of one user: the plan they currently hold
// (empty if none) plus the catalog they can choose from.
type UserPlans struct {
	PlanIdentifier string   `json:"planIdentifier"`
	Plans          PlanList `json:"plans"`
}
