package store

import (
	"time"
)

// Subscription is a user's standing request for one category at or
// above a personal discount threshold.
type Subscription struct {
	UserID      int64
	Category    string
	MinDiscount int
	CreatedAt   time.Time
}

// Alert is a user's watch on a single product at or above a personal
// drop threshold. Target is the normalized item ID.
type Alert struct {
	UserID    int64
	Target    string
	MinDrop   int
	CreatedAt time.Time
}

// Store persists subscriptions and alerts across restarts.
type Store interface {
	// UpsertSubscription creates or replaces the user's subscription
	// for a category
	UpsertSubscription(userID int64, category string, minDiscount int) error

	// RemoveSubscription deletes a subscription, reporting whether one
	// existed
	RemoveSubscription(userID int64, category string) (bool, error)

	// SubscriptionsForUser lists a user's subscriptions by category
	SubscriptionsForUser(userID int64) ([]Subscription, error)

	// AllSubscriptions lists every subscription in deterministic order
	AllSubscriptions() ([]Subscription, error)

	// UpsertAlert creates or replaces the user's watch on a product
	// target
	UpsertAlert(userID int64, target string, minDrop int) error

	// RemoveAlert deletes an alert, reporting whether one existed
	RemoveAlert(userID int64, target string) (bool, error)

	// AlertsForUser lists a user's alerts by target
	AlertsForUser(userID int64) ([]Alert, error)

	// AllAlerts lists every alert in deterministic order
	AllAlerts() ([]Alert, error)

	// Close closes the underlying database
	Close() error
}
