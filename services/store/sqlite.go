package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"amznerrors/dealbot/pkg/errors"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens the database at dbPath and creates the schema
// if it does not exist yet.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.NewStorage("store.open", dbPath, err)
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY and keeps :memory: databases on one handle.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		min_discount INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, category)
	);
	CREATE TABLE IF NOT EXISTS alerts (
		user_id INTEGER NOT NULL,
		target TEXT NOT NULL,
		min_drop INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, target)
	);
	`

	if _, err := s.conn.Exec(schema); err != nil {
		return errors.NewStorage("store.init", "create schema", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// UpsertSubscription creates or replaces the user's subscription for
// a category. Re-subscribing just updates the threshold.
func (s *SQLiteStore) UpsertSubscription(userID int64, category string, minDiscount int) error {
	_, err := s.conn.Exec(
		`INSERT INTO subscriptions (user_id, category, min_discount) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, category) DO UPDATE SET min_discount = excluded.min_discount`,
		userID, category, minDiscount,
	)
	if err != nil {
		return errors.NewStorage("store.subscribe", category, err)
	}
	return nil
}

// RemoveSubscription deletes a subscription, reporting whether one
// existed
func (s *SQLiteStore) RemoveSubscription(userID int64, category string) (bool, error) {
	res, err := s.conn.Exec(
		"DELETE FROM subscriptions WHERE user_id = ? AND category = ?",
		userID, category,
	)
	if err != nil {
		return false, errors.NewStorage("store.unsubscribe", category, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewStorage("store.unsubscribe", category, err)
	}
	return n > 0, nil
}

// SubscriptionsForUser lists a user's subscriptions by category
func (s *SQLiteStore) SubscriptionsForUser(userID int64) ([]Subscription, error) {
	return s.querySubscriptions(
		"SELECT user_id, category, min_discount, created_at FROM subscriptions WHERE user_id = ? ORDER BY category",
		userID,
	)
}

// AllSubscriptions lists every subscription ordered by user and
// category so matcher passes walk them deterministically
func (s *SQLiteStore) AllSubscriptions() ([]Subscription, error) {
	return s.querySubscriptions(
		"SELECT user_id, category, min_discount, created_at FROM subscriptions ORDER BY user_id, category",
	)
}

func (s *SQLiteStore) querySubscriptions(query string, args ...interface{}) ([]Subscription, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorage("store.subscriptions", "query", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		var createdAt sql.NullTime
		if err := rows.Scan(&sub.UserID, &sub.Category, &sub.MinDiscount, &createdAt); err != nil {
			return nil, errors.NewStorage("store.subscriptions", "scan", err)
		}
		if createdAt.Valid {
			sub.CreatedAt = createdAt.Time
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("store.subscriptions", "rows", err)
	}
	return subs, nil
}

// UpsertAlert creates or replaces the user's watch on a product
// target. Re-adding just updates the drop threshold.
func (s *SQLiteStore) UpsertAlert(userID int64, target string, minDrop int) error {
	_, err := s.conn.Exec(
		`INSERT INTO alerts (user_id, target, min_drop) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, target) DO UPDATE SET min_drop = excluded.min_drop`,
		userID, target, minDrop,
	)
	if err != nil {
		return errors.NewStorage("store.alert", target, err)
	}
	return nil
}

// RemoveAlert deletes an alert, reporting whether one existed
func (s *SQLiteStore) RemoveAlert(userID int64, target string) (bool, error) {
	res, err := s.conn.Exec(
		"DELETE FROM alerts WHERE user_id = ? AND target = ?",
		userID, target,
	)
	if err != nil {
		return false, errors.NewStorage("store.unalert", target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewStorage("store.unalert", target, err)
	}
	return n > 0, nil
}

// AlertsForUser lists a user's alerts by target
func (s *SQLiteStore) AlertsForUser(userID int64) ([]Alert, error) {
	return s.queryAlerts(
		"SELECT user_id, target, min_drop, created_at FROM alerts WHERE user_id = ? ORDER BY target",
		userID,
	)
}

// AllAlerts lists every alert ordered by user and target
func (s *SQLiteStore) AllAlerts() ([]Alert, error) {
	return s.queryAlerts(
		"SELECT user_id, target, min_drop, created_at FROM alerts ORDER BY user_id, target",
	)
}

func (s *SQLiteStore) queryAlerts(query string, args ...interface{}) ([]Alert, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorage("store.alerts", "query", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var createdAt sql.NullTime
		if err := rows.Scan(&a.UserID, &a.Target, &a.MinDrop, &createdAt); err != nil {
			return nil, errors.NewStorage("store.alerts", "scan", err)
		}
		if createdAt.Valid {
			a.CreatedAt = createdAt.Time
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("store.alerts", "rows", err)
	}
	return alerts, nil
}
