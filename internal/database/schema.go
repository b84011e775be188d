package database

import (
	"context"
	"database/sql"
)

// Table definitions, applied idempotently at startup. MySQL lacks TTL
// indexes, so log retention is enforced by a periodic sweep instead of the
// schema (see the audit package).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username VARCHAR(64) NOT NULL,
		password VARCHAR(255) NOT NULL,
		nickname VARCHAR(64) NOT NULL DEFAULT '',
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		is_approved TINYINT(1) NOT NULL DEFAULT 0,
		perm_inventory TINYINT(1) NOT NULL DEFAULT 0,
		perm_calendar TINYINT(1) NOT NULL DEFAULT 0,
		perm_attendance TINYINT(1) NOT NULL DEFAULT 0,
		perm_logs TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS items (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(128) NOT NULL,
		size VARCHAR(64) NOT NULL DEFAULT '-',
		length VARCHAR(64) NOT NULL DEFAULT '-',
		quantity DECIMAL(12,1) NOT NULL DEFAULT 0.0,
		category VARCHAR(64) NOT NULL DEFAULT '기타',
		alert_enabled TINYINT(1) NOT NULL DEFAULT 1,
		alert_threshold DECIMAL(12,1) NOT NULL DEFAULT 10.0,
		last_updated_by VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_items_identity (name, size, length),
		KEY ix_items_category (category)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		title VARCHAR(255) NOT NULL DEFAULT '',
		start DATETIME NOT NULL,
		all_day TINYINT(1) NOT NULL DEFAULT 1,
		type VARCHAR(16) NOT NULL,
		created_by VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY ix_events_start_type (start, type)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS event_items (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		event_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(128) NOT NULL,
		size VARCHAR(64) NOT NULL DEFAULT '-',
		length VARCHAR(64) NOT NULL DEFAULT '-',
		quantity DECIMAL(12,1) NOT NULL,
		role VARCHAR(16) NOT NULL,
		PRIMARY KEY (id),
		KEY ix_event_items_event (event_id),
		CONSTRAINT fk_event_items_event FOREIGN KEY (event_id)
			REFERENCES events (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS attendance (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		username VARCHAR(64) NOT NULL,
		nickname VARCHAR(64) NOT NULL DEFAULT '',
		date CHAR(10) NOT NULL,
		clock_in DATETIME NOT NULL,
		clock_out DATETIME NULL,
		duration BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_attendance_user_date (user_id, date),
		KEY ix_attendance_date (date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS logs (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user VARCHAR(64) NOT NULL,
		action VARCHAR(64) NOT NULL,
		category VARCHAR(32) NOT NULL,
		target_id VARCHAR(64) NOT NULL DEFAULT '',
		details TEXT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY ix_logs_category (category),
		KEY ix_logs_timestamp (timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS options (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		type VARCHAR(32) NOT NULL,
		value VARCHAR(128) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_options_type_value (type, value)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables. Safe to run on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
