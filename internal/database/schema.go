package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates every table the application needs.  Safe to call
// multiple times: all statements use IF NOT EXISTS.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = mysqlSchema
	case "sqlite":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", driver)
	}
	// One statement per Exec: the MySQL driver rejects multi-statement
	// strings unless multiStatements is enabled on the DSN.
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL,
		email VARCHAR(120) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS members (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		first_name VARCHAR(25) NOT NULL,
		last_name VARCHAR(25) NOT NULL,
		email VARCHAR(120) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		UNIQUE KEY uq_members_name (first_name, last_name),
		UNIQUE KEY uq_members_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS stages (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		UNIQUE KEY uq_stages_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS performers (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		phone_number VARCHAR(32) NULL,
		member_id BIGINT UNSIGNED NULL,
		UNIQUE KEY uq_performers_name (name),
		CONSTRAINT fk_performers_member FOREIGN KEY (member_id) REFERENCES members (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS performances (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		duration_min INT NOT NULL,
		scheduled_at DATETIME(6) NOT NULL,
		performer_id BIGINT UNSIGNED NOT NULL,
		stage_id BIGINT UNSIGNED NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_performances_performer (performer_id),
		KEY idx_performances_stage (stage_id),
		CONSTRAINT fk_performances_performer FOREIGN KEY (performer_id) REFERENCES performers (id) ON DELETE RESTRICT,
		CONSTRAINT fk_performances_stage FOREIGN KEY (stage_id) REFERENCES stages (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS check_ins (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		checked_at DATETIME(6) NOT NULL,
		performance_id BIGINT UNSIGNED NOT NULL,
		member_id BIGINT UNSIGNED NOT NULL,
		KEY idx_check_ins_member (member_id),
		KEY idx_check_ins_performance (performance_id),
		CONSTRAINT fk_check_ins_performance FOREIGN KEY (performance_id) REFERENCES performances (id) ON DELETE RESTRICT,
		CONSTRAINT fk_check_ins_member FOREIGN KEY (member_id) REFERENCES members (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS check_outs (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		checked_at DATETIME(6) NOT NULL,
		performance_id BIGINT UNSIGNED NULL,
		member_id BIGINT UNSIGNED NULL,
		KEY idx_check_outs_member (member_id),
		CONSTRAINT fk_check_outs_performance FOREIGN KEY (performance_id) REFERENCES performances (id) ON DELETE SET NULL,
		CONSTRAINT fk_check_outs_member FOREIGN KEY (member_id) REFERENCES members (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS boxes (
		id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		stage_id BIGINT UNSIGNED NULL,
		CONSTRAINT fk_boxes_stage FOREIGN KEY (stage_id) REFERENCES stages (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS storage_records (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		box_id BIGINT UNSIGNED NULL,
		checkin_id BIGINT UNSIGNED NOT NULL,
		time_in DATETIME(6) NOT NULL,
		time_out DATETIME(6) NULL,
		KEY idx_storage_records_box (box_id, time_out),
		KEY idx_storage_records_checkin (checkin_id),
		CONSTRAINT fk_storage_records_box FOREIGN KEY (box_id) REFERENCES boxes (id) ON DELETE SET NULL,
		CONSTRAINT fk_storage_records_checkin FOREIGN KEY (checkin_id) REFERENCES check_ins (id) ON DELETE RESTRICT,
		CONSTRAINT chk_storage_records_out CHECK (time_out IS NULL OR time_out >= time_in)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// sqliteSchema mirrors mysqlSchema.  Text keys use NOCASE so uniqueness
// matches the case-insensitive utf8mb4 collation MySQL applies.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL COLLATE NOCASE UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL COLLATE NOCASE,
		last_name TEXT NOT NULL COLLATE NOCASE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		UNIQUE (first_name, last_name)
	)`,
	`CREATE TABLE IF NOT EXISTS stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL COLLATE NOCASE UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS performers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL COLLATE NOCASE UNIQUE,
		phone_number TEXT,
		member_id INTEGER REFERENCES members (id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS performances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		duration_min INTEGER NOT NULL,
		scheduled_at DATETIME NOT NULL,
		performer_id INTEGER NOT NULL REFERENCES performers (id) ON DELETE RESTRICT,
		stage_id INTEGER REFERENCES stages (id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_performances_performer ON performances (performer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_performances_stage ON performances (stage_id)`,
	`CREATE TABLE IF NOT EXISTS check_ins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		checked_at DATETIME NOT NULL,
		performance_id INTEGER NOT NULL REFERENCES performances (id) ON DELETE RESTRICT,
		member_id INTEGER NOT NULL REFERENCES members (id) ON DELETE RESTRICT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_check_ins_member ON check_ins (member_id)`,
	`CREATE INDEX IF NOT EXISTS idx_check_ins_performance ON check_ins (performance_id)`,
	`CREATE TABLE IF NOT EXISTS check_outs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		checked_at DATETIME NOT NULL,
		performance_id INTEGER REFERENCES performances (id) ON DELETE SET NULL,
		member_id INTEGER REFERENCES members (id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_check_outs_member ON check_outs (member_id)`,
	`CREATE TABLE IF NOT EXISTS boxes (
		id INTEGER PRIMARY KEY,
		stage_id INTEGER REFERENCES stages (id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS storage_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		box_id INTEGER REFERENCES boxes (id) ON DELETE SET NULL,
		checkin_id INTEGER NOT NULL REFERENCES check_ins (id) ON DELETE RESTRICT,
		time_in DATETIME NOT NULL,
		time_out DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_storage_records_box ON storage_records (box_id, time_out)`,
	`CREATE INDEX IF NOT EXISTS idx_storage_records_checkin ON storage_records (checkin_id)`,
}
