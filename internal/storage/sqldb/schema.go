package sqldb

import "fmt"

// Schema creation. Every statement is CREATE ... IF NOT EXISTS, so
// running it on every boot is idempotent (same approach the previous
// deployment used: no migration tool, the app owns its schema).
//
// The DDL is the one place the two drivers truly diverge:
//
//   - MySQL declares indexes inline (KEY ...) because it has no
//     CREATE INDEX IF NOT EXISTS; SQLite has no inline KEY syntax and
//     uses separate CREATE INDEX IF NOT EXISTS statements.
//   - JSON payload columns are JSON on MySQL, TEXT on SQLite.
//   - Timestamps are DATETIME on both; values are always written by the
//     application in UTC.
func (s *DB) initSchema() error {
	var stmts []string

	switch s.driver {
	case "mysql":
		stmts = mysqlSchema
	default:
		stmts = sqliteSchema
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                BIGINT AUTO_INCREMENT PRIMARY KEY,
		uuid              CHAR(36)    NOT NULL,
		nickname          VARCHAR(50) NOT NULL,
		prep_time_seconds INT         NOT NULL,
		created_at        DATETIME    NOT NULL,
		last_active       DATETIME    NOT NULL,
		is_deleted        TINYINT(1)  NOT NULL DEFAULT 0,
		UNIQUE KEY uq_users_uuid (uuid),
		KEY idx_users_last_active (last_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid  CHAR(36)     NOT NULL,
		title      VARCHAR(255) NOT NULL,
		category   VARCHAR(50)  NOT NULL,
		created_at DATETIME     NOT NULL,
		updated_at DATETIME     NOT NULL,
		KEY idx_sessions_user (user_uuid, updated_at),
		CONSTRAINT fk_sessions_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS messages (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		session_id BIGINT       NOT NULL,
		content    TEXT         NOT NULL,
		is_user    TINYINT(1)   NOT NULL,
		intent     VARCHAR(100) NULL,
		confidence DOUBLE       NULL,
		created_at DATETIME     NOT NULL,
		KEY idx_messages_session (session_id, created_at),
		CONSTRAINT fk_messages_session FOREIGN KEY (session_id)
			REFERENCES sessions (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS calendar_events (
		id             BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid      CHAR(36)     NOT NULL,
		title          VARCHAR(255) NOT NULL,
		starts_at      DATETIME     NOT NULL,
		ends_at        DATETIME     NULL,
		description    TEXT         NULL,
		location_alias VARCHAR(100) NULL,
		location_lat   DOUBLE       NULL,
		location_lng   DOUBLE       NULL,
		created_at     DATETIME     NOT NULL,
		updated_at     DATETIME     NOT NULL,
		KEY idx_events_user (user_uuid, starts_at),
		CONSTRAINT fk_events_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS alarms (
		id                BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid         CHAR(36)     NOT NULL,
		calendar_event_id BIGINT       NULL,
		alarm_time        DATETIME     NOT NULL,
		label             VARCHAR(255) NOT NULL,
		is_enabled        TINYINT(1)   NOT NULL DEFAULT 1,
		repeat_days       VARCHAR(50)  NULL,
		sound_uri         VARCHAR(255) NULL,
		created_at        DATETIME     NOT NULL,
		updated_at        DATETIME     NOT NULL,
		KEY idx_alarms_user (user_uuid, alarm_time, is_enabled),
		CONSTRAINT fk_alarms_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE,
		CONSTRAINT fk_alarms_event FOREIGN KEY (calendar_event_id)
			REFERENCES calendar_events (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS route_cache (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid  CHAR(36) NULL,
		start_lat  DOUBLE   NOT NULL,
		start_lng  DOUBLE   NOT NULL,
		end_lat    DOUBLE   NOT NULL,
		end_lng    DOUBLE   NOT NULL,
		route_data JSON     NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_routes_coords (start_lat, start_lng, end_lat, end_lng),
		KEY idx_routes_created (created_at),
		KEY idx_routes_user (user_uuid)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS favorite_places (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid  CHAR(36)     NOT NULL,
		alias      VARCHAR(100) NOT NULL,
		address    VARCHAR(255) NULL,
		latitude   DOUBLE       NOT NULL,
		longitude  DOUBLE       NOT NULL,
		created_at DATETIME     NOT NULL,
		updated_at DATETIME     NOT NULL,
		KEY idx_places_user (user_uuid),
		CONSTRAINT fk_places_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid  CHAR(36)     NOT NULL,
		pref_key   VARCHAR(100) NOT NULL,
		pref_value TEXT         NOT NULL,
		created_at DATETIME     NOT NULL,
		updated_at DATETIME     NOT NULL,
		UNIQUE KEY uq_prefs_user_key (user_uuid, pref_key),
		CONSTRAINT fk_prefs_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id                BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid         CHAR(36)     NOT NULL,
		title             VARCHAR(255) NOT NULL,
		content           TEXT         NOT NULL,
		type              VARCHAR(50)  NULL,
		related_item_id   BIGINT       NULL,
		related_item_type VARCHAR(50)  NULL,
		is_read           TINYINT(1)   NOT NULL DEFAULT 0,
		created_at        DATETIME     NOT NULL,
		KEY idx_notifications_user (user_uuid, created_at, is_read),
		CONSTRAINT fk_notifications_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS user_patterns (
		id           BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_uuid    CHAR(36)    NOT NULL,
		pattern_type VARCHAR(50) NOT NULL,
		pattern_data JSON        NOT NULL,
		frequency    INT         NOT NULL DEFAULT 1,
		last_used    DATETIME    NOT NULL,
		UNIQUE KEY uq_patterns_user_type (user_uuid, pattern_type),
		CONSTRAINT fk_patterns_user FOREIGN KEY (user_uuid)
			REFERENCES users (uuid) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS weather_cache (
		id           BIGINT AUTO_INCREMENT PRIMARY KEY,
		latitude     DOUBLE   NOT NULL,
		longitude    DOUBLE   NOT NULL,
		weather_data JSON     NOT NULL,
		expires_at   DATETIME NOT NULL,
		created_at   DATETIME NOT NULL,
		KEY idx_weather_coords (latitude, longitude, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS poi_cache (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		latitude   DOUBLE       NOT NULL,
		longitude  DOUBLE       NOT NULL,
		query      VARCHAR(255) NULL,
		category   VARCHAR(100) NULL,
		poi_data   JSON         NOT NULL,
		expires_at DATETIME     NOT NULL,
		created_at DATETIME     NOT NULL,
		KEY idx_poi_coords (latitude, longitude, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid              TEXT     NOT NULL UNIQUE,
		nickname          TEXT     NOT NULL,
		prep_time_seconds INTEGER  NOT NULL,
		created_at        DATETIME NOT NULL,
		last_active       DATETIME NOT NULL,
		is_deleted        BOOLEAN  NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_last_active ON users (last_active)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid  TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		title      TEXT     NOT NULL,
		category   TEXT     NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_uuid, updated_at)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER  NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
		content    TEXT     NOT NULL,
		is_user    BOOLEAN  NOT NULL,
		intent     TEXT     NULL,
		confidence REAL     NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS calendar_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid      TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		title          TEXT     NOT NULL,
		starts_at      DATETIME NOT NULL,
		ends_at        DATETIME NULL,
		description    TEXT     NULL,
		location_alias TEXT     NULL,
		location_lat   REAL     NULL,
		location_lng   REAL     NULL,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user ON calendar_events (user_uuid, starts_at)`,

	`CREATE TABLE IF NOT EXISTS alarms (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid         TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		calendar_event_id INTEGER  NULL REFERENCES calendar_events (id) ON DELETE SET NULL,
		alarm_time        DATETIME NOT NULL,
		label             TEXT     NOT NULL,
		is_enabled        BOOLEAN  NOT NULL DEFAULT 1,
		repeat_days       TEXT     NULL,
		sound_uri         TEXT     NULL,
		created_at        DATETIME NOT NULL,
		updated_at        DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alarms_user ON alarms (user_uuid, alarm_time, is_enabled)`,

	`CREATE TABLE IF NOT EXISTS route_cache (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid  TEXT     NULL,
		start_lat  REAL     NOT NULL,
		start_lng  REAL     NOT NULL,
		end_lat    REAL     NOT NULL,
		end_lng    REAL     NOT NULL,
		route_data TEXT     NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_coords ON route_cache (start_lat, start_lng, end_lat, end_lng)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_created ON route_cache (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_user ON route_cache (user_uuid)`,

	`CREATE TABLE IF NOT EXISTS favorite_places (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid  TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		alias      TEXT     NOT NULL,
		address    TEXT     NULL,
		latitude   REAL     NOT NULL,
		longitude  REAL     NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_places_user ON favorite_places (user_uuid)`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid  TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		pref_key   TEXT     NOT NULL,
		pref_value TEXT     NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (user_uuid, pref_key)
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid         TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		title             TEXT     NOT NULL,
		content           TEXT     NOT NULL,
		type              TEXT     NULL,
		related_item_id   INTEGER  NULL,
		related_item_type TEXT     NULL,
		is_read           BOOLEAN  NOT NULL DEFAULT 0,
		created_at        DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_uuid, created_at, is_read)`,

	`CREATE TABLE IF NOT EXISTS user_patterns (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_uuid    TEXT     NOT NULL REFERENCES users (uuid) ON DELETE CASCADE,
		pattern_type TEXT     NOT NULL,
		pattern_data TEXT     NOT NULL,
		frequency    INTEGER  NOT NULL DEFAULT 1,
		last_used    DATETIME NOT NULL,
		UNIQUE (user_uuid, pattern_type)
	)`,

	`CREATE TABLE IF NOT EXISTS weather_cache (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude     REAL     NOT NULL,
		longitude    REAL     NOT NULL,
		weather_data TEXT     NOT NULL,
		expires_at   DATETIME NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weather_coords ON weather_cache (latitude, longitude, expires_at)`,

	`CREATE TABLE IF NOT EXISTS poi_cache (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude   REAL     NOT NULL,
		longitude  REAL     NOT NULL,
		query      TEXT     NULL,
		category   TEXT     NULL,
		poi_data   TEXT     NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_poi_coords ON poi_cache (latitude, longitude, expires_at)`,
}
