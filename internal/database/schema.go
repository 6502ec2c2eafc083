package database

// Schema is an ordered list of idempotent DDL statements.
type Schema struct {
	Name       string
	Migrations []string
}

// ClientSchema backs the worker's offline store: records, steps, photos and cached processes.
var ClientSchema = Schema{
	Name: "client",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id TEXT UNIQUE NOT NULL,
			user_id INTEGER NOT NULL,
			process_id INTEGER NOT NULL,
			object_id INTEGER,
			assignment_id INTEGER,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			comment TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user_start ON records(user_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_records_pending ON records(user_id, synced, end_time)`,
		`CREATE TABLE IF NOT EXISTS steps (
			record_id INTEGER NOT NULL REFERENCES records(id),
			step_id INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			PRIMARY KEY (record_id, step_id)
		)`,
		`CREATE TABLE IF NOT EXISTS photos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id INTEGER NOT NULL REFERENCES records(id),
			step_id INTEGER,
			data BLOB NOT NULL,
			digest TEXT NOT NULL,
			size INTEGER NOT NULL,
			taken_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_record ON photos(record_id)`,
		`CREATE TABLE IF NOT EXISTS processes (
			id INTEGER PRIMARY KEY,
			definition TEXT NOT NULL,
			cached_at TIMESTAMP NOT NULL
		)`,
	},
}

// ServerSchema backs the durable server store.
var ServerSchema = Schema{
	Name: "server",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'worker',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS processes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			sequential INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			process_id INTEGER NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
			step_number INTEGER NOT NULL,
			name TEXT NOT NULL,
			requires_photo INTEGER NOT NULL DEFAULT 0,
			UNIQUE (process_id, step_number)
		)`,
		`CREATE TABLE IF NOT EXISTS objects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			process_id INTEGER NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
			object_id INTEGER REFERENCES objects(id) ON DELETE SET NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id)`,
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id TEXT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			process_id INTEGER NOT NULL REFERENCES processes(id),
			object_id INTEGER REFERENCES objects(id) ON DELETE SET NULL,
			assignment_id INTEGER REFERENCES assignments(id) ON DELETE SET NULL,
			device_id TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP,
			duration_seconds INTEGER,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, client_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user_start ON records(user_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_records_start ON records(start_time)`,
		`CREATE TABLE IF NOT EXISTS step_timings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			step_id INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			duration_seconds INTEGER,
			UNIQUE (record_id, step_id)
		)`,
		`CREATE TABLE IF NOT EXISTS photos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			step_id INTEGER,
			comment TEXT NOT NULL DEFAULT '',
			digest TEXT NOT NULL,
			size INTEGER NOT NULL,
			data BLOB NOT NULL,
			taken_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_record_step ON photos(record_id, step_id)`,
	},
}
