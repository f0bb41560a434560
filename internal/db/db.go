package db

var Schema = `
	CREATE TABLE IF NOT EXISTS tokens (
		token TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS conversion_methods (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sensor_configs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		accel_range_g REAL NOT NULL,
		gyro_range_dps REAL NOT NULL,
		half_domain REAL NOT NULL,
		saturation_counts INTEGER NOT NULL,
		accel_method_id INTEGER NOT NULL DEFAULT 0,
		gyro_method_id INTEGER NOT NULL DEFAULT 0,
		accel_inputs TEXT NOT NULL,
		gyro_inputs TEXT NOT NULL,
		FOREIGN KEY (accel_method_id) REFERENCES conversion_methods (id),
		FOREIGN KEY (gyro_method_id) REFERENCES conversion_methods (id)
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT,
		description TEXT,
		timestamp INTEGER NOT NULL,
		config_id INTEGER,
		data BLOB NOT NULL,
		FOREIGN KEY (config_id) REFERENCES sensor_configs (id)
	);`
