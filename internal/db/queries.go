package db

var Tokens = `
	SELECT token
	FROM tokens`

var InsertToken = `
	INSERT
	INTO tokens (token)
	VALUES (?)
	RETURNING rowid`

var ConversionMethods = `
	SELECT *
	FROM conversion_methods`

var ConversionMethod = `
	SELECT *
	FROM conversion_methods
	WHERE id = ?`

var InsertConversionMethod = `
	INSERT
	INTO conversion_methods (name, description, data)
	VALUES (?, ?, ?)
	RETURNING id
	`
var DeleteConversionMethod = `
	DELETE
	FROM conversion_methods
	WHERE id = ?`

var SensorConfigs = `
	SELECT *
	FROM sensor_configs`

var SensorConfig = `
	SELECT *
	FROM sensor_configs
	WHERE id = ?`

var InsertSensorConfig = `
	INSERT
	INTO sensor_configs (name, accel_range_g, gyro_range_dps, half_domain,
		saturation_counts, accel_method_id, gyro_method_id, accel_inputs, gyro_inputs)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
	`
var DeleteSensorConfig = `
	DELETE
	FROM sensor_configs
	WHERE id = ?`

var Sessions = `
	SELECT id, name, timestamp, description, config_id
	FROM sessions
	`
var Session = `
	SELECT id, name, timestamp, description, config_id
	FROM sessions
	WHERE id = ?`

var SessionData = `
	SELECT name, data
	FROM sessions
	WHERE id = ?`

var InsertSession = `
	INSERT
	INTO sessions (id, name, timestamp, description, config_id, data)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id`

var DeleteSession = `
	DELETE
	FROM sessions
	WHERE id = ?`

var UpdateSession = `
	UPDATE sessions
	SET (name, description) = (?, ?)
	WHERE id = ?`
