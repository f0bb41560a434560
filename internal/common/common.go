package common

import (
	"database/sql"
	"encoding/json"

	"github.com/blockloop/scan"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	queries "povtools/internal/db"
	"povtools/internal/report"
	"povtools/internal/telemetry"
)

// SensorConfig is a stored sensor calibration: the linear range parameters
// plus optional expression-backed conversion methods. A method id of 0 means
// the plain full_scale/half_domain scaling applies for that triplet.
type SensorConfig struct {
	Id               int     `db:"id"                json:"id"`
	Name             string  `db:"name"              json:"name" binding:"required"`
	AccelRangeG      float64 `db:"accel_range_g"     json:"accel_range_g" binding:"required"`
	GyroRangeDPS     float64 `db:"gyro_range_dps"    json:"gyro_range_dps" binding:"required"`
	HalfDomain       float64 `db:"half_domain"       json:"half_domain" binding:"required"`
	SaturationCounts int     `db:"saturation_counts" json:"saturation_counts"`
	AccelMethodId    int     `db:"accel_method_id"   json:"accel_method_id"`
	GyroMethodId     int     `db:"gyro_method_id"    json:"gyro_method_id"`
	RawAccelInputs   string  `db:"accel_inputs"      json:"-"`
	RawGyroInputs    string  `db:"gyro_inputs"       json:"-"`

	AccelInputs map[string]float64 `db:"-" json:"accel_inputs"`
	GyroInputs  map[string]float64 `db:"-" json:"gyro_inputs"`
}

func (this *SensorConfig) ProcessRawInputs() error {
	if this.RawAccelInputs != "" {
		if err := json.Unmarshal([]byte(this.RawAccelInputs), &this.AccelInputs); err != nil {
			return err
		}
	}
	if this.RawGyroInputs != "" {
		if err := json.Unmarshal([]byte(this.RawGyroInputs), &this.GyroInputs); err != nil {
			return err
		}
	}
	return nil
}

func (this *SensorConfig) DumpRawInputs() error {
	ai, err := json.Marshal(this.AccelInputs)
	if err != nil {
		return err
	}
	gi, err := json.Marshal(this.GyroInputs)
	if err != nil {
		return err
	}
	this.RawAccelInputs = string(ai)
	this.RawGyroInputs = string(gi)
	return nil
}

func GetConversionMethod(dbc *sql.DB, id int) (*telemetry.ConversionMethod, error) {
	var method telemetry.ConversionMethod
	rows, err := dbc.Query(queries.ConversionMethod, id)
	if err != nil {
		return nil, err
	}
	if err = scan.RowStrict(&method, rows); err != nil {
		return nil, err
	}
	if err = method.ProcessRawData(); err != nil {
		return nil, err
	}

	return &method, nil
}

func GetSensorConfig(dbc *sql.DB, id int) (*SensorConfig, error) {
	var config SensorConfig
	rows, err := dbc.Query(queries.SensorConfig, id)
	if err != nil {
		return nil, err
	}
	if err = scan.RowStrict(&config, rows); err != nil {
		return nil, err
	}
	if err = config.ProcessRawInputs(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Calibration resolves a stored config into a ready-to-use calibration,
// loading and preparing the referenced conversion methods.
func (this *SensorConfig) Calibration(dbc *sql.DB) (telemetry.SensorCalibration, error) {
	cal := telemetry.SensorCalibration{
		AccelRangeG:      this.AccelRangeG,
		GyroRangeDPS:     this.GyroRangeDPS,
		HalfDomain:       this.HalfDomain,
		SaturationCounts: this.SaturationCounts,
	}
	if cal.SaturationCounts == 0 {
		cal.SaturationCounts = telemetry.DEFAULT_SATURATION_COUNT
	}
	if this.AccelMethodId != 0 {
		method, err := GetConversionMethod(dbc, this.AccelMethodId)
		if err != nil {
			return cal, err
		}
		if err = method.Prepare(this.AccelInputs); err != nil {
			return cal, err
		}
		cal.AccelMethod = method
	}
	if this.GyroMethodId != 0 {
		method, err := GetConversionMethod(dbc, this.GyroMethodId)
		if err != nil {
			return cal, err
		}
		if err = method.Prepare(this.GyroInputs); err != nil {
			return cal, err
		}
		cal.GyroMethod = method
	}
	return cal, nil
}

func LoadTokens(dbc *sql.DB) ([]string, error) {
	rows, err := dbc.Query(queries.Tokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// InsertSession stores an analyzed capture as a msgpack blob and returns the
// generated session id.
func InsertSession(dbc *sql.DB, r *report.Report, name, description string, configId int) (string, error) {
	data, err := r.EncodeBytes()
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	var insertedId string
	err = dbc.QueryRow(queries.InsertSession, id, name, r.Timestamp, description, configId, data).Scan(&insertedId)
	if err != nil {
		return "", err
	}

	return insertedId, nil
}
