package main

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"povtools/internal/analysis"
	"povtools/internal/capture"
	"povtools/internal/common"
	queries "povtools/internal/db"
	"povtools/internal/report"
	"povtools/internal/telemetry"
)

type session struct {
	Id          string `db:"id"          json:"id"`
	Name        string `db:"name"        json:"name" binding:"required"`
	Timestamp   int64  `db:"timestamp"   json:"timestamp"`
	Description string `db:"description" json:"description"`
	Config      int    `db:"config_id"   json:"config"`
	AccelData   string `                 json:"accel_data,omitempty"`
	HallData    string `                 json:"hall_data,omitempty"`
	SpeedLog    string `                 json:"speed_log,omitempty"`
	RawData     string `                 json:"data,omitempty"`
	Processed   []byte `db:"data"        json:"-"`
}

func (this *RequestHandler) GetSessions(c *gin.Context) {
	rows, err := this.Db.Query(queries.Sessions)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var sessions []session
	err = scan.RowsStrict(&sessions, rows)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (this *RequestHandler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := this.Db.Query(queries.Session, id.String())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var session session
	scan.RowStrict(&session, rows)

	c.JSON(http.StatusOK, session)
}

func (this *RequestHandler) GetSessionData(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var name string
	var data []byte
	err = this.Db.QueryRow(queries.SessionData, id.String()).Scan(&name, &data)
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+name+".POVR")
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// PutProcessedSession stores an already analyzed report uploaded as a
// base64 msgpack blob. The blob is decoded once to reject garbage uploads.
func (this *RequestHandler) PutProcessedSession(c *gin.Context) {
	var session session
	if err := c.ShouldBindJSON(&session); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(session.RawData)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := report.Decode(data)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	session.Id = uuid.New().String()
	session.Processed = data
	session.Timestamp = r.Timestamp

	cols := []string{"id", "name", "timestamp", "description", "config_id", "data"}
	vals, _ := scan.Values(cols, &session)
	var insertedId string
	if err := this.Db.QueryRow(queries.InsertSession, vals...).Scan(&insertedId); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		this.notifyRenderer(insertedId)
		c.JSON(http.StatusCreated, gin.H{"id": insertedId})
	}
}

// PutSession ingests a raw capture: the accelerometer and hall CSVs arrive
// base64-encoded in the request body, the speed log is optional. The full
// analyzer battery runs before the session is stored.
func (this *RequestHandler) PutSession(c *gin.Context) {
	var session session
	if err := c.ShouldBindJSON(&session); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := telemetry.DefaultPipelineConfig()
	if session.Config != 0 {
		config, err := common.GetSensorConfig(this.Db, session.Config)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		cfg.Calibration, err = config.Calibration(this.Db)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	accelData, err := base64.StdEncoding.DecodeString(session.AccelData)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accel, err := capture.ParseAccelCSV(bytes.NewReader(accelData))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	hallData, err := base64.StdEncoding.DecodeString(session.HallData)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	events, err := capture.ParseHallCSV(bytes.NewReader(hallData))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var speedLog []telemetry.SpeedLogEntry
	if session.SpeedLog != "" {
		speedLogData, err := base64.StdEncoding.DecodeString(session.SpeedLog)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		speedLog, err = capture.ParseSpeedLogCSV(bytes.NewReader(speedLogData))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, err := analysis.NewContext(accel, events, speedLog, cfg)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	results := analysis.RunAll(ctx, analysis.DefaultAnalyzers())
	r := report.New(session.Name, time.Now().Unix(), results, ctx.Processed)

	data, err := r.EncodeBytes()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	session.Id = uuid.New().String()
	session.Processed = data
	session.Timestamp = r.Timestamp

	cols := []string{"id", "name", "timestamp", "description", "config_id", "data"}
	vals, _ := scan.Values(cols, &session)
	var insertedId string
	if err = this.Db.QueryRow(queries.InsertSession, vals...).Scan(&insertedId); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		this.notifyRenderer(insertedId)
		c.JSON(http.StatusCreated, gin.H{"id": insertedId})
	}
}

func (this *RequestHandler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := this.Db.Exec(queries.DeleteSession, id.String()); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		c.Status(http.StatusNoContent)
	}
}

func (this *RequestHandler) PatchSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sessionMeta struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"desc"`
	}
	if err := c.ShouldBindJSON(&sessionMeta); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := this.Db.Exec(queries.UpdateSession, sessionMeta.Name, sessionMeta.Description, id.String()); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		c.Status(http.StatusNoContent)
	}
}
