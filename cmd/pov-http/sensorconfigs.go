package main

import (
	"net/http"
	"strconv"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"

	_ "modernc.org/sqlite"

	"povtools/internal/common"
	queries "povtools/internal/db"
)

func (this *RequestHandler) GetSensorConfigs(c *gin.Context) {
	rows, err := this.Db.Query(queries.SensorConfigs)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var configs []common.SensorConfig
	err = scan.RowsStrict(&configs, rows)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	for idx := range configs {
		configs[idx].ProcessRawInputs()
	}

	c.JSON(http.StatusOK, configs)
}

func (this *RequestHandler) GetSensorConfig(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	config, err := common.GetSensorConfig(this.Db, int(id))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, config)
}

func (this *RequestHandler) PutSensorConfig(c *gin.Context) {
	var config common.SensorConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if err := config.DumpRawInputs(); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// Resolving the calibration now surfaces dangling method references and
	// expressions that do not compile against the given inputs.
	if _, err := config.Calibration(this.Db); err != nil {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	cols := []string{"name", "accel_range_g", "gyro_range_dps", "half_domain",
		"saturation_counts", "accel_method_id", "gyro_method_id", "accel_inputs", "gyro_inputs"}
	vals, _ := scan.Values(cols, &config)
	var lastInsertedId int
	if err := this.Db.QueryRow(queries.InsertSensorConfig, vals...).Scan(&lastInsertedId); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	} else {
		c.JSON(http.StatusCreated, gin.H{"id": lastInsertedId})
	}
}

func (this *RequestHandler) DeleteSensorConfig(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if _, err := this.Db.Exec(queries.DeleteSensorConfig, id); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	} else {
		c.Status(http.StatusNoContent)
	}
}
