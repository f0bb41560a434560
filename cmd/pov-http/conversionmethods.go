package main

import (
	"net/http"
	"strconv"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"

	_ "modernc.org/sqlite"

	queries "povtools/internal/db"
	"povtools/internal/telemetry"
)

func (this *RequestHandler) GetConversionMethods(c *gin.Context) {
	rows, err := this.Db.Query(queries.ConversionMethods)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var cms []telemetry.ConversionMethod
	err = scan.RowsStrict(&cms, rows)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	for idx := range cms {
		cms[idx].ProcessRawData()
	}

	c.JSON(http.StatusOK, cms)
}

func (this *RequestHandler) GetConversionMethod(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	var cm telemetry.ConversionMethod
	rows, err := this.Db.Query(queries.ConversionMethod, id)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	err = scan.RowStrict(&cm, rows)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if err := cm.ProcessRawData(); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, cm)
}

func (this *RequestHandler) PutConversionMethod(c *gin.Context) {
	var cm telemetry.ConversionMethod
	if err := c.ShouldBindJSON(&cm); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if err := cm.DumpRawData(); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// Compiling against empty inputs rejects broken expressions at upload.
	if err := cm.Prepare(nil); err != nil {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	cols := []string{"name", "description", "data"}
	vals, _ := scan.Values(cols, &cm)
	var lastInsertedId int
	if err := this.Db.QueryRow(queries.InsertConversionMethod, vals...).Scan(&lastInsertedId); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	} else {
		c.JSON(http.StatusCreated, gin.H{"id": lastInsertedId})
	}
}

func (this *RequestHandler) DeleteConversionMethod(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if _, err := this.Db.Exec(queries.DeleteConversionMethod, id); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	} else {
		c.Status(http.StatusNoContent)
	}
}
