package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/report"
	"github.com/Skufu/postcovid-risk/internal/risk"
	"github.com/Skufu/postcovid-risk/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type handlers struct {
	svc      *service.PredictionService
	patients PatientLister
	logger   *zap.Logger
}

func (h *handlers) registry(c *gin.Context) {
	if h.svc == nil {
		dbDisabled(c)
		return
	}
	reg := h.svc.Registry()
	c.JSON(http.StatusOK, gin.H{
		"categories":             reg.Categories(),
		"generalRecommendations": reg.GeneralRecommendations(),
		"followUpSchedule":       reg.FollowUp(),
	})
}

func (h *handlers) listPatients(c *gin.Context) {
	if h.patients == nil {
		dbDisabled(c)
		return
	}
	list, err := h.patients.ListPatients(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": list})
}

func (h *handlers) sufficiency(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	res, err := h.svc.Sufficiency(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) predictions(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	top, ok := topParam(c)
	if !ok {
		return
	}
	pred, err := h.svc.Predict(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if top > 0 {
		trimmed := *pred
		trimmed.Assessments = risk.TopRisks(pred.Assessments, top)
		c.JSON(http.StatusOK, trimmed)
		return
	}
	c.JSON(http.StatusOK, pred)
}

func (h *handlers) plan(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	top, ok := topParam(c)
	if !ok {
		return
	}
	plan, err := h.svc.PreventionPlan(c.Request.Context(), id, top)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *handlers) report(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	top, ok := topParam(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "text")
	if format != "text" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_format", "message": "format must be text or xlsx"})
		return
	}

	plan, err := h.svc.PreventionPlan(c.Request.Context(), id, top)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if format == "xlsx" {
		data, err := report.WriteXLSX(plan)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="risk-report-%d.xlsx"`, id))
		c.Data(http.StatusOK, xlsxContentType, data)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteText(&buf, plan); err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (h *handlers) patientID(c *gin.Context) (int64, bool) {
	if h.svc == nil {
		dbDisabled(c)
		return 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_patient_id"})
		return 0, false
	}
	return id, true
}

// topParam reads ?top=N; absent means 0 (service default).
func topParam(c *gin.Context) (int, bool) {
	raw := c.Query("top")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_top", "message": "top must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func (h *handlers) writeError(c *gin.Context, err error) {
	var insufficient *service.InsufficientDataError
	switch {
	case errors.Is(err, service.ErrPatientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "patient_not_found", "message": "patient does not exist"})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         "insufficient_diagnostic_data",
			"message":       insufficient.Error(),
			"present":       insufficient.Present,
			"missing":       insufficient.Missing,
			"minCategories": insufficient.Min,
		})
	default:
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func dbDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database_disabled", "message": "set ENABLE_DB=true to serve patient data"})
}
