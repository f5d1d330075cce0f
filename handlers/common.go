package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"rollcall/attendance"
	"rollcall/faces"
	"rollcall/i18n"
	"rollcall/store"
	"rollcall/sweeper"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	Error string `json:"error"`
}

// RejectionResponse tells the guard why the attempt was refused
type RejectionResponse struct {
	Error      string            `json:"error"`
	Reason     attendance.Reason `json:"reason"`
	Distance   *float64          `json:"distance,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
}

var OKResponse = Response{}

func language(c *gin.Context) string {
	return c.GetHeader("Accept-Language")
}

func rejectionStatus(reason attendance.Reason) int {
	switch reason {
	case attendance.ReasonUnknownEmployee:
		return http.StatusNotFound
	case attendance.ReasonNotCheckedInYet, attendance.ReasonDayClosed:
		return http.StatusConflict
	case attendance.ReasonTooManyAttempts:
		return http.StatusTooManyRequests
	}
	return http.StatusUnprocessableEntity
}

func renderRejection(c *gin.Context, rejection *attendance.Rejection) {
	resp := RejectionResponse{Reason: rejection.Reason}
	data := map[string]any{}
	if d := rejection.Decision; d != nil {
		resp.Distance = &d.Distance
		resp.Confidence = &d.Confidence
		data["Confidence"] = int(math.Round(d.Confidence * 100))
	}
	resp.Error = i18n.T(language(c), "reason."+string(rejection.Reason), data)
	c.JSON(rejectionStatus(rejection.Reason), resp)
}

// renderError maps workflow errors to a status and a localized message
func renderError(c *gin.Context, err error) {
	if rejection, ok := attendance.AsRejection(err); ok {
		renderRejection(c, rejection)
		return
	}
	lang := language(c)
	switch {
	case errors.Is(err, attendance.ErrInvalid):
		c.JSON(http.StatusBadRequest, Response{err.Error()})
	case errors.Is(err, faces.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, Response{i18n.T(lang, "error.invalid_image")})
	case errors.Is(err, faces.ErrProcessingTimeout), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, Response{i18n.T(lang, "error.processing_timeout")})
	case errors.Is(err, faces.ErrModelNotReady):
		c.JSON(http.StatusServiceUnavailable, Response{i18n.T(lang, "error.model_not_ready")})
	case errors.Is(err, sweeper.ErrSweepInProgress):
		c.JSON(http.StatusConflict, Response{i18n.T(lang, "error.sweep_in_progress")})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{"not found"})
	case errors.Is(err, context.Canceled):
		// client went away, nobody reads the body
		c.Status(499)
	case errors.Is(err, attendance.ErrProcessing):
		zap.S().Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, Response{i18n.T(lang, "error.processing")})
	default:
		zap.S().Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, Response{i18n.T(lang, "error.storage")})
	}
}
