package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/middleware"
	"tripdesk/internal/repository"
	"tripdesk/internal/service"
)

// ErrorResponse represents an error response. Transition and settlement
// rejections carry enough context to render a precise message.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Field  string `json:"field,omitempty"`
	TripID string `json:"trip_id,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Guard  string `json:"guard,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %s %s: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

// respondBadRequest reports a malformed request.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps service/repository errors to HTTP status codes and bodies.
func mapError(err error) (int, ErrorResponse) {
	var (
		terr *lifecycle.TransitionError
		serr *lifecycle.SettlementError
		verr *service.ValidationError
	)

	switch {
	case errors.As(err, &terr):
		return http.StatusConflict, ErrorResponse{
			Error:  err.Error(),
			Code:   "invalid_transition",
			TripID: terr.TripID,
			From:   string(terr.From),
			To:     string(terr.To),
			Guard:  string(terr.Guard),
		}

	case errors.As(err, &serr):
		return http.StatusConflict, ErrorResponse{
			Error:  err.Error(),
			Code:   "settlement_locked",
			TripID: serr.TripID,
			From:   string(serr.Status),
		}

	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation_failed", Field: verr.Field}

	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidBulkOperation):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "bad_request"}

	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "trip not found", Code: "not_found"}

	case errors.Is(err, service.ErrTripBusy),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "busy"}

	case errors.Is(err, service.ErrReconcileInProgress):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "reconcile_in_progress"}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"}
	}
}

// actorFrom returns the authenticated actor or writes a 401.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated", Code: "unauthorized"})
		return domain.Actor{}, false
	}
	return actor, true
}
