package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/domain"
	"tripdesk/internal/service"
)

// maxBulkIDs caps the size of one bulk request.
const maxBulkIDs = 1000

// BulkHandler handles bulk trip operations.
type BulkHandler struct {
	bulkService *service.BulkService
}

// NewBulkHandler creates a new BulkHandler.
func NewBulkHandler(bulkService *service.BulkService) *BulkHandler {
	return &BulkHandler{bulkService: bulkService}
}

// BulkTransitionRequest is the HTTP request body for a bulk status change.
type BulkTransitionRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// BulkSettlementRequest is the HTTP request body for a bulk settlement change.
type BulkSettlementRequest struct {
	IDs     []string `json:"ids"`
	Settled *bool    `json:"settled"`
}

// BulkTransition handles POST /v1/trips/bulk/transition
func (h *BulkHandler) BulkTransition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respondBadRequest(c, "ids and status are required")
		return
	}
	if len(req.IDs) > maxBulkIDs {
		respondBadRequest(c, "too many ids")
		return
	}

	op := service.TransitionTo(domain.TripStatus(strings.ToLower(req.Status)))
	h.apply(c, actor, req.IDs, op)
}

// BulkSettlement handles POST /v1/trips/bulk/settlement
func (h *BulkHandler) BulkSettlement(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BulkSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Settled == nil {
		respondBadRequest(c, "ids and settled are required")
		return
	}
	if len(req.IDs) > maxBulkIDs {
		respondBadRequest(c, "too many ids")
		return
	}

	h.apply(c, actor, req.IDs, service.SetSettled(*req.Settled))
}

func (h *BulkHandler) apply(c *gin.Context, actor domain.Actor, ids []string, op service.BulkOperation) {
	result, err := h.bulkService.Apply(c.Request.Context(), actor, ids, op)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}
