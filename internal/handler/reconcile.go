package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/service"
)

// ReconcileHandler triggers reconciliation on demand.
type ReconcileHandler struct {
	reconciler *service.Reconciler
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(reconciler *service.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// Reconcile handles POST /v1/reconcile
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	result, err := h.reconciler.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}
