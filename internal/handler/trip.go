package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
	"tripdesk/internal/export"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/repository"
	"tripdesk/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for booking a trip.
type CreateTripRequest struct {
	Date            string          `json:"date"` // YYYY-MM-DD
	CommercialPrice decimal.Decimal `json:"commercial_price"`
	TripPrice       decimal.Decimal `json:"trip_price"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	Collection      decimal.Decimal `json:"collection"`
	Commission      decimal.Decimal `json:"commission"`
	Quantity        int             `json:"quantity"`
	CustomerName    string          `json:"customer_name"`
	SupplierName    string          `json:"supplier_name"`
	Destination     string          `json:"destination"`
	Notes           string          `json:"notes,omitempty"`
}

// UpdateTripRequest is the HTTP request body for editing a trip. Omitted
// fields are left unchanged.
type UpdateTripRequest struct {
	Date            *string          `json:"date"`
	CommercialPrice *decimal.Decimal `json:"commercial_price"`
	TripPrice       *decimal.Decimal `json:"trip_price"`
	PaidAmount      *decimal.Decimal `json:"paid_amount"`
	Collection      *decimal.Decimal `json:"collection"`
	Commission      *decimal.Decimal `json:"commission"`
	Quantity        *int             `json:"quantity"`
	CustomerName    *string          `json:"customer_name"`
	SupplierName    *string          `json:"supplier_name"`
	Destination     *string          `json:"destination"`
	Notes           *string          `json:"notes"`
}

// TransitionRequest is the HTTP request body for a status change.
type TransitionRequest struct {
	Status string `json:"status"`
}

// SettlementRequest is the HTTP request body for the settlement flag.
type SettlementRequest struct {
	Settled *bool `json:"settled"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID                  string          `json:"id"`
	Date                string          `json:"date"`
	Status              string          `json:"status"`
	IsSettled           bool            `json:"is_settled"`
	CommercialPrice     decimal.Decimal `json:"commercial_price"`
	TripPrice           decimal.Decimal `json:"trip_price"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	Collection          decimal.Decimal `json:"collection"`
	Commission          decimal.Decimal `json:"commission"`
	Quantity            int             `json:"quantity"`
	Settlement          decimal.Decimal `json:"settlement"`
	SettlementDirection string          `json:"settlement_direction"`
	CustomerName        string          `json:"customer_name"`
	SupplierName        string          `json:"supplier_name"`
	Destination         string          `json:"destination"`
	Notes               string          `json:"notes,omitempty"`
	CreatedBy           string          `json:"created_by"`
	Version             int             `json:"version"`
	CreatedAt           string          `json:"created_at"`
	UpdatedAt           string          `json:"updated_at"`
}

// ListTripsResponse is the HTTP response for listing trips.
type ListTripsResponse struct {
	Trips  []TripResponse `json:"trips"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func toTripResponse(t *domain.Trip) TripResponse {
	settlement := lifecycle.SettlementValue(t)
	return TripResponse{
		ID:                  t.ID,
		Date:                t.Date.Format(time.DateOnly),
		Status:              string(t.Status),
		IsSettled:           t.IsSettled,
		CommercialPrice:     t.CommercialPrice,
		TripPrice:           t.TripPrice,
		PaidAmount:          t.PaidAmount,
		Collection:          t.Collection,
		Commission:          t.Commission,
		Quantity:            t.Quantity,
		Settlement:          settlement,
		SettlementDirection: lifecycle.SettlementDirection(settlement),
		CustomerName:        t.CustomerName,
		SupplierName:        t.SupplierName,
		Destination:         t.Destination,
		Notes:               t.Notes,
		CreatedBy:           t.CreatedBy,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           t.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	date, err := clock.ParseDate(req.Date)
	if err != nil {
		respondError(c, &service.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), actor, service.CreateTripRequest{
		Date:            date,
		CommercialPrice: req.CommercialPrice,
		TripPrice:       req.TripPrice,
		PaidAmount:      req.PaidAmount,
		Collection:      req.Collection,
		Commission:      req.Commission,
		Quantity:        req.Quantity,
		CustomerName:    req.CustomerName,
		SupplierName:    req.SupplierName,
		Destination:     req.Destination,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	filter, err := parseTripFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if filter.Limit == 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	trips, err := h.tripService.ListTrips(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := ListTripsResponse{
		Trips:  make([]TripResponse, 0, len(trips)),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, t := range trips {
		resp.Trips = append(resp.Trips, toTripResponse(t))
	}
	respondJSON(c, http.StatusOK, resp)
}

// UpdateTrip handles PATCH /v1/trips/:id
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	update := service.UpdateTripRequest{
		CommercialPrice: req.CommercialPrice,
		TripPrice:       req.TripPrice,
		PaidAmount:      req.PaidAmount,
		Collection:      req.Collection,
		Commission:      req.Commission,
		Quantity:        req.Quantity,
		CustomerName:    req.CustomerName,
		SupplierName:    req.SupplierName,
		Destination:     req.Destination,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		date, err := clock.ParseDate(*req.Date)
		if err != nil {
			respondError(c, &service.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
			return
		}
		update.Date = &date
	}

	trip, err := h.tripService.UpdateTrip(c.Request.Context(), actor, c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// TransitionTrip handles POST /v1/trips/:id/transition
func (h *TripHandler) TransitionTrip(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	trip, err := h.tripService.Transition(c.Request.Context(), actor, c.Param("id"), domain.TripStatus(strings.ToLower(req.Status)))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// SetSettlement handles POST /v1/trips/:id/settlement
func (h *TripHandler) SetSettlement(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Settled == nil {
		respondBadRequest(c, "settled is required")
		return
	}

	trip, err := h.tripService.SetSettled(c.Request.Context(), actor, c.Param("id"), *req.Settled)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ExportTrips handles GET /v1/trips/export?format=xlsx|pdf
func (h *TripHandler) ExportTrips(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	filter, err := parseTripFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter.Limit, filter.Offset = 0, 0

	trips, err := h.tripService.ListTrips(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	stmt := export.Statement{
		From:        filter.DateFrom,
		To:          filter.DateTo,
		GeneratedAt: time.Now(),
		Trips:       trips,
	}
	data, err := export.Render(format, stmt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="settlement_%s.%s"`, stmt.Period(), format))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// parseTripFilter reads list filters from the query string.
func parseTripFilter(c *gin.Context) (repository.TripFilter, error) {
	var f repository.TripFilter

	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			f.Statuses = append(f.Statuses, domain.TripStatus(strings.TrimSpace(strings.ToLower(s))))
		}
	}
	if v := c.Query("from"); v != "" {
		d, err := clock.ParseDate(v)
		if err != nil {
			return f, &service.ValidationError{Field: "from", Message: "must be YYYY-MM-DD"}
		}
		f.DateFrom = d
	}
	if v := c.Query("to"); v != "" {
		d, err := clock.ParseDate(v)
		if err != nil {
			return f, &service.ValidationError{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		f.DateTo = d
	}
	f.CreatedBy = c.Query("created_by")
	if v := c.Query("settled"); v != "" {
		settled, err := strconv.ParseBool(v)
		if err != nil {
			return f, &service.ValidationError{Field: "settled", Message: "must be true or false"}
		}
		f.IsSettled = &settled
	}

	switch sortBy := repository.TripSort(c.DefaultQuery("sort", string(repository.SortByDate))); sortBy {
	case repository.SortByDate, repository.SortByCreatedAt, repository.SortByTripPrice, repository.SortByCollection:
		f.SortBy = sortBy
	default:
		return f, &service.ValidationError{Field: "sort", Message: "unknown sort column"}
	}
	switch c.DefaultQuery("order", "asc") {
	case "asc":
	case "desc":
		f.SortDesc = true
	default:
		return f, &service.ValidationError{Field: "order", Message: "must be asc or desc"}
	}

	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &service.ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return n, nil
}
