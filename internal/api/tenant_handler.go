package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/teresa-solution/rent-payment-service/internal/model"
	"github.com/teresa-solution/rent-payment-service/internal/service"
)

type OccupancyReconciler interface {
	Assign(ctx context.Context, propertyID, roomID int64, userIDs []int64) ([]model.TenantAssignment, error)
	Reconcile(ctx context.Context, propertyID, roomID int64, targetUserIDs, targetAssignmentIDs []int64) (*service.ReconcileResult, error)
	ListActive(ctx context.Context, propertyID, roomID int64) ([]model.TenantAssignment, error)
	ListDeleted(ctx context.Context, propertyID, roomID int64) ([]model.TenantAssignment, error)
}

type TenantHandler struct {
	tenants OccupancyReconciler
}

func NewTenantHandler(tenants OccupancyReconciler) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

type occupancyRequest struct {
	PropertyID    int64   `json:"propertyId"`
	RoomID        int64   `json:"roomId"`
	UserIDs       []int64 `json:"userIds"`
	AssignmentIDs []int64 `json:"assignmentIds"`
}

func (h *TenantHandler) Assign(c echo.Context) error {
	var req occupancyRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	created, err := h.tenants.Assign(c.Request().Context(), req.PropertyID, req.RoomID, req.UserIDs)
	if err != nil {
		return respondError(c, err)
	}
	if created == nil {
		created = []model.TenantAssignment{}
	}
	return respond(c, http.StatusCreated, "Tenants assigned", created)
}

func (h *TenantHandler) Reconcile(c echo.Context) error {
	var req occupancyRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	result, err := h.tenants.Reconcile(c.Request().Context(), req.PropertyID, req.RoomID, req.UserIDs, req.AssignmentIDs)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Tenants updated", result)
}

// List returns the room's assignments; status=Deleted lists the soft-deleted rows
func (h *TenantHandler) List(c echo.Context) error {
	var (
		propertyID, roomID int64
		status             string
	)
	err := echo.QueryParamsBinder(c).
		MustInt64("propertyId", &propertyID).
		MustInt64("roomId", &roomID).
		String("status", &status).
		BindError()
	if err != nil {
		return respond(c, http.StatusBadRequest, "propertyId and roomId are required", nil)
	}

	var assignments []model.TenantAssignment
	switch model.AssignmentStatus(status) {
	case "", model.AssignmentActive:
		assignments, err = h.tenants.ListActive(c.Request().Context(), propertyID, roomID)
	case model.AssignmentDeleted:
		assignments, err = h.tenants.ListDeleted(c.Request().Context(), propertyID, roomID)
	default:
		return respondError(c, &service.ValidationError{Field: "status", Reason: "must be Active or Deleted"})
	}
	if err != nil {
		return respondError(c, err)
	}
	if assignments == nil {
		assignments = []model.TenantAssignment{}
	}
	return respond(c, http.StatusOK, "Tenants fetched", assignments)
}
