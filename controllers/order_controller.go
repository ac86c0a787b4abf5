package controllers

import (
	"context"
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in models.CreateOrderInput, actor services.Actor) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) (*services.OrderList, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page, limit int) (*services.OrderList, error)
	TrackOrder(ctx context.Context, orderNumber string) (*models.OrderTracking, error)
	GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type OrderStatusService interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status string, actor services.Actor, note *string) (*models.Order, error)
	CancelOwnOrder(ctx context.Context, orderNumber string, customerID uuid.UUID) (*models.Order, error)
}

type CartValidator interface {
	Validate(ctx context.Context, lines []models.CartLine) (*models.CartValidation, error)
}

type OrderController struct {
	orders OrderService
	status OrderStatusService
	cart   CartValidator
}

func NewOrderController(orders OrderService, status OrderStatusService, cart CartValidator) *OrderController {
	return &OrderController{orders: orders, status: status, cart: cart}
}

type validateCartRequest struct {
	Items []models.CartLine `json:"items"`
}

// ValidateCart is the advisory pre-checkout check.
func (oc *OrderController) ValidateCart(ctx *gin.Context) {
	var req validateCartRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := oc.cart.Validate(ctx.Request.Context(), req.Items)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// CreateOrder places a cash-on-delivery order. Signed-in customers get the
// order linked to their account.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var in models.CreateOrderInput
	if !bindJSON(ctx, &in) {
		return
	}
	order, err := oc.orders.CreateOrder(ctx.Request.Context(), in, middleware.ActorFrom(ctx))
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

func (oc *OrderController) TrackOrder(ctx *gin.Context) {
	tracking, err := oc.orders.TrackOrder(ctx.Request.Context(), ctx.Param("orderNumber"))
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": tracking})
}

func (oc *OrderController) MyOrders(ctx *gin.Context) {
	actor := middleware.ActorFrom(ctx)
	if actor.ID == nil {
		apperrors.Respond(ctx, apperrors.Unauthorized("unauthorized"))
		return
	}
	page, limit := parsePaginationParams(ctx, "limit", 10)
	result, err := oc.orders.ListCustomerOrders(ctx.Request.Context(), *actor.ID, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (oc *OrderController) CancelMyOrder(ctx *gin.Context) {
	actor := middleware.ActorFrom(ctx)
	if actor.ID == nil {
		apperrors.Respond(ctx, apperrors.Unauthorized("unauthorized"))
		return
	}
	order, err := oc.status.CancelOwnOrder(ctx.Request.Context(), ctx.Param("orderNumber"), *actor.ID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOrders is the admin listing, optionally filtered by status.
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx, "limit", 20)
	filter := models.OrderFilter{Page: page, Limit: limit}

	if raw := ctx.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			apperrors.Respond(ctx, apperrors.InvalidStatus(raw, models.OrderStatusNames()))
			return
		}
		filter.Status = status
	}

	result, err := oc.orders.ListOrders(ctx.Request.Context(), filter)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (oc *OrderController) GetOrder(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	order, err := oc.orders.GetOrder(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

func (oc *OrderController) GetOrderHistory(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	history, err := oc.orders.GetOrderHistory(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"history": history})
}

func (oc *OrderController) UpdateStatus(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !bindJSON(ctx, &req) {
		return
	}
	order, err := oc.status.SetStatus(ctx.Request.Context(), id, req.Status, middleware.ActorFrom(ctx), req.Note)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
