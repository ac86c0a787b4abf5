package controllers

import (
	"context"
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotificationLogService interface {
	List(ctx context.Context, filter models.NotificationFilter) (*services.NotificationLogList, error)
}

type NotificationController struct {
	logs NotificationLogService
}

func NewNotificationController(logs NotificationLogService) *NotificationController {
	return &NotificationController{logs: logs}
}

// GetNotificationLogs lists delivery attempts, newest first.
func (nc *NotificationController) GetNotificationLogs(ctx *gin.Context) {
	page, pageSize := parsePaginationParams(ctx, "page_size", 20)
	filter := models.NotificationFilter{
		Status:   ctx.Query("status"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := ctx.Query("order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperrors.Respond(ctx, apperrors.Validation("invalid order_id", map[string]string{"order_id": "uuid"}))
			return
		}
		filter.OrderID = &id
	}

	result, err := nc.logs.List(ctx.Request.Context(), filter)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}
