package controllers

import (
	"strconv"

	"storefront-service/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parsePaginationParams reads page and limit with the given default limit.
// The services clamp the maximum.
func parsePaginationParams(ctx *gin.Context, limitKey string, defaultLimit int) (int, int) {
	page, limit := 1, defaultLimit
	if p, err := strconv.Atoi(ctx.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.Query(limitKey)); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}

// uuidParam parses a path parameter, responding with a validation error
// when it is malformed.
func uuidParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		apperrors.Respond(ctx, apperrors.Validation("invalid "+name, map[string]string{name: "uuid"}))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		apperrors.Respond(ctx, apperrors.Validation("invalid request body", map[string]string{"body": err.Error()}))
		return false
	}
	return true
}
