package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error kinds returned to clients.
const (
	KindValidation           = "VALIDATION_ERROR"
	KindEmptyCart            = "EMPTY_CART"
	KindInvalidStatus        = "INVALID_STATUS"
	KindNotFound             = "NOT_FOUND"
	KindCartInvalid          = "CART_INVALID"
	KindInsufficientStock    = "INSUFFICIENT_STOCK"
	KindAlreadyProcessing    = "ORDER_ALREADY_PROCESSING"
	KindTransitionNotAllowed = "TRANSITION_NOT_ALLOWED"
	KindConflict             = "CONFLICT"
	KindUnauthorized         = "UNAUTHORIZED"
	KindForbidden            = "FORBIDDEN"
	KindRateLimited          = "RATE_LIMITED"
	KindInternal             = "INTERNAL"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func Validation(message string, fields map[string]string) *Error {
	e := New(http.StatusBadRequest, KindValidation, message, nil)
	if len(fields) > 0 {
		e.Details = fields
	}
	return e
}

func EmptyCart() *Error {
	return New(http.StatusBadRequest, KindEmptyCart, "cart is empty", nil)
}

// InvalidStatus carries the legal values so clients can display them.
func InvalidStatus(value string, valid []string) *Error {
	return New(http.StatusBadRequest, KindInvalidStatus,
		fmt.Sprintf("invalid status %q", value), nil).
		WithDetails(map[string]any{"valid_statuses": valid})
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, KindNotFound, what+" not found", nil)
}

// CartInvalid carries the itemized line errors.
func CartInvalid(lines any) *Error {
	return New(http.StatusConflict, KindCartInvalid, "one or more cart lines cannot be ordered", nil).
		WithDetails(lines)
}

func InsufficientStock(lines any) *Error {
	return New(http.StatusConflict, KindInsufficientStock, "insufficient stock", nil).
		WithDetails(lines)
}

func AlreadyProcessing() *Error {
	return New(http.StatusConflict, KindAlreadyProcessing, "order already being processed", nil)
}

func TransitionNotAllowed(from, to string) *Error {
	return New(http.StatusConflict, KindTransitionNotAllowed,
		fmt.Sprintf("cannot move order from %s to %s", from, to), nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, KindConflict, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func RateLimited() *Error {
	return New(http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded, please try again later", nil)
}

// Internal hides err from the client but keeps it for logging.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, "internal server error", err)
}

// As extracts an *Error from err, wrapping unknown errors as internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Respond writes err as JSON and aborts the request.
func Respond(c *gin.Context, err error) {
	appErr := As(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.AbortWithStatusJSON(appErr.Code, appErr)
}

// ErrorMiddleware renders errors attached with c.Error when the handler
// did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := As(c.Errors.Last().Err)
		c.JSON(appErr.Code, appErr)
		c.Abort()
	}
}
