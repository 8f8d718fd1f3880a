package httpgin

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
	"github.com/kirinyoku/staydesk/internal/service/booking"
	"github.com/kirinyoku/staydesk/internal/service/payment"
	"github.com/kirinyoku/staydesk/internal/service/rooms"
)

const (
	KindValidation       = "validation"
	KindUnauthorized     = "unauthorized"
	KindForbidden        = "forbidden"
	KindNotFound         = "not_found"
	KindRoomUnavailable  = "room_unavailable"
	KindConcurrency      = "concurrency_conflict"
	KindUpstreamGateway  = "upstream_gateway_failure"
	KindAlreadyPaid      = "already_paid"
	KindRoomInUse        = "room_in_use"
	KindRateLimited      = "rate_limited"
	KindIdemInProgress   = "idempotency_in_progress"
	KindIdemMismatch     = "idempotency_key_reused"
	KindInternal         = "internal"
	internalErrorMessage = "internal server error"
)

func abortErr(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Kind: kind, Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	abortErr(c, http.StatusBadRequest, KindValidation, msg)
}

// respondErr maps service errors onto status codes and stable kinds. Anything
// unrecognised is reported as a generic 500 and recorded on the context for
// the access log.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		verr *domain.ValidationError
		rl   booking.RateLimitedError
	)

	switch {
	case errors.As(err, &verr):
		badRequest(c, verr.Error())

	case errors.As(err, &rl):
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		abortErr(c, http.StatusTooManyRequests, KindRateLimited, "too many booking requests")

	case errors.Is(err, booking.ErrForbidden), errors.Is(err, payment.ErrForbidden):
		abortErr(c, http.StatusForbidden, KindForbidden, "you may not access this resource")

	case errors.Is(err, booking.ErrRoomNotFound), errors.Is(err, rooms.ErrRoomNotFound):
		abortErr(c, http.StatusNotFound, KindNotFound, "room not found")
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, payment.ErrBookingNotFound):
		abortErr(c, http.StatusNotFound, KindNotFound, "booking not found")
	case errors.Is(err, payment.ErrPaymentNotFound):
		abortErr(c, http.StatusNotFound, KindNotFound, "payment not found")

	case errors.Is(err, booking.ErrRoomUnavailable):
		abortErr(c, http.StatusConflict, KindRoomUnavailable, "room is not available for the requested dates")
	case errors.Is(err, booking.ErrConcurrencyConflict), errors.Is(err, repository.ErrSerialization):
		c.Header("Retry-After", "1")
		abortErr(c, http.StatusConflict, KindConcurrency, "the record was changed concurrently, please retry")
	case errors.Is(err, rooms.ErrRoomInUse):
		abortErr(c, http.StatusConflict, KindRoomInUse, "room has current or upcoming bookings")
	case errors.Is(err, payment.ErrAlreadyPaid):
		abortErr(c, http.StatusConflict, KindAlreadyPaid, "booking is already paid")
	case errors.Is(err, payment.ErrInProgress):
		c.Header("Retry-After", "5")
		abortErr(c, http.StatusConflict, KindIdemInProgress, "a payment for this booking is already in progress")

	case errors.Is(err, payment.ErrUpstreamGateway):
		abortErr(c, http.StatusBadGateway, KindUpstreamGateway, "payment provider is unavailable, please retry")

	default:
		_ = c.Error(fmt.Errorf("unhandled: %w", err))
		abortErr(c, http.StatusInternalServerError, KindInternal, internalErrorMessage)
	}
}
