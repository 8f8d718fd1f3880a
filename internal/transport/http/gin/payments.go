package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/service"
	"github.com/kirinyoku/staydesk/internal/service/payment"
)

// @Summary  Initiate mobile-money collection
// @Tags     payments
// @Security BearerAuth
// @Param    req body InitiatePaymentRequest true "payload"
// @Success  201 {object} domain.Payment
// @Failure  409 {object} ErrorResponse "already paid / in progress"
// @Failure  502 {object} ErrorResponse "gateway failure"
// @Router   /payments/initiate [post]
func handleInitiatePayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		bookingID, err := uuid.Parse(req.BookingID)
		if err != nil {
			badRequest(c, "invalid booking_id")
			return
		}

		p, err := svcs.Payments.Initiate(c.Request.Context(), mustActor(c), bookingID, req.Phone)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary  Retry a payment with a new attempt
// @Tags     payments
// @Security BearerAuth
// @Param    id  path string true "Payment ID (uuid)"
// @Success  201 {object} domain.Payment
// @Failure  502 {object} ErrorResponse "gateway failure"
// @Router   /payments/{id}/retry [post]
func handleRetryPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Payments.Retry(c.Request.Context(), mustActor(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary  Set payment status
// @Tags     payments
// @Security BearerAuth
// @Param    id  path string               true "Payment ID (uuid)"
// @Param    req body UpdatePaymentRequest true "payload"
// @Success  200 {object} domain.Payment
// @Router   /payments/{id} [put]
func handleUpdatePayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svcs.Payments.ApplyStatus(c.Request.Context(), id, req.Status, req.ExternalRef, req.Message)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Payment provider callback
// @Tags     payments
// @Param    req body WebhookRequest true "payload"
// @Success  200 {object} WebhookResponse
// @Failure  400 {object} ErrorResponse
// @Router   /payments/webhook [post]
func handlePaymentWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		matched, err := svcs.Payments.HandleWebhook(c.Request.Context(), payment.WebhookPayload{
			Status:                req.Status,
			CustomerReference:     req.CustomerReference,
			ProviderTransactionID: req.ProviderTransactionID,
			Message:               req.Message,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Matched: matched})
	}
}

// @Summary  List payments
// @Tags     payments
// @Security BearerAuth
// @Param    booking_id query string false "booking filter"
// @Param    status     query string false "status filter"
// @Success  200 {array} domain.Payment
// @Router   /payments [get]
func handleListPayments(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paging(c)
		f := domain.PaymentFilter{
			Status: domain.PaymentStatus(c.Query("status")),
			Limit:  limit,
			Offset: offset,
		}
		if raw := c.Query("booking_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				badRequest(c, "invalid booking_id")
				return
			}
			f.BookingID = &id
		}

		list, err := svcs.Payments.List(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNil(list))
	}
}

// @Summary  List my payments
// @Tags     payments
// @Security BearerAuth
// @Success  200 {array} domain.Payment
// @Router   /payments/me [get]
func handleListMyPayments(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paging(c)
		list, err := svcs.Payments.ListMine(c.Request.Context(), mustActor(c), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNil(list))
	}
}

// @Summary  Get payment
// @Tags     payments
// @Security BearerAuth
// @Param    id  path string true "Payment ID (uuid)"
// @Success  200 {object} domain.Payment
// @Router   /payments/{id} [get]
func handleGetPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Payments.Get(c.Request.Context(), mustActor(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
