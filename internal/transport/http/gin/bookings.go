package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/service"
	"github.com/kirinyoku/staydesk/internal/service/booking"
)

const jsonContentType = "application/json; charset=utf-8"

// @Summary  Create booking (idempotent)
// @Tags     bookings
// @Security BearerAuth
// @Param    Idempotency-Key header string               false "replay key"
// @Param    req             body   CreateBookingRequest true  "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "room unavailable / idem in progress"
// @Failure  422 {object} ErrorResponse "idempotency key reused with another request"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := mustActor(c)

		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		roomID, err := uuid.Parse(req.RoomID)
		if err != nil {
			badRequest(c, "invalid room_id")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var (
			idemStorageKey string
			fingerprint    string
		)
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(actor.Subject, idemKey)
			fingerprint = requestFingerprint(req)

			if replayIdempotent(c, idem, idemStorageKey, idemKey, fingerprint) {
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayIdempotent(c, idem, idemStorageKey, idemKey, fingerprint) {
					return
				}
				c.Header("Retry-After", "1")
				abortErr(c, http.StatusConflict, KindIdemInProgress, "idempotency key in progress")
				return
			}
		}

		res, err := svcs.Bookings.Create(c.Request.Context(), actor, booking.CreateInput{
			RoomID:        roomID,
			GuestName:     req.GuestName,
			GuestPhone:    req.GuestPhone,
			GuestEmail:    req.GuestEmail,
			CheckIn:       req.CheckIn,
			CheckOut:      req.CheckOut,
			Guests:        req.Guests,
			PaymentMethod: req.PaymentMethod,
		}, "ip:"+c.ClientIP())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateBookingResponse{Booking: res.Booking, Payment: res.Payment}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, redisrepo.StoredResult{
				Fingerprint: fingerprint,
				Payload:     string(b),
			})
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  List bookings
// @Tags     bookings
// @Security BearerAuth
// @Param    room_id query string false "room filter"
// @Param    status  query string false "status filter"
// @Param    limit   query int    false "page size"
// @Param    offset  query int    false "offset"
// @Success  200 {array} domain.Booking
// @Router   /bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paging(c)
		f := domain.BookingFilter{
			Status: domain.BookingStatus(c.Query("status")),
			Limit:  limit,
			Offset: offset,
		}
		if raw := c.Query("room_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				badRequest(c, "invalid room_id")
				return
			}
			f.RoomID = &id
		}

		list, err := svcs.Bookings.List(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNil(list))
	}
}

// @Summary  List my bookings
// @Tags     bookings
// @Security BearerAuth
// @Success  200 {array} domain.Booking
// @Router   /bookings/me [get]
func handleListMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paging(c)
		list, err := svcs.Bookings.ListMine(c.Request.Context(), mustActor(c), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNil(list))
	}
}

// @Summary  Get booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Bookings.Get(c.Request.Context(), mustActor(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Update booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path string               true "Booking ID (uuid)"
// @Param    req body UpdateBookingRequest true "payload"
// @Success  200 {object} domain.Booking
// @Failure  409 {object} ErrorResponse "room unavailable"
// @Router   /bookings/{id} [put]
func handleUpdateBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in := booking.UpdateInput{
			CheckIn:    req.CheckIn,
			CheckOut:   req.CheckOut,
			GuestName:  req.GuestName,
			GuestPhone: req.GuestPhone,
			GuestEmail: req.GuestEmail,
			Guests:     req.Guests,
			Status:     req.Status,
		}
		if req.RoomID != nil {
			roomID, err := uuid.Parse(*req.RoomID)
			if err != nil {
				badRequest(c, "invalid room_id")
				return
			}
			in.RoomID = &roomID
		}

		b, err := svcs.Bookings.Update(c.Request.Context(), id, in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path string true "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Bookings.Cancel(c.Request.Context(), mustActor(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// replayIdempotent answers from a stored result. A key reused for a different
// request is rejected instead of replaying someone else's response.
func replayIdempotent(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey, fingerprint string) bool {
	stored, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	if !stored.Matches(fingerprint) {
		abortErr(c, http.StatusUnprocessableEntity, KindIdemMismatch, "idempotency key was used with a different request")
		return true
	}

	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, jsonContentType, []byte(stored.Payload))
	return true
}

// requestFingerprint hashes the bound request, so formatting differences in
// the raw body do not matter.
func requestFingerprint(req CreateBookingRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
