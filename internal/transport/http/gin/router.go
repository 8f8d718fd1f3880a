package httpgin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	redisrepo "github.com/kirinyoku/staydesk/internal/repository/redis"
	"github.com/kirinyoku/staydesk/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	verifier TokenVerifier,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	RegisterValidators()

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/rooms", handleListRooms(svcs))
	r.GET("/rooms/available", handleAvailableRooms(svcs))
	r.GET("/rooms/:id", handleGetRoom(svcs))
	r.POST("/payments/webhook", handlePaymentWebhook(svcs))

	authed := r.Group("/", Authenticate(verifier))

	// Any signed-in caller; ownership is checked by the services.
	authed.POST("/bookings", handleCreateBooking(svcs, idem))
	authed.GET("/bookings/me", handleListMyBookings(svcs))
	authed.GET("/bookings/:id", handleGetBooking(svcs))
	authed.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
	authed.GET("/payments/me", handleListMyPayments(svcs))
	authed.GET("/payments/:id", handleGetPayment(svcs))
	authed.POST("/payments/initiate", handleInitiatePayment(svcs))
	authed.POST("/payments/:id/retry", handleRetryPayment(svcs))

	desk := authed.Group("/", RequireRole(domain.RoleReceptionist))
	{
		desk.GET("/bookings", handleListBookings(svcs))
		desk.PUT("/bookings/:id", handleUpdateBooking(svcs))
		desk.GET("/payments", handleListPayments(svcs))
		desk.PUT("/payments/:id", handleUpdatePayment(svcs))
	}

	mgmt := authed.Group("/", RequireRole(domain.RoleManager))
	{
		mgmt.POST("/rooms", handleCreateRoom(svcs))
		mgmt.PUT("/rooms/:id", handleUpdateRoom(svcs))
		mgmt.DELETE("/rooms/:id", handleDeleteRoom(svcs))
		mgmt.GET("/dashboard/stats", handleDashboardStats(svcs))
	}

	return r
}

// @Summary  Dashboard counters
// @Tags     dashboard
// @Security BearerAuth
// @Success  200 {object} domain.DashboardStats
// @Failure  403 {object} ErrorResponse
// @Router   /dashboard/stats [get]
func handleDashboardStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Query.Stats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseInstant accepts RFC3339 timestamps and plain dates (midnight UTC).
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func mustActor(c *gin.Context) domain.Actor {
	a, _ := actorFrom(c)
	return a
}

func paging(c *gin.Context) (limit, offset int) {
	return parseIntDefault(c.Query("limit"), 50), parseIntDefault(c.Query("offset"), 0)
}
