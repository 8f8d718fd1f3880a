package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/staydesk/internal/service"
	"github.com/kirinyoku/staydesk/internal/service/rooms"
)

// Occupancy changes with the clock, so room reads are only briefly cacheable.
const roomsCacheControl = "public, max-age=15"

// @Summary  List rooms with current occupancy
// @Tags     rooms
// @Success  200 {array} domain.Room
// @Router   /rooms [get]
func handleListRooms(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Rooms.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeCachedJSON(c, list, roomsCacheControl)
	}
}

// @Summary  Rooms free for a stay
// @Tags     rooms
// @Param    check_in  query string true "RFC3339 or YYYY-MM-DD"
// @Param    check_out query string true "RFC3339 or YYYY-MM-DD"
// @Success  200 {array} domain.Room
// @Failure  400 {object} ErrorResponse
// @Router   /rooms/available [get]
func handleAvailableRooms(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, err := parseInstant(c.Query("check_in"))
		if err != nil {
			badRequest(c, "invalid check_in")
			return
		}
		out, err := parseInstant(c.Query("check_out"))
		if err != nil {
			badRequest(c, "invalid check_out")
			return
		}

		list, err := svcs.Rooms.Available(c.Request.Context(), in, out)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeCachedJSON(c, list, "no-cache")
	}
}

// @Summary  Get room
// @Tags     rooms
// @Param    id  path  string  true  "Room ID (uuid)"
// @Success  200 {object} domain.Room
// @Failure  404 {object} ErrorResponse
// @Router   /rooms/{id} [get]
func handleGetRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		rm, err := svcs.Rooms.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeCachedJSON(c, rm, roomsCacheControl)
	}
}

// @Summary  Create room
// @Tags     rooms
// @Security BearerAuth
// @Param    req body CreateRoomRequest true "payload"
// @Success  201 {object} domain.Room
// @Failure  400 {object} ErrorResponse
// @Router   /rooms [post]
func handleCreateRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		rm, err := svcs.Rooms.Create(c.Request.Context(), rooms.CreateInput{
			Number:      req.Number,
			Type:        req.Type,
			Price:       req.Price,
			PriceUSD:    req.PriceUSD,
			Status:      req.Status,
			Amenities:   req.Amenities,
			Description: req.Description,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, rm)
	}
}

// @Summary  Update room
// @Tags     rooms
// @Security BearerAuth
// @Param    id  path string            true "Room ID (uuid)"
// @Param    req body UpdateRoomRequest true "payload"
// @Success  200 {object} domain.Room
// @Failure  404 {object} ErrorResponse
// @Router   /rooms/{id} [put]
func handleUpdateRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		rm, err := svcs.Rooms.Update(c.Request.Context(), id, rooms.UpdateInput{
			Number:      req.Number,
			Type:        req.Type,
			Price:       req.Price,
			PriceUSD:    req.PriceUSD,
			Status:      req.Status,
			Amenities:   req.Amenities,
			Description: req.Description,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rm)
	}
}

// @Summary  Delete room
// @Tags     rooms
// @Security BearerAuth
// @Param    id  path string true "Room ID (uuid)"
// @Success  204
// @Failure  409 {object} ErrorResponse "room in use"
// @Router   /rooms/{id} [delete]
func handleDeleteRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Rooms.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
