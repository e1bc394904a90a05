package roomhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroomsgo/internal/services/message"
	"chatroomsgo/internal/services/room"
)

type Handler struct {
	rooms    room.IRoomService
	messages message.IMessageService
}

func New(rooms room.IRoomService, messages message.IMessageService) *Handler {
	return &Handler{rooms: rooms, messages: messages}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/rooms", h.list)
	r.GET("/rooms/:name", h.info)
	r.GET("/rooms/:name/messages", h.history)
}

// @Summary		List rooms
// @Description	Returns every room sorted by name. Credentials are never included.
// @Tags			Rooms
// @Success		200	{array}		room.RoomDTO
// @Failure		500	{object}	ErrorResponse
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	out, err := h.rooms.ListRooms(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Get room metadata
// @Description	Returns a single room's name and access type.
// @Tags			Rooms
// @Param			name	path		string	true	"Room name"	default(lobby)
// @Success		200	{object}	room.RoomDTO
// @Failure		404	{object}	ErrorResponse
// @Router			/rooms/{name} [get]
func (h *Handler) info(c *gin.Context) {
	dto, err := h.rooms.GetRoom(c, c.Param("name"))
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// @Summary		Get room history
// @Description	Returns a room's persisted messages, oldest first. The limit defaults to 50 and is capped at 200. Unknown rooms yield an empty list.
// @Tags			Rooms
// @Param			name	path		string	true	"Room name"		default(lobby)
// @Param			limit	query		int		false	"Max messages"	minimum(0)	default(50)
// @Success		200	{array}		message.MessageDTO
// @Failure		400	{object}	ErrorResponse
// @Failure		500	{object}	ErrorResponse
// @Router			/rooms/{name}/messages [get]
func (h *Handler) history(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.messages.ListHistory(c, c.Param("name"), q.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
