package breakout

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/activity"
	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/pkg/response"
)

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, room *models.BreakoutRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BreakoutRoom, error)
	ListActive(ctx context.Context, eventID uuid.UUID) ([]models.BreakoutRoom, error)
	CurrentRoom(ctx context.Context, eventID, userID uuid.UUID) (*models.BreakoutRoomParticipant, error)
	Join(ctx context.Context, room *models.BreakoutRoom, userID uuid.UUID) (*models.BreakoutRoomParticipant, error)
	Leave(ctx context.Context, roomID, userID uuid.UUID) (*models.BreakoutRoomParticipant, error)
}

// CreateRequest is the body for POST /events/:id/rooms. MaxParticipants 0 means the default.
type CreateRequest struct {
	Name            string `json:"name"`
	MaxParticipants int    `json:"max_participants"`
}

// Handler handles breakout room endpoints.
type Handler struct {
	repo     Store
	pub      realtime.Publisher
	activity activity.Recorder
	logger   *zap.Logger
}

// NewHandler creates a breakout handler.
func NewHandler(repo Store, pub realtime.Publisher, rec activity.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, pub: pub, activity: rec, logger: logger}
}

// Create handles POST /events/:id/rooms (organizer).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	name, max, err := models.ValidateRoom(req.Name, req.MaxParticipants)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	eventID := events.EventID(c)
	room := &models.BreakoutRoom{EventID: eventID, Name: name, MaxParticipants: max}
	if err := h.repo.Create(c.Request.Context(), room); err != nil {
		h.logger.Error("create room", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to create room")
		return
	}
	h.pub.PublishChange(eventID, models.TableBreakoutRooms, realtime.ChangeInsert, room)
	response.Created(c, room)
}

// List handles GET /events/:id/rooms.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListActive(c.Request.Context(), events.EventID(c))
	if err != nil {
		h.logger.Error("list rooms", zap.Error(err))
		response.Internal(c, "failed to list rooms")
		return
	}
	response.OK(c, list)
}

// Current handles GET /events/:id/rooms/current. Data is null when the user is in no room.
func (h *Handler) Current(c *gin.Context) {
	userID, _ := auth.UserID(c)
	m, err := h.repo.CurrentRoom(c.Request.Context(), events.EventID(c), userID)
	if errors.Is(err, pgx.ErrNoRows) {
		response.OK(c, nil)
		return
	}
	if err != nil {
		h.logger.Error("current room", zap.Error(err))
		response.Internal(c, "failed to load current room")
		return
	}
	response.OK(c, m)
}

func (h *Handler) loadRoom(c *gin.Context) (*models.BreakoutRoom, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return nil, false
	}
	room, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		response.NotFound(c, "room not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get room", zap.String("room_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load room")
		return nil, false
	}
	return room, true
}

// Join handles POST /rooms/:id/join.
func (h *Handler) Join(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	if !room.IsActive {
		response.Conflict(c, "room is not active")
		return
	}
	userID, _ := auth.UserID(c)
	m, err := h.repo.Join(c.Request.Context(), room, userID)
	if errors.Is(err, ErrRoomFull) {
		response.Conflict(c, "Room is full")
		return
	}
	if err != nil {
		h.logger.Error("join room", zap.String("room_id", room.ID.String()), zap.Error(err))
		response.Internal(c, "failed to join room")
		return
	}
	h.pub.PublishChange(room.EventID, models.TableBreakoutRoomParticipants, realtime.ChangeInsert, m)
	h.activity.Record(c.Request.Context(), room.EventID, userID, models.ActivityBreakoutJoin,
		map[string]any{"room_id": room.ID, "room_name": room.Name})
	response.OK(c, m)
}

// Leave handles POST /rooms/:id/leave.
func (h *Handler) Leave(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	userID, _ := auth.UserID(c)
	m, err := h.repo.Leave(c.Request.Context(), room.ID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		response.NotFound(c, "not in this room")
		return
	}
	if err != nil {
		h.logger.Error("leave room", zap.String("room_id", room.ID.String()), zap.Error(err))
		response.Internal(c, "failed to leave room")
		return
	}
	h.pub.PublishChange(room.EventID, models.TableBreakoutRoomParticipants, realtime.ChangeUpdate, m)
	h.activity.Record(c.Request.Context(), room.EventID, userID, models.ActivityBreakoutLeave,
		map[string]any{"room_id": room.ID})
	response.OK(c, m)
}
