package handler

import (
	"errors"
	"io"
	"net/http"

	"anoa.com/yogaschool/internal/modules/chat/dto"
	chatService "anoa.com/yogaschool/internal/modules/chat/service"
	"anoa.com/yogaschool/pkg/response"
	"anoa.com/yogaschool/pkg/validator"
	"github.com/gin-gonic/gin"
)

// EventPublisher pushes an event to every connection subscribed to a room.
type EventPublisher interface {
	PublishToRoom(roomID, event string, payload any)
}

type ChatHandler struct {
	rooms     chatService.RoomService
	messages  chatService.MessageService
	unread    chatService.UnreadTracker
	publisher EventPublisher
}

func NewChatHandler(rooms chatService.RoomService, messages chatService.MessageService, unread chatService.UnreadTracker, publisher EventPublisher) *ChatHandler {
	return &ChatHandler{
		rooms:     rooms,
		messages:  messages,
		unread:    unread,
		publisher: publisher,
	}
}

func (h *ChatHandler) ListUsers(c *gin.Context) {
	users, err := h.rooms.ListDirectory(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	creatorID, err := response.ResolveActor(c, req.CreatedBy)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	group, err := h.rooms.CreateGroup(c.Request.Context(), req.Name, req.Members, creatorID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, group)
}

func (h *ChatHandler) DeleteGroup(c *gin.Context) {
	userID, ok := h.bindActor(c)
	if !ok {
		return
	}

	groupID := c.Param("groupId")
	if err := h.rooms.DeleteGroup(c.Request.Context(), groupID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.publisher != nil {
		h.publisher.PublishToRoom(groupID, "group_deleted", gin.H{"groupId": groupID})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}

func (h *ChatHandler) LeaveGroup(c *gin.Context) {
	userID, ok := h.bindActor(c)
	if !ok {
		return
	}

	if _, err := h.rooms.LeaveGroup(c.Request.Context(), c.Param("groupId"), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left group successfully"})
}

func (h *ChatHandler) AddMembers(c *gin.Context) {
	var req dto.AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	actorID, err := response.ResolveActor(c, req.UserID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.rooms.AddMembers(c.Request.Context(), c.Param("groupId"), actorID, req.NewMembers)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) GetGroup(c *gin.Context) {
	group, err := h.rooms.GetGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, group)
}

func (h *ChatHandler) CreateOrGetDM(c *gin.Context) {
	var req dto.CreateDMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.ResolveActor(c, req.UserID1)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	dm, err := h.rooms.CreateOrGetDM(c.Request.Context(), userID, req.UserID2)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dm)
}

func (h *ChatHandler) ListMyChats(c *gin.Context) {
	userID, err := response.ResolveActor(c, c.Param("userId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	chats, err := h.rooms.ListMyChats(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) FetchMessages(c *gin.Context) {
	userID, err := response.ResolveActor(c, c.Param("userId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	messages, err := h.messages.FetchMessages(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) GetMessage(c *gin.Context) {
	message, err := h.messages.GetMessage(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := h.bindActor(c)
	if !ok {
		return
	}

	message, err := h.messages.DeleteMessage(c.Request.Context(), c.Param("messageId"), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully", "deletedMessage": message})
}

func (h *ChatHandler) ForwardMessage(c *gin.Context) {
	var req dto.ForwardMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.ResolveActor(c, req.UserID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	copies, err := h.messages.ForwardMessage(c.Request.Context(), req.MessageID, req.TargetChatIDs, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ForwardMessageResponse{Success: true, ForwardedMessages: copies})
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, err := response.ResolveActor(c, c.Param("userId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var count int64
	if roomID := c.Query("roomId"); roomID != "" {
		count, err = h.unread.RoomUnreadCount(c.Request.Context(), roomID, userID)
	} else {
		count, err = h.unread.UnreadCount(c.Request.Context(), userID)
	}
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

func (h *ChatHandler) MarkRoomRead(c *gin.Context) {
	userID, ok := h.bindActor(c)
	if !ok {
		return
	}

	if err := h.unread.MarkRoomRead(c.Request.Context(), c.Param("roomId"), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) SearchMessages(c *gin.Context) {
	userID, err := response.ResolveActor(c, c.Param("userId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	results, err := h.messages.SearchMessages(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// bindActor reads the optional {userId} body of delete/leave/mark-read calls.
func (h *ChatHandler) bindActor(c *gin.Context) (string, bool) {
	var req dto.ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return "", false
	}

	userID, err := response.ResolveActor(c, req.UserID)
	if err != nil {
		response.ResponseError(c, err)
		return "", false
	}
	return userID, true
}
