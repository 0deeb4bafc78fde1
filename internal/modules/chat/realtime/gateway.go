package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	chatService "anoa.com/yogaschool/internal/modules/chat/service"
	"anoa.com/yogaschool/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Gateway fans out chat changes to websocket connections. Messages are persisted
// through the MessageService before anything is published.
type Gateway struct {
	hub      *Hub
	rooms    chatService.RoomService
	messages chatService.MessageService
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, rooms chatService.RoomService, messages chatService.MessageService) *Gateway {
	return &Gateway{
		hub:      hub,
		rooms:    rooms,
		messages: messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades an authenticated request and serves the connection.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Realtime] failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(g.hub, g, conn, userID)
	g.hub.register(client)
	log.Printf("[Realtime] connection opened for user %s", userID)

	go client.writePump()
	// The request context ends when the handler returns, so events run detached from it.
	go client.readPump(context.Background())
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, in inboundEvent) {
	switch in.Event {
	case EventJoinRoom:
		g.joinRoom(c, in.Data)
	case EventRegisterUser:
		g.registerUser(c, in.Data)
	case EventSendMessage:
		g.sendMessage(ctx, c, in.Data)
	case EventDeleteGroup:
		g.deleteGroup(ctx, c, in.Data)
	case EventLeaveGroup:
		g.leaveGroup(c, in.Data)
	case EventDeleteMessage:
		g.deleteMessage(ctx, c, in.Data)
	case EventForwardMessage:
		g.forwardMessage(ctx, c, in.Data)
	default:
		c.emit(EventMessageError, errorPayload{Message: "Unknown event " + in.Event})
	}
}

// joinRoom subscribes without a membership check; history access is checked by the REST fetch.
func (g *Gateway) joinRoom(c *Client, data json.RawMessage) {
	roomID := decodeID(data, roomIDFrom)
	if roomID == "" {
		c.emit(EventMessageError, errorPayload{Message: "Room ID is required"})
		return
	}
	g.hub.joinRoom(c, roomID)
}

func (g *Gateway) registerUser(c *Client, data json.RawMessage) {
	userID := decodeID(data, userIDFrom)
	if userID != c.userID {
		c.emit(EventMessageError, errorPayload{Message: "Cannot register as another user"})
		return
	}
	g.hub.registerUser(c, userID)
}

func (g *Gateway) sendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.emit(EventMessageError, errorPayload{Message: "Invalid message payload"})
		return
	}
	senderID, ok := g.actor(c, p.SenderID)
	if !ok {
		return
	}

	sent, err := g.messages.SendMessage(ctx, chatService.SendMessageInput{
		RoomID:      p.RoomID,
		SenderID:    senderID,
		Content:     p.Content,
		MessageType: p.MessageType,
		FileURL:     p.FileURL,
		FileName:    p.FileName,
	})
	if err != nil {
		c.emit(EventMessageError, errorPayload{Message: apperror.Message(err)})
		return
	}

	m := sent.Message
	g.hub.PublishToRoom(m.RoomID, EventReceiveMessage, m)
	notice := notificationPayload{RoomID: m.RoomID, MessageID: m.ID, SenderID: m.SenderID, SenderName: m.SenderName}
	for _, userID := range sent.Recipients {
		g.hub.PublishToUser(userID, EventNewMessageNotification, notice)
	}
}

// deleteGroup only announces; the deletion itself goes through REST.
func (g *Gateway) deleteGroup(ctx context.Context, c *Client, data json.RawMessage) {
	var p groupPayload
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		c.emit(EventMessageError, errorPayload{Message: "Group ID is required"})
		return
	}
	userID, ok := g.actor(c, p.UserID)
	if !ok {
		return
	}

	group, err := g.rooms.GetGroup(ctx, p.GroupID)
	if err != nil || !group.CreatedByUser(userID) {
		return
	}
	g.hub.PublishToRoom(p.GroupID, EventGroupDeleted, map[string]string{"groupId": p.GroupID})
}

func (g *Gateway) leaveGroup(c *Client, data json.RawMessage) {
	var p groupPayload
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == "" {
		c.emit(EventMessageError, errorPayload{Message: "Group ID is required"})
		return
	}
	g.hub.PublishToRoom(p.GroupID, EventUserLeftGroup, p)
}

func (g *Gateway) deleteMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var p deleteMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == "" {
		c.emit(EventMessageError, errorPayload{Message: "Message ID is required"})
		return
	}
	userID, ok := g.actor(c, p.UserID)
	if !ok {
		return
	}

	message, err := g.messages.GetMessage(ctx, p.MessageID)
	if err != nil || !message.IsDeleted || message.SenderID != userID {
		return
	}
	g.hub.PublishToRoom(message.RoomID, EventMessageDeleted, messageDeletedPayload{MessageID: message.ID, RoomID: message.RoomID})
}

func (g *Gateway) forwardMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var p forwardPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.emit(EventMessageError, errorPayload{Message: "Invalid forward payload"})
		return
	}

	for _, ref := range p.ForwardedMessages {
		message, err := g.messages.GetMessage(ctx, ref.ID)
		if err != nil || !message.IsForwarded {
			continue
		}
		g.hub.PublishToRoom(message.RoomID, EventReceiveMessage, message)
	}
}

// actor resolves the user an event acts for against the authenticated connection.
func (g *Gateway) actor(c *Client, claimed string) (string, bool) {
	if claimed == "" || claimed == c.userID {
		return c.userID, true
	}
	c.emit(EventMessageError, errorPayload{Message: "Cannot act on behalf of another user"})
	return "", false
}
