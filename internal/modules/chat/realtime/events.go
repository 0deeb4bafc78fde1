package realtime

import (
	"encoding/json"
	"strings"
)

// Client to server events.
const (
	EventJoinRoom       = "join_room"
	EventRegisterUser   = "register_user"
	EventSendMessage    = "send_message"
	EventDeleteGroup    = "delete_group"
	EventLeaveGroup     = "leave_group"
	EventDeleteMessage  = "delete_message"
	EventForwardMessage = "forward_message"
)

// Server to client events.
const (
	EventReceiveMessage         = "receive_message"
	EventGroupDeleted           = "group_deleted"
	EventUserLeftGroup          = "user_left_group"
	EventMessageDeleted         = "message_deleted"
	EventNewMessageNotification = "new_message_notification"
	EventMessageError           = "message_error"
)

// inboundEvent and outboundEvent share the {"event","data"} envelope.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type roomRef struct {
	RoomID string `json:"roomId"`
}

type userRef struct {
	UserID string `json:"userId"`
}

type sendMessagePayload struct {
	RoomID      string  `json:"roomId"`
	SenderID    string  `json:"senderId"`
	Content     string  `json:"content"`
	MessageType string  `json:"messageType"`
	FileURL     *string `json:"fileUrl"`
	FileName    *string `json:"fileName"`
}

type groupPayload struct {
	GroupID  string `json:"groupId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type deleteMessagePayload struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
}

type forwardPayload struct {
	ForwardedMessages []struct {
		ID string `json:"id"`
	} `json:"forwardedMessages"`
}

type notificationPayload struct {
	RoomID     string `json:"roomId"`
	MessageID  string `json:"messageId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
}

type messageDeletedPayload struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// decodeID accepts either a bare JSON string or an object carrying the id.
func decodeID(raw json.RawMessage, fromObject func(json.RawMessage) (string, error)) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	id, err := fromObject(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(id)
}

func roomIDFrom(raw json.RawMessage) (string, error) {
	var ref roomRef
	err := json.Unmarshal(raw, &ref)
	return ref.RoomID, err
}

func userIDFrom(raw json.RawMessage) (string, error) {
	var ref userRef
	err := json.Unmarshal(raw, &ref)
	return ref.UserID, err
}
