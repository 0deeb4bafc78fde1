package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/middleware"
	"anoa.com/yogaschool/internal/modules/chat/dto"
	chatRepo "anoa.com/yogaschool/internal/modules/chat/repository"
	chatService "anoa.com/yogaschool/internal/modules/chat/service"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "chat-handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type published struct {
	roomID  string
	event   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishToRoom(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{roomID: roomID, event: event, payload: payload})
}

type testEnv struct {
	router    *gin.Engine
	rooms     chatService.RoomService
	msgs      chatService.MessageService
	publisher *recordingPublisher

	admin   *entity.User
	teacher *entity.User
	student *entity.User
	other   *entity.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := userRepo.NewMemoryUserRepository()
	repo := chatRepo.NewMemoryRepository()

	env := &testEnv{
		rooms:     chatService.NewRoomService(repo, users),
		msgs:      chatService.NewMessageService(repo, users, chatService.MessageOptions{}),
		publisher: &recordingPublisher{},
	}
	register := func(name string) *entity.User {
		u := &entity.User{Name: name, Email: strings.ToLower(name) + "@yoga.test", PasswordHash: "x"}
		require.NoError(t, users.Register(context.Background(), u))
		return u
	}
	env.admin = register("Ada")
	env.teacher = register("Tara")
	env.student = register("Sam")
	env.other = register("Sia")

	h := NewChatHandler(env.rooms, env.msgs, chatService.NewUnreadTracker(repo), env.publisher)
	auth := middleware.NewAuthMiddleware(users, testSecret)

	r := gin.New()
	chat := r.Group("/api/chat", auth.RequireAuth())
	chat.GET("/users", h.ListUsers)
	chat.POST("/groups", h.CreateGroup)
	chat.GET("/groups/:groupId", h.GetGroup)
	chat.DELETE("/groups/:groupId", h.DeleteGroup)
	chat.POST("/groups/:groupId/leave", h.LeaveGroup)
	chat.POST("/groups/:groupId/add-members", h.AddMembers)
	chat.POST("/dm", h.CreateOrGetDM)
	chat.GET("/my-chats/:userId", h.ListMyChats)
	chat.POST("/messages/forward", h.ForwardMessage)
	chat.GET("/messages/by-id/:messageId", h.GetMessage)
	chat.GET("/messages/:roomId/:userId", h.FetchMessages)
	chat.DELETE("/messages/:messageId", h.DeleteMessage)
	chat.GET("/unread-count/:userId", h.UnreadCount)
	chat.POST("/mark-read/:roomId", h.MarkRoomRead)
	chat.GET("/search/:userId", h.SearchMessages)
	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, as *entity.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   as.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	return decodeBody[map[string]string](t, w)["error"]
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, nil, http.MethodGet, "/api/chat/users", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.student, http.MethodGet, "/api/chat/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	users := decodeBody[[]dto.UserSummary](t, w)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.NotEqual(t, entity.RoleAdmin, u.Role)
	}
	assert.NotContains(t, w.Body.String(), "password")
}

func TestGroupLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.teacher, http.MethodPost, "/api/chat/groups", gin.H{"name": "Hatha", "members": []string{env.student.ID}})
	require.Equal(t, http.StatusCreated, w.Code)
	group := decodeBody[entity.Chat](t, w)
	assert.Equal(t, env.teacher.ID, *group.CreatedBy)
	assert.ElementsMatch(t, []string{env.teacher.ID, env.student.ID}, group.Members)

	w = env.do(t, env.teacher, http.MethodGet, "/api/chat/groups/"+group.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeBody[map[string]any](t, w)
	assert.Equal(t, group.ID, detail["id"])
	assert.Len(t, detail["memberDetails"], 2)

	w = env.do(t, env.student, http.MethodPost, "/api/chat/groups/"+group.ID+"/add-members", gin.H{"newMembers": []string{env.other.ID}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, env.teacher, http.MethodPost, "/api/chat/groups/"+group.ID+"/add-members", gin.H{"userId": env.teacher.ID, "newMembers": []string{env.other.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	added := decodeBody[dto.AddMembersResponse](t, w)
	assert.Equal(t, 1, added.AddedCount)
	assert.Len(t, added.Group.Members, 3)

	w = env.do(t, env.teacher, http.MethodPost, "/api/chat/groups/"+group.ID+"/add-members", gin.H{"newMembers": []string{env.other.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All selected members are already in the group", errorMessage(t, w))

	w = env.do(t, env.other, http.MethodPost, "/api/chat/groups/"+group.ID+"/leave", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, env.student, http.MethodDelete, "/api/chat/groups/"+group.ID, gin.H{"userId": env.student.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, env.publisher.events)

	w = env.do(t, env.teacher, http.MethodDelete, "/api/chat/groups/"+group.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, group.ID, env.publisher.events[0].roomID)
	assert.Equal(t, "group_deleted", env.publisher.events[0].event)

	w = env.do(t, env.teacher, http.MethodGet, "/api/chat/groups/"+group.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateGroupValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.teacher, http.MethodPost, "/api/chat/groups", gin.H{"members": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name is required", errorMessage(t, w))

	w = env.do(t, env.admin, http.MethodPost, "/api/chat/groups", gin.H{"name": "Staff"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestActorMustMatchToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.student, http.MethodPost, "/api/chat/groups", gin.H{"name": "Spoof", "createdBy": env.teacher.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot act on behalf of another user", errorMessage(t, w))

	w = env.do(t, env.student, http.MethodGet, "/api/chat/my-chats/"+env.teacher.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDirectMessagesAndHistory(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.teacher, http.MethodPost, "/api/chat/dm", gin.H{"userId1": env.teacher.ID, "userId2": env.student.ID})
	require.Equal(t, http.StatusOK, w.Code)
	dm := decodeBody[entity.Chat](t, w)
	assert.Equal(t, chatService.DMRoomID(env.teacher.ID, env.student.ID), dm.ID)

	w = env.do(t, env.student, http.MethodPost, "/api/chat/dm", gin.H{"userId2": env.teacher.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dm.ID, decodeBody[entity.Chat](t, w).ID)

	w = env.do(t, env.student, http.MethodPost, "/api/chat/dm", gin.H{"userId2": env.other.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := env.msgs.SendMessage(context.Background(), chatService.SendMessageInput{RoomID: dm.ID, SenderID: env.teacher.ID, Content: "hello"})
	require.NoError(t, err)

	w = env.do(t, env.student, http.MethodGet, "/api/chat/unread-count/"+env.student.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody[dto.UnreadCountResponse](t, w).UnreadCount)

	w = env.do(t, env.student, http.MethodGet, "/api/chat/messages/"+dm.ID+"/"+env.student.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody[[]entity.Message](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)

	w = env.do(t, env.other, http.MethodGet, "/api/chat/messages/"+dm.ID+"/"+env.other.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, env.student, http.MethodPost, "/api/chat/mark-read/"+dm.ID, gin.H{"userId": env.student.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = env.do(t, env.student, http.MethodGet, "/api/chat/unread-count/"+env.student.ID+"?roomId="+dm.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decodeBody[dto.UnreadCountResponse](t, w).UnreadCount)

	w = env.do(t, env.teacher, http.MethodDelete, "/api/chat/messages/"+history[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, env.student, http.MethodGet, "/api/chat/messages/by-id/"+history[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decodeBody[entity.Message](t, w)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, entity.DeletedMessagePlaceholder, deleted.Content)

	w = env.do(t, env.student, http.MethodGet, "/api/chat/my-chats/"+env.student.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	chats := decodeBody[[]entity.Chat](t, w)
	require.Len(t, chats, 1)
	assert.Equal(t, "Tara", chats[0].Name)
}

func TestAdminHasNoChatVisibility(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.admin, http.MethodGet, "/api/chat/my-chats/"+env.admin.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admins cannot access chat features", errorMessage(t, w))
}

func TestDeleteMessageNotFoundAndForbidden(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.rooms.CreateGroup(context.Background(), "Yin", []string{env.student.ID}, env.teacher.ID)
	require.NoError(t, err)
	sent, err := env.msgs.SendMessage(context.Background(), chatService.SendMessageInput{RoomID: g.ID, SenderID: env.student.ID, Content: "mine"})
	require.NoError(t, err)

	w := env.do(t, env.teacher, http.MethodDelete, "/api/chat/messages/"+sent.Message.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, env.teacher, http.MethodDelete, "/api/chat/messages/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, env.student, http.MethodDelete, "/api/chat/messages/"+sent.Message.ID, gin.H{"userId": env.student.ID})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestForwardMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	source, err := env.rooms.CreateGroup(ctx, "Source", []string{env.student.ID}, env.teacher.ID)
	require.NoError(t, err)
	target, err := env.rooms.CreateGroup(ctx, "Target", []string{env.other.ID}, env.teacher.ID)
	require.NoError(t, err)
	sent, err := env.msgs.SendMessage(ctx, chatService.SendMessageInput{RoomID: source.ID, SenderID: env.student.ID, Content: "sequence"})
	require.NoError(t, err)

	w := env.do(t, env.teacher, http.MethodPost, "/api/chat/messages/forward", gin.H{"messageId": sent.Message.ID, "targetChatIds": []string{target.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeBody[dto.ForwardMessageResponse](t, w)
	assert.True(t, res.Success)
	require.Len(t, res.ForwardedMessages, 1)
	assert.True(t, res.ForwardedMessages[0].IsForwarded)
	assert.Equal(t, target.ID, res.ForwardedMessages[0].RoomID)

	w = env.do(t, env.teacher, http.MethodPost, "/api/chat/messages/forward", gin.H{"targetChatIds": []string{target.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message ID is required", errorMessage(t, w))

	w = env.do(t, env.admin, http.MethodPost, "/api/chat/messages/forward", gin.H{"messageId": sent.Message.ID, "targetChatIds": []string{target.ID}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSearchWithoutIndex(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.student, http.MethodGet, "/api/chat/search/"+env.student.ID+"?q=mat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(t, env.student, http.MethodGet, "/api/chat/search/"+env.student.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
