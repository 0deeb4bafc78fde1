package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/chat/repository"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   repository.Repository
	users  userRepo.UserRepository
	rooms  RoomService
	msgs   MessageService
	unread UnreadTracker
	index  *fakeIndex

	admin    *entity.User
	teacher  *entity.User
	student1 *entity.User
	student2 *entity.User
}

// newFixture registers an admin, a teacher and two students in that order.
func newFixture(t *testing.T, policy ForwardPolicy) *fixture {
	t.Helper()
	f := &fixture{
		repo:  repository.NewMemoryRepository(),
		users: userRepo.NewMemoryUserRepository(),
		index: newFakeIndex(),
	}
	f.rooms = NewRoomService(f.repo, f.users)
	f.msgs = NewMessageService(f.repo, f.users, MessageOptions{ForwardPolicy: policy, Index: f.index})
	f.unread = NewUnreadTracker(f.repo)

	f.admin = f.register(t, "Ada")
	f.teacher = f.register(t, "Tara")
	f.student1 = f.register(t, "Sam")
	f.student2 = f.register(t, "Sia")
	return f
}

func (f *fixture) register(t *testing.T, name string) *entity.User {
	t.Helper()
	u := &entity.User{Name: name, Email: strings.ToLower(name) + "@yoga.test", PasswordHash: "x"}
	require.NoError(t, f.users.Register(context.Background(), u))
	return u
}

func (f *fixture) group(t *testing.T, creator *entity.User, members ...*entity.User) *entity.Chat {
	t.Helper()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	g, err := f.rooms.CreateGroup(context.Background(), "Pranayama", ids, creator.ID)
	require.NoError(t, err)
	return g
}

func (f *fixture) send(t *testing.T, roomID string, sender *entity.User, content string) *entity.Message {
	t.Helper()
	sent, err := f.msgs.SendMessage(context.Background(), SendMessageInput{RoomID: roomID, SenderID: sender.ID, Content: content})
	require.NoError(t, err)
	return sent.Message
}

// fakeIndex does substring matching over indexed content.
type fakeIndex struct {
	mu   sync.Mutex
	docs map[string]*entity.Message
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]*entity.Message)}
}

func (i *fakeIndex) IndexMessages(ctx context.Context, messages []*entity.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, m := range messages {
		clone := *m
		i.docs[m.ID] = &clone
	}
	return nil
}

func (i *fakeIndex) RemoveMessage(ctx context.Context, messageID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs, messageID)
	return nil
}

func (i *fakeIndex) SearchMessageIDs(ctx context.Context, query string, roomIDs []string, limit int) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	var ids []string
	for id, m := range i.docs {
		if containsID(roomIDs, m.RoomID) && strings.Contains(strings.ToLower(m.Content), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
