package service

import (
	"context"
	"sync"
	"testing"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMRoomIDIsSymmetric(t *testing.T) {
	assert.Equal(t, DMRoomID("b", "a"), DMRoomID("a", "b"))
	assert.Equal(t, "dm_a_b", DMRoomID("b", "a"))
}

func TestCanAccessChat(t *testing.T) {
	assert.False(t, CanAccessChat(nil))
	assert.False(t, CanAccessChat(&entity.User{Role: entity.RoleAdmin}))
	assert.True(t, CanAccessChat(&entity.User{Role: entity.RoleTeacher}))
	assert.True(t, CanAccessChat(&entity.User{Role: entity.RoleStudent}))
}

func TestListDirectoryExcludesAdmins(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)

	users, err := f.rooms.ListDirectory(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
		assert.NotEqual(t, entity.RoleAdmin, u.Role)
	}
	assert.Equal(t, []string{f.teacher.ID, f.student1.ID, f.student2.ID}, ids)
}

func TestCreateGroup(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()

	g, err := f.rooms.CreateGroup(ctx, "  Ashtanga  ", []string{f.student1.ID, f.student1.ID, f.teacher.ID}, f.teacher.ID)
	require.NoError(t, err)
	assert.True(t, g.IsGroup)
	assert.Equal(t, "Ashtanga", g.Name)
	assert.True(t, g.CreatedByUser(f.teacher.ID))
	assert.ElementsMatch(t, []string{f.teacher.ID, f.student1.ID}, g.Members)

	_, err = f.rooms.CreateGroup(ctx, "Admins", []string{f.teacher.ID}, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.rooms.CreateGroup(ctx, " ", nil, f.teacher.ID)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = f.rooms.CreateGroup(ctx, "Ghosts", nil, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteGroup(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()
	g := f.group(t, f.teacher, f.student1)
	msg := f.send(t, g.ID, f.student1, "namaste")

	assert.ErrorIs(t, f.rooms.DeleteGroup(ctx, g.ID, f.student1.ID), apperror.ErrForbidden)
	assert.ErrorIs(t, f.rooms.DeleteGroup(ctx, g.ID, f.admin.ID), apperror.ErrForbidden)
	assert.ErrorIs(t, f.rooms.DeleteGroup(ctx, "missing", f.teacher.ID), apperror.ErrNotFound)

	require.NoError(t, f.rooms.DeleteGroup(ctx, g.ID, f.teacher.ID))

	_, err := f.rooms.GetGroup(ctx, g.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// history stays addressable by message id
	orphan, err := f.msgs.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, orphan.RoomID)
}

func TestLeaveGroupCollapsesEmptyGroup(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()
	g := f.group(t, f.teacher, f.student1)

	_, err := f.rooms.LeaveGroup(ctx, g.ID, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.rooms.LeaveGroup(ctx, "missing", f.student1.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	collapsed, err := f.rooms.LeaveGroup(ctx, g.ID, f.teacher.ID)
	require.NoError(t, err)
	assert.False(t, collapsed)

	detail, err := f.rooms.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.student1.ID}, detail.Members)

	collapsed, err = f.rooms.LeaveGroup(ctx, g.ID, f.student1.ID)
	require.NoError(t, err)
	assert.True(t, collapsed)

	_, err = f.rooms.GetGroup(ctx, g.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAddMembers(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()
	g := f.group(t, f.teacher, f.student1)

	_, err := f.rooms.AddMembers(ctx, g.ID, f.teacher.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = f.rooms.AddMembers(ctx, g.ID, f.student1.ID, []string{f.student2.ID})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.rooms.AddMembers(ctx, "missing", f.teacher.ID, []string{f.student2.ID})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	res, err := f.rooms.AddMembers(ctx, g.ID, f.teacher.ID, []string{f.student1.ID, f.student2.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AddedCount)
	assert.ElementsMatch(t, []string{f.teacher.ID, f.student1.ID, f.student2.ID}, res.Group.Members)

	_, err = f.rooms.AddMembers(ctx, g.ID, f.teacher.ID, []string{f.student1.ID, f.student2.ID})
	assert.ErrorIs(t, err, apperror.ErrNoOp)
	assert.Equal(t, "All selected members are already in the group", apperror.Message(err))
}

func TestConcurrentAddMembersAddsOnce(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()
	g := f.group(t, f.teacher)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.rooms.AddMembers(ctx, g.ID, f.teacher.ID, []string{f.student1.ID}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	detail, err := f.rooms.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Members, 2)
}

func TestGetGroupIncludesMemberDetails(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	g := f.group(t, f.teacher, f.student1)

	detail, err := f.rooms.GetGroup(context.Background(), g.ID)
	require.NoError(t, err)
	require.Len(t, detail.MemberDetails, 2)

	names := []string{detail.MemberDetails[0].Name, detail.MemberDetails[1].Name}
	assert.ElementsMatch(t, []string{"Tara", "Sam"}, names)
}

func TestCreateOrGetDM(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()

	dm, err := f.rooms.CreateOrGetDM(ctx, f.student1.ID, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, DMRoomID(f.teacher.ID, f.student1.ID), dm.ID)
	assert.False(t, dm.IsGroup)
	assert.Equal(t, "Tara", dm.Name)
	assert.ElementsMatch(t, []string{f.teacher.ID, f.student1.ID}, dm.Members)

	again, err := f.rooms.CreateOrGetDM(ctx, f.teacher.ID, f.student1.ID)
	require.NoError(t, err)
	assert.Equal(t, dm.ID, again.ID)

	_, err = f.rooms.CreateOrGetDM(ctx, f.student1.ID, f.student2.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.rooms.CreateOrGetDM(ctx, f.admin.ID, f.student1.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.rooms.CreateOrGetDM(ctx, f.teacher.ID, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.rooms.CreateOrGetDM(ctx, f.teacher.ID, f.teacher.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListMyChatsRenamesDMs(t *testing.T) {
	f := newFixture(t, ForwardAnywhere)
	ctx := context.Background()
	g := f.group(t, f.student1, f.teacher)
	dm, err := f.rooms.CreateOrGetDM(ctx, f.student1.ID, f.teacher.ID)
	require.NoError(t, err)

	teacherChats, err := f.rooms.ListMyChats(ctx, f.teacher.ID)
	require.NoError(t, err)
	require.Len(t, teacherChats, 2)
	assert.Equal(t, g.ID, teacherChats[0].ID)
	assert.Equal(t, dm.ID, teacherChats[1].ID)
	assert.Equal(t, "Sam", teacherChats[1].Name)
	assert.Equal(t, f.student1.ID, teacherChats[1].OtherUserID)

	studentChats, err := f.rooms.ListMyChats(ctx, f.student1.ID)
	require.NoError(t, err)
	require.Len(t, studentChats, 2)
	assert.Equal(t, "Tara", studentChats[1].Name)

	// the name follows the counterpart's current name
	renamed := *f.teacher
	renamed.Name = "Tara Devi"
	require.NoError(t, f.users.Update(ctx, &renamed))
	studentChats, err = f.rooms.ListMyChats(ctx, f.student1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tara Devi", studentChats[1].Name)

	_, err = f.rooms.ListMyChats(ctx, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	empty, err := f.rooms.ListMyChats(ctx, f.student2.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
