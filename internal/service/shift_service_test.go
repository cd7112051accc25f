package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
)

func testScheduleConfig() config.ScheduleConfig {
	return config.ScheduleConfig{Timezone: "UTC", MaxRecurringOccurrences: 10}
}

func setupTestShiftService() (*fixture, ShiftService) {
	f := newFixture()
	return f, NewShiftService(f.repo, testScheduleConfig(), zap.NewNop())
}

func strPtr(s string) *string { return &s }

// ── Create ──

func TestShiftService_Create_Validation(t *testing.T) {
	f, svc := setupTestShiftService()
	ctx := context.Background()

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"结束早于开始", f.at(17), f.at(9), ErrShiftInvalidInterval},
		{"结束等于开始", f.at(9), f.at(9), ErrShiftInvalidInterval},
		{"开始在过去", time.Now().Add(-2 * time.Hour), time.Now().Add(time.Hour), ErrShiftStartInPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, f.orgID, &dto.CreateShiftRequest{StartTime: tt.start, EndTime: tt.end})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestShiftService_Create_Unassigned(t *testing.T) {
	f, svc := setupTestShiftService()

	resp, err := svc.Create(context.Background(), f.orgID, &dto.CreateShiftRequest{StartTime: f.at(9), EndTime: f.at(17)})
	require.NoError(t, err)
	assert.Nil(t, resp.UserID)
	assert.Equal(t, f.orgID, resp.OrganizationID)
	assert.Equal(t, f.at(9).Format(time.RFC3339), resp.StartTime)
}

func TestShiftService_Create_AssignedOverlap(t *testing.T) {
	f, svc := setupTestShiftService()
	ctx := context.Background()
	alice := f.addUser("Alice")
	f.addShift(alice, 9, 17)

	_, err := svc.Create(ctx, f.orgID, &dto.CreateShiftRequest{StartTime: f.at(16), EndTime: f.at(20), UserID: &alice})
	assert.True(t, errors.Is(err, ErrShiftOverlap))

	// 首尾相接不算重叠
	_, err = svc.Create(ctx, f.orgID, &dto.CreateShiftRequest{StartTime: f.at(17), EndTime: f.at(20), UserID: &alice})
	require.NoError(t, err)
}

func TestShiftService_Create_AssigneeOtherOrganization(t *testing.T) {
	f, svc := setupTestShiftService()
	outsider := f.addUserIn(f.addOrg("Globex"), "Eve", model.RoleEmployee)

	_, err := svc.Create(context.Background(), f.orgID, &dto.CreateShiftRequest{StartTime: f.at(9), EndTime: f.at(17), UserID: &outsider})
	assert.True(t, errors.Is(err, ErrAssigneeNotFound))
}

// ── CreateRecurring ──

func TestShiftService_CreateRecurring(t *testing.T) {
	f, svc := setupTestShiftService()
	alice := f.addUser("Alice")

	shifts, err := svc.CreateRecurring(context.Background(), f.orgID, &dto.CreateRecurringShiftRequest{
		StartTime: f.at(9),
		EndTime:   f.at(17),
		UserID:    &alice,
		RRule:     "RRULE:FREQ=DAILY;COUNT=3",
	})
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	for i, s := range shifts {
		assert.Equal(t, f.at(9+24*i).Format(time.RFC3339), s.StartTime)
		assert.Equal(t, f.at(17+24*i).Format(time.RFC3339), s.EndTime)
	}
}

func TestShiftService_CreateRecurring_Rejections(t *testing.T) {
	f, svc := setupTestShiftService()
	alice := f.addUser("Alice")
	f.addShift(alice, 48+10, 48+12) // 第三天与重复班次重叠

	tests := []struct {
		name    string
		rule    string
		userID  *string
		wantErr error
	}{
		{"无终止条件", "FREQ=DAILY", nil, ErrRecurrenceInvalid},
		{"语法错误", "FREQ=SOMETIMES;COUNT=2", nil, ErrRecurrenceInvalid},
		{"超过上限", "FREQ=DAILY;COUNT=11", nil, ErrRecurrenceTooMany},
		{"UNTIL 超过上限", "FREQ=HOURLY;UNTIL=" + f.at(24*30).Format("20060102T150405Z"), nil, ErrRecurrenceTooMany},
		{"实例重叠", "FREQ=DAILY;COUNT=5", &alice, ErrShiftOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRecurring(context.Background(), f.orgID, &dto.CreateRecurringShiftRequest{
				StartTime: f.at(9),
				EndTime:   f.at(17),
				UserID:    tt.userID,
				RRule:     tt.rule,
			})
			assert.True(t, errors.Is(err, tt.wantErr), "期望 %v，实际: %v", tt.wantErr, err)
		})
	}

	// 失败时不创建任何班次
	all, err := svc.ListByOrganization(context.Background(), f.orgID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// ── GetByID ──

func TestShiftService_GetByID_CrossOrganization(t *testing.T) {
	f, svc := setupTestShiftService()
	other := f.addOrg("Globex")
	theirs := f.addShiftIn(other, "", 9, 17)

	_, err := svc.GetByID(context.Background(), f.orgID, theirs)
	assert.True(t, errors.Is(err, ErrShiftNotFound))

	resp, err := svc.GetByID(context.Background(), other, theirs)
	require.NoError(t, err)
	assert.Equal(t, theirs, resp.ID)
}

// ── Update ──

func TestShiftService_Update_ExcludesSelfFromOverlap(t *testing.T) {
	f, svc := setupTestShiftService()
	alice := f.addUser("Alice")
	s1 := f.addShift(alice, 9, 17)

	// 延长自己的班次不应与自身冲突
	resp, err := svc.Update(context.Background(), f.orgID, s1, &dto.UpdateShiftRequest{StartTime: f.at(8), EndTime: f.at(18), UserID: &alice})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Version)
}

func TestShiftService_Update_NewOwnerOverlap(t *testing.T) {
	f, svc := setupTestShiftService()
	alice := f.addUser("Alice")
	bob := f.addUser("Bob")
	s1 := f.addShift(alice, 9, 17)
	f.addShift(bob, 10, 11)

	_, err := svc.Update(context.Background(), f.orgID, s1, &dto.UpdateShiftRequest{StartTime: f.at(9), EndTime: f.at(17), UserID: &bob})
	assert.True(t, errors.Is(err, ErrShiftOverlap))
	assert.Equal(t, alice, *f.shift(s1).UserID)
}

func TestShiftService_Update_OwnerChangeSupersedesRequests(t *testing.T) {
	f, svc := setupTestShiftService()
	ctx := context.Background()
	swaps := NewSwapService(f.repo, nil, zap.NewNop())
	alice := f.addUser("Alice")
	bob := f.addUser("Bob")
	s1 := f.addShift(alice, 9, 17)

	listing, err := swaps.Initiate(ctx, f.orgID, s1, alice)
	require.NoError(t, err)

	_, err = svc.Update(ctx, f.orgID, s1, &dto.UpdateShiftRequest{StartTime: f.at(9), EndTime: f.at(17), UserID: &bob})
	require.NoError(t, err)

	assert.False(t, f.shift(s1).IsUpForSwap)
	stored, ok := f.swap(listing.ID)
	require.True(t, ok)
	assert.Equal(t, model.SwapStatusCancelled, stored.Status)
	require.NoError(t, f.checkListingInvariant())
}

func TestShiftService_Update_Unassign(t *testing.T) {
	f, svc := setupTestShiftService()
	alice := f.addUser("Alice")
	s1 := f.addShift(alice, 9, 17)

	resp, err := svc.Update(context.Background(), f.orgID, s1, &dto.UpdateShiftRequest{StartTime: f.at(9), EndTime: f.at(17)})
	require.NoError(t, err)
	assert.Nil(t, resp.UserID)
}

func TestShiftService_Update_NotFound(t *testing.T) {
	f, svc := setupTestShiftService()
	theirs := f.addShiftIn(f.addOrg("Globex"), "", 9, 17)

	_, err := svc.Update(context.Background(), f.orgID, theirs, &dto.UpdateShiftRequest{StartTime: f.at(9), EndTime: f.at(17)})
	assert.True(t, errors.Is(err, ErrShiftNotFound))
}

// ── Delete ──

func TestShiftService_Delete_CascadesSwapRequests(t *testing.T) {
	f, svc := setupTestShiftService()
	ctx := context.Background()
	swaps := NewSwapService(f.repo, nil, zap.NewNop())
	alice := f.addUser("Alice")
	bob := f.addUser("Bob")
	s1 := f.addShift(alice, 9, 17)
	s2 := f.addShift(bob, 33, 41)

	// S2 作为目标班次被引用
	direct, err := swaps.ProposeDirect(ctx, f.orgID, s1, s2, alice)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, f.orgID, s2))

	_, ok := f.swap(direct.ID)
	assert.False(t, ok, "引用被删班次的申请应被移除")
	_, err = svc.GetByID(ctx, f.orgID, s2)
	assert.True(t, errors.Is(err, ErrShiftNotFound))
	assert.Empty(t, f.store.swaps)

	// S1 可以重新发起
	_, err = swaps.Initiate(ctx, f.orgID, s1, alice)
	require.NoError(t, err)
}

func TestShiftService_Delete_CrossOrganization(t *testing.T) {
	f, svc := setupTestShiftService()
	theirs := f.addShiftIn(f.addOrg("Globex"), "", 9, 17)

	err := svc.Delete(context.Background(), f.orgID, theirs)
	assert.True(t, errors.Is(err, ErrShiftNotFound))
	assert.Equal(t, theirs, f.shift(theirs).ShiftID)
}

// ── 查询 ──

func TestShiftService_Lists(t *testing.T) {
	f, svc := setupTestShiftService()
	ctx := context.Background()
	swaps := NewSwapService(f.repo, nil, zap.NewNop())
	alice := f.addUser("Alice")
	s1 := f.addShift(alice, 9, 17)
	f.addShift(alice, 33, 41)
	open := f.addShift("", 57, 65)

	_, err := swaps.Initiate(ctx, f.orgID, s1, alice)
	require.NoError(t, err)

	all, err := svc.ListByOrganization(ctx, f.orgID, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assigned, err := svc.ListByOrganization(ctx, f.orgID, true)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	claimable, err := svc.ListClaimable(ctx, f.orgID)
	require.NoError(t, err)
	ids := []string{claimable[0].ID, claimable[1].ID}
	assert.ElementsMatch(t, []string{s1, open}, ids)

	mine, err := svc.ListByUser(ctx, f.orgID, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	require.NotNil(t, mine[0].User)
	assert.Equal(t, "Alice", mine[0].User.FirstName)
}
