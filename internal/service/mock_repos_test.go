package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	pkgerrors "shiftmate/backend/pkg/errors"
)

// ── 内存存储 ──────────────────────────────────────────────
//
// 四个 mock 仓库共享同一份数据；读取返回副本，写入按版本号校验，
// 行为与 PostgreSQL 实现保持一致。Repository 无 db 时事务串行执行。
// ─────────────────────────────────────────────────────────────

type memStore struct {
	mu     sync.Mutex
	seq    int
	orgs   map[string]model.Organization
	users  map[string]model.User
	shifts map[string]model.Shift
	swaps  map[string]model.SwapRequest
}

func newMemStore() *memStore {
	return &memStore{
		orgs:   make(map[string]model.Organization),
		users:  make(map[string]model.User),
		shifts: make(map[string]model.Shift),
		swaps:  make(map[string]model.SwapRequest),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// newMockRepository 基于内存存储组装 Repository 聚合
func newMockRepository(store *memStore) *repository.Repository {
	return &repository.Repository{
		Organization: &mockOrgRepo{store},
		User:         &mockUserRepo{store},
		Shift:        &mockShiftRepo{store},
		SwapRequest:  &mockSwapRepo{store},
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ── Mock OrganizationRepository ──

type mockOrgRepo struct{ s *memStore }

func (m *mockOrgRepo) Create(_ context.Context, org *model.Organization) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.orgs {
		if strings.EqualFold(o.Name, org.Name) {
			return gorm.ErrDuplicatedKey
		}
	}
	if org.OrganizationID == "" {
		org.OrganizationID = m.s.nextID("org")
	}
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	m.s.orgs[org.OrganizationID] = *org
	return nil
}

func (m *mockOrgRepo) GetByID(_ context.Context, id string) (*model.Organization, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if o, ok := m.s.orgs[id]; ok {
		return &o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrgRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Organization, error) {
	return m.GetByID(ctx, id)
}

func (m *mockOrgRepo) GetByName(_ context.Context, name string) (*model.Organization, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.orgs {
		if strings.EqualFold(o.Name, name) {
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrgRepo) List(_ context.Context) ([]model.Organization, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	result := make([]model.Organization, 0, len(m.s.orgs))
	for _, o := range m.s.orgs {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockOrgRepo) Update(_ context.Context, org *model.Organization) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.orgs[org.OrganizationID]; !ok {
		return gorm.ErrRecordNotFound
	}
	org.UpdatedAt = time.Now().UTC()
	m.s.orgs[org.OrganizationID] = *org
	return nil
}

func (m *mockOrgRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.orgs, id)
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	m.s.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByResetTokenHash(_ context.Context, hash string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == hash {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	m.s.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) ListByOrganization(_ context.Context, orgID string) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.User
	for _, u := range m.s.users {
		if u.BelongsTo(orgID) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error) {
	users, _ := m.ListByOrganization(ctx, orgID)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return ids, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.users, id)
	return nil
}

func (m *mockUserRepo) DeleteByIDs(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, id := range ids {
		delete(m.s.users, id)
	}
	return nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct{ s *memStore }

// withUser 模拟 Preload("User")，调用方持有锁
func (m *mockShiftRepo) withUser(sh model.Shift) model.Shift {
	sh.User = nil
	if sh.UserID != nil {
		if u, ok := m.s.users[*sh.UserID]; ok {
			sh.User = &u
		}
	}
	return sh
}

func (m *mockShiftRepo) insert(shift *model.Shift) {
	if shift.ShiftID == "" {
		shift.ShiftID = m.s.nextID("shift")
	}
	now := time.Now().UTC()
	shift.CreatedAt, shift.UpdatedAt = now, now
	shift.Version = 1
	stored := *shift
	stored.User = nil
	stored.UserID = copyString(shift.UserID)
	m.s.shifts[shift.ShiftID] = stored
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.insert(shift)
	return nil
}

func (m *mockShiftRepo) BatchCreate(_ context.Context, shifts []*model.Shift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, shift := range shifts {
		m.insert(shift)
	}
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sh, ok := m.s.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	sh = m.withUser(sh)
	sh.UserID = copyString(sh.UserID)
	return &sh, nil
}

func (m *mockShiftRepo) GetByIDForUpdate(_ context.Context, id string) (*model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sh, ok := m.s.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	sh.UserID = copyString(sh.UserID)
	return &sh, nil
}

func (m *mockShiftRepo) filter(keep func(sh model.Shift) bool) []model.Shift {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Shift
	for _, sh := range m.s.shifts {
		if keep(sh) {
			sh = m.withUser(sh)
			sh.UserID = copyString(sh.UserID)
			result = append(result, sh)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].ShiftID < result[j].ShiftID
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result
}

func (m *mockShiftRepo) ListByOrganization(_ context.Context, orgID string, onlyAssigned bool) ([]model.Shift, error) {
	return m.filter(func(sh model.Shift) bool {
		return sh.OrganizationID == orgID && (!onlyAssigned || sh.UserID != nil)
	}), nil
}

func (m *mockShiftRepo) ListClaimable(_ context.Context, orgID string) ([]model.Shift, error) {
	return m.filter(func(sh model.Shift) bool {
		return sh.OrganizationID == orgID && sh.IsClaimable()
	}), nil
}

func (m *mockShiftRepo) ListByUser(_ context.Context, orgID, userID string) ([]model.Shift, error) {
	return m.filter(func(sh model.Shift) bool {
		return sh.OrganizationID == orgID && sh.IsOwnedBy(userID)
	}), nil
}

func (m *mockShiftRepo) ListByOrganizationBetween(_ context.Context, orgID string, from, to time.Time) ([]model.Shift, error) {
	return m.filter(func(sh model.Shift) bool {
		return sh.OrganizationID == orgID && !sh.StartTime.Before(from) && sh.StartTime.Before(to)
	}), nil
}

func (m *mockShiftRepo) CountOverlapping(_ context.Context, userID string, iv model.Interval, excludeIDs []string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, sh := range m.s.shifts {
		if sh.IsOwnedBy(userID) && !containsID(excludeIDs, sh.ShiftID) && sh.Interval().Overlaps(iv) {
			n++
		}
	}
	return n, nil
}

func (m *mockShiftRepo) CountStartingBetween(_ context.Context, userID string, from, to time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, sh := range m.s.shifts {
		if sh.IsOwnedBy(userID) && !sh.StartTime.Before(from) && sh.StartTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.shifts[shift.ShiftID]
	if !ok || stored.Version != shift.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.UserID = copyString(shift.UserID)
	stored.StartTime = shift.StartTime
	stored.EndTime = shift.EndTime
	stored.IsUpForSwap = shift.IsUpForSwap
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	m.s.shifts[shift.ShiftID] = stored
	shift.Version = stored.Version
	return nil
}

func (m *mockShiftRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.shifts, id)
	return nil
}

func (m *mockShiftRepo) ListIDsByOrganization(_ context.Context, orgID string) ([]string, error) {
	var ids []string
	for _, sh := range m.filter(func(sh model.Shift) bool { return sh.OrganizationID == orgID }) {
		ids = append(ids, sh.ShiftID)
	}
	return ids, nil
}

func (m *mockShiftRepo) ListIDsByUser(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, sh := range m.filter(func(sh model.Shift) bool { return sh.IsOwnedBy(userID) }) {
		ids = append(ids, sh.ShiftID)
	}
	return ids, nil
}

func (m *mockShiftRepo) UnassignByUser(_ context.Context, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, sh := range m.s.shifts {
		if sh.IsOwnedBy(userID) {
			sh.UserID = nil
			sh.IsUpForSwap = false
			sh.Version++
			m.s.shifts[id] = sh
		}
	}
	return nil
}

func (m *mockShiftRepo) DeleteByIDs(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, id := range ids {
		delete(m.s.shifts, id)
	}
	return nil
}

// ── Mock SwapRequestRepository ──

type mockSwapRepo struct{ s *memStore }

// withDetails 模拟预加载双方班次与用户，调用方持有锁
func (m *mockSwapRepo) withDetails(r model.SwapRequest) model.SwapRequest {
	r.TargetUserID = copyString(r.TargetUserID)
	r.TargetShiftID = copyString(r.TargetShiftID)
	if sh, ok := m.s.shifts[r.ShiftID]; ok {
		r.Shift = &sh
	}
	if r.TargetShiftID != nil {
		if sh, ok := m.s.shifts[*r.TargetShiftID]; ok {
			r.TargetShift = &sh
		}
	}
	if u, ok := m.s.users[r.RequestingUserID]; ok {
		r.RequestingUser = &u
	}
	if r.TargetUserID != nil {
		if u, ok := m.s.users[*r.TargetUserID]; ok {
			r.TargetUser = &u
		}
	}
	return r
}

func (m *mockSwapRepo) Create(_ context.Context, req *model.SwapRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	// 对应部分唯一索引 (shift_id) WHERE status = 'pending'
	for _, r := range m.s.swaps {
		if r.ShiftID == req.ShiftID && r.Status == model.SwapStatusPending {
			return gorm.ErrDuplicatedKey
		}
	}
	if req.SwapRequestID == "" {
		req.SwapRequestID = m.s.nextID("swap")
	}
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	req.Version = 1
	stored := *req
	stored.TargetUserID = copyString(req.TargetUserID)
	stored.TargetShiftID = copyString(req.TargetShiftID)
	stored.Shift, stored.TargetShift, stored.RequestingUser, stored.TargetUser = nil, nil, nil, nil
	m.s.swaps[req.SwapRequestID] = stored
	return nil
}

func (m *mockSwapRepo) GetByID(_ context.Context, id string) (*model.SwapRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.swaps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r = m.withDetails(r)
	return &r, nil
}

func (m *mockSwapRepo) GetByIDForUpdate(_ context.Context, id string) (*model.SwapRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.swaps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.TargetUserID = copyString(r.TargetUserID)
	r.TargetShiftID = copyString(r.TargetShiftID)
	return &r, nil
}

func (m *mockSwapRepo) Update(_ context.Context, req *model.SwapRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.swaps[req.SwapRequestID]
	if !ok || stored.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = req.Status
	stored.TargetUserID = copyString(req.TargetUserID)
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	m.s.swaps[req.SwapRequestID] = stored
	req.Version = stored.Version
	return nil
}

func (m *mockSwapRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.swaps, id)
	return nil
}

func (m *mockSwapRepo) FindPendingByOfferingShift(_ context.Context, shiftID string) (*model.SwapRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.swaps {
		if r.ShiftID == shiftID && r.Status == model.SwapStatusPending {
			r.TargetUserID = copyString(r.TargetUserID)
			r.TargetShiftID = copyString(r.TargetShiftID)
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSwapRepo) list(orgID string, keep func(r model.SwapRequest) bool) []model.SwapRequest {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.SwapRequest
	for _, r := range m.s.swaps {
		sh, ok := m.s.shifts[r.ShiftID]
		if !ok || sh.OrganizationID != orgID || r.Status != model.SwapStatusPending || !keep(r) {
			continue
		}
		result = append(result, m.withDetails(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SwapRequestID < result[j].SwapRequestID })
	return result
}

func (m *mockSwapRepo) ListAvailable(_ context.Context, orgID string) ([]model.SwapRequest, error) {
	return m.list(orgID, func(r model.SwapRequest) bool { return !r.IsDirect() }), nil
}

func (m *mockSwapRepo) ListReceived(_ context.Context, orgID, userID string) ([]model.SwapRequest, error) {
	return m.list(orgID, func(r model.SwapRequest) bool { return r.IsDirect() && r.IsTargetedAt(userID) }), nil
}

func (m *mockSwapRepo) ListSent(_ context.Context, orgID, userID string) ([]model.SwapRequest, error) {
	return m.list(orgID, func(r model.SwapRequest) bool { return r.RequestingUserID == userID }), nil
}

func (m *mockSwapRepo) CancelPendingReferencing(_ context.Context, shiftIDs []string, exceptID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, r := range m.s.swaps {
		if id == exceptID || r.Status != model.SwapStatusPending {
			continue
		}
		for _, shiftID := range shiftIDs {
			if r.References(shiftID) {
				r.Status = model.SwapStatusCancelled
				r.Version++
				m.s.swaps[id] = r
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockSwapRepo) ListIDsReferencing(_ context.Context, shiftIDs, userIDs []string) ([]string, error) {
	if len(shiftIDs) == 0 && len(userIDs) == 0 {
		return nil, nil
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var ids []string
	for id, r := range m.s.swaps {
		hit := containsID(userIDs, r.RequestingUserID) || (r.TargetUserID != nil && containsID(userIDs, *r.TargetUserID))
		for _, shiftID := range shiftIDs {
			if r.References(shiftID) {
				hit = true
			}
		}
		if hit {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockSwapRepo) DeleteByIDs(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, id := range ids {
		delete(m.s.swaps, id)
	}
	return nil
}

// ── 测试数据辅助 ──

// fixture 单组织测试环境
type fixture struct {
	store *memStore
	repo  *repository.Repository
	orgID string
	base  time.Time // 明天 00:00 UTC，所有测试班次以此为基准
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store: store,
		repo:  newMockRepository(store),
		base:  time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour),
	}
	f.orgID = f.addOrg("Acme")
	return f
}

func (f *fixture) addOrg(name string) string {
	org := &model.Organization{Name: name}
	_ = f.repo.Organization.Create(context.Background(), org)
	return org.OrganizationID
}

func (f *fixture) addUserIn(orgID, first string, role model.Role) string {
	user := &model.User{
		FirstName:    first,
		LastName:     "Test",
		Email:        strings.ToLower(first) + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if orgID != "" {
		user.OrganizationID = &orgID
	}
	_ = f.repo.User.Create(context.Background(), user)
	return user.UserID
}

func (f *fixture) addUser(first string) string {
	return f.addUserIn(f.orgID, first, model.RoleEmployee)
}

// addShift 在 base 基础上按小时偏移创建班次；userID 为空表示未分配
func (f *fixture) addShift(userID string, startHour, endHour int) string {
	return f.addShiftIn(f.orgID, userID, startHour, endHour)
}

func (f *fixture) addShiftIn(orgID, userID string, startHour, endHour int) string {
	shift := &model.Shift{
		OrganizationID: orgID,
		StartTime:      f.at(startHour),
		EndTime:        f.at(endHour),
	}
	if userID != "" {
		shift.UserID = &userID
	}
	_ = f.repo.Shift.Create(context.Background(), shift)
	return shift.ShiftID
}

func (f *fixture) at(hour int) time.Time {
	return f.base.Add(time.Duration(hour) * time.Hour)
}

func (f *fixture) shift(id string) model.Shift {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.shifts[id]
}

func (f *fixture) swap(id string) (model.SwapRequest, bool) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.swaps[id]
	return r, ok
}

// checkListingInvariant is_up_for_swap 为 true 当且仅当存在待处理公开挂单
func (f *fixture) checkListingInvariant() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	pendingOffers := make(map[string]int)
	openListed := make(map[string]bool)
	for _, r := range f.store.swaps {
		if r.Status != model.SwapStatusPending {
			continue
		}
		pendingOffers[r.ShiftID]++
		if !r.IsDirect() {
			openListed[r.ShiftID] = true
		}
	}
	for id, n := range pendingOffers {
		if n > 1 {
			return fmt.Errorf("班次 %s 有 %d 条待处理发起申请", id, n)
		}
	}
	for id, sh := range f.store.shifts {
		if sh.IsUpForSwap != openListed[id] {
			return fmt.Errorf("班次 %s is_up_for_swap=%v，但公开挂单存在=%v", id, sh.IsUpForSwap, openListed[id])
		}
	}
	return nil
}
