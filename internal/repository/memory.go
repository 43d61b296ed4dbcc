package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"care-session-service/internal/domain"
)

// MemoryRepo backs every repository interface with process memory. It keeps
// the API usable when DB is disabled and is the fixture store for unit tests.
// Invariants the database would enforce (active-session uniqueness, one
// feedback per session) are checked explicitly.
type MemoryRepo struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant // orgID -> tenant
	schemas map[Schema]*memorySchema
}

type memorySchema struct {
	sessions map[string]*domain.CareSession
	feedback map[string]*domain.Feedback
	patients map[string]*domain.Patient
	users    map[string]*domain.User
	tags     map[string]*domain.NFCTag
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tenants: map[string]domain.Tenant{},
		schemas: map[Schema]*memorySchema{},
	}
}

var (
	_ SessionsRepository = (*MemoryRepo)(nil)
	_ FeedbackRepository = (*MemoryRepo)(nil)
	_ PatientsRepository = (*MemoryRepo)(nil)
	_ UsersRepository    = (*MemoryRepo)(nil)
	_ TagsRepository     = (*MemoryRepo)(nil)
	_ TenantsRepository  = (*MemoryRepo)(nil)
	_ ReportsRepository  = (*MemoryRepo)(nil)
)

// schema materializes the tenant's store on first touch. It mutates the
// schema map, so callers must hold mu for writing.
func (r *MemoryRepo) schema(s Schema) *memorySchema {
	ms, ok := r.schemas[s]
	if !ok {
		ms = &memorySchema{
			sessions: map[string]*domain.CareSession{},
			feedback: map[string]*domain.Feedback{},
			patients: map[string]*domain.Patient{},
			users:    map[string]*domain.User{},
			tags:     map[string]*domain.NFCTag{},
		}
		r.schemas[s] = ms
	}
	return ms
}

// lookup is the read-lock-safe counterpart of schema: it never creates.
// A schema nothing has written to can only yield not-found results.
func (r *MemoryRepo) lookup(s Schema) (*memorySchema, bool) {
	ms, ok := r.schemas[s]
	return ms, ok
}

// PutTenant seeds the tenant registry (dev bootstrap and tests).
func (r *MemoryRepo) PutTenant(t domain.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.OrgID] = t
}

// PutTag seeds an NFC tag (dev bootstrap and tests).
func (r *MemoryRepo) PutTag(schema Schema, tag domain.NFCTag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := tag
	r.schema(schema).tags[tag.TagID] = &t
}

// --- sessions ---

func (r *MemoryRepo) CreateSession(_ context.Context, schema Schema, s *domain.CareSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.schema(schema)
	if s.Status == domain.SessionInProgress {
		for _, existing := range ms.sessions {
			if existing.PatientID == s.PatientID &&
				existing.Status == domain.SessionInProgress &&
				existing.DeletedAt == nil {
				return domain.ErrDuplicateActiveSession
			}
		}
	}
	copied := *s
	ms.sessions[s.ID] = &copied
	return nil
}

func (r *MemoryRepo) GetSession(_ context.Context, schema Schema, id string) (*domain.CareSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, ok := r.lookup(schema)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s, ok := ms.sessions[id]
	if !ok || s.DeletedAt != nil {
		return nil, domain.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *MemoryRepo) GetActiveSessionForPatient(_ context.Context, schema Schema, patientID string) (*domain.CareSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, _ := r.lookup(schema)
	if ms == nil {
		return nil, domain.ErrSessionNotFound
	}
	for _, s := range ms.sessions {
		if s.PatientID == patientID && s.Status == domain.SessionInProgress && s.DeletedAt == nil {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *MemoryRepo) ListSessions(_ context.Context, schema Schema, filter SessionsFilter, page, size int) ([]*domain.CareSession, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.CareSession{}
	ms, _ := r.lookup(schema)
	if ms == nil {
		return all, 0, nil
	}
	for _, s := range ms.sessions {
		if s.DeletedAt != nil {
			continue
		}
		if filter.CaregiverID != "" && s.CaregiverID != filter.CaregiverID {
			continue
		}
		if filter.PatientID != "" && s.PatientID != filter.PatientID {
			continue
		}
		if filter.Status != "" && string(s.Status) != filter.Status {
			continue
		}
		if filter.StartDate != nil && s.CheckInTime.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && s.CheckInTime.After(*filter.EndDate) {
			continue
		}
		copied := *s
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CheckInTime.Equal(all[j].CheckInTime) {
			return all[i].CheckInTime.After(all[j].CheckInTime)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	start := (page - 1) * size
	if start < 0 || start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryRepo) UpdateSession(_ context.Context, schema Schema, id string, upd SessionUpdate) (*domain.CareSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schema(schema).sessions[id]
	if !ok || s.DeletedAt != nil {
		return nil, domain.ErrSessionNotFound
	}
	if upd.CheckInTime != nil {
		s.CheckInTime = *upd.CheckInTime
	}
	if upd.CheckOutTime != nil {
		t := *upd.CheckOutTime
		s.CheckOutTime = &t
	}
	if upd.Status != nil {
		s.Status = *upd.Status
	}
	if upd.CaregiverNotes != nil {
		s.CaregiverNotes = *upd.CaregiverNotes
	}
	s.UpdatedAt = time.Now().UTC()
	copied := *s
	return &copied, nil
}

func (r *MemoryRepo) SaveCompletions(_ context.Context, schema Schema, sessions []*domain.CareSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.schema(schema)
	for _, s := range sessions {
		stored, ok := ms.sessions[s.ID]
		if !ok || stored.DeletedAt != nil {
			continue
		}
		stored.Status = s.Status
		if s.CheckOutTime != nil {
			t := *s.CheckOutTime
			stored.CheckOutTime = &t
		}
		stored.CaregiverNotes = s.CaregiverNotes
		stored.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *MemoryRepo) SoftDeleteSession(_ context.Context, schema Schema, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schema(schema).sessions[id]
	if !ok || s.DeletedAt != nil {
		return domain.ErrSessionNotFound
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	s.UpdatedAt = now
	return nil
}

func (r *MemoryRepo) MaxSessionCodeSuffix(_ context.Context, schema Schema) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, _ := r.lookup(schema)
	if ms == nil {
		return 0, nil
	}
	max := 0
	for _, s := range ms.sessions {
		if !strings.HasPrefix(s.SessionCode, "CS-") {
			continue
		}
		if n, err := strconv.Atoi(s.SessionCode[3:]); err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

// --- feedback ---

func (r *MemoryRepo) CreateFeedback(_ context.Context, schema Schema, f *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.schema(schema)
	for _, existing := range ms.feedback {
		if existing.CareSessionID == f.CareSessionID && existing.DeletedAt == nil {
			return domain.ErrFeedbackExists
		}
	}
	copied := *f
	ms.feedback[f.ID] = &copied
	return nil
}

func (r *MemoryRepo) GetFeedback(_ context.Context, schema Schema, id string) (*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, ok := r.lookup(schema)
	if !ok {
		return nil, domain.ErrFeedbackNotFound
	}
	f, ok := ms.feedback[id]
	if !ok || f.DeletedAt != nil {
		return nil, domain.ErrFeedbackNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *MemoryRepo) GetFeedbackBySession(_ context.Context, schema Schema, sessionID string) (*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, _ := r.lookup(schema)
	if ms == nil {
		return nil, domain.ErrFeedbackNotFound
	}
	for _, f := range ms.feedback {
		if f.CareSessionID == sessionID && f.DeletedAt == nil {
			copied := *f
			return &copied, nil
		}
	}
	return nil, domain.ErrFeedbackNotFound
}

func (r *MemoryRepo) listFeedback(schema Schema, keep func(*domain.Feedback) bool) []*domain.Feedback {
	items := []*domain.Feedback{}
	ms, _ := r.lookup(schema)
	if ms == nil {
		return items
	}
	for _, f := range ms.feedback {
		if f.DeletedAt != nil || !keep(f) {
			continue
		}
		copied := *f
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (r *MemoryRepo) ListFeedback(_ context.Context, schema Schema, filter FeedbackFilter, page, size int) ([]*domain.Feedback, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.listFeedback(schema, func(f *domain.Feedback) bool {
		if filter.PatientID != "" && f.PatientID != filter.PatientID {
			return false
		}
		if filter.CaregiverID != "" && f.CaregiverID != filter.CaregiverID {
			return false
		}
		if filter.Rating != 0 && f.Rating != filter.Rating {
			return false
		}
		if filter.StartDate != nil && f.CreatedAt.Before(*filter.StartDate) {
			return false
		}
		if filter.EndDate != nil && f.CreatedAt.After(*filter.EndDate) {
			return false
		}
		return true
	})
	// ListFeedback pages newest first.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	total := len(items)
	start := (page - 1) * size
	if start < 0 || start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func (r *MemoryRepo) ListFeedbackBetween(_ context.Context, schema Schema, start, end time.Time) ([]*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listFeedback(schema, func(f *domain.Feedback) bool {
		return !f.CreatedAt.Before(start) && !f.CreatedAt.After(end)
	}), nil
}

func (r *MemoryRepo) ListFeedbackForPatient(_ context.Context, schema Schema, patientID string) ([]*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listFeedback(schema, func(f *domain.Feedback) bool {
		return f.PatientID == patientID
	}), nil
}

func (r *MemoryRepo) SoftDeleteFeedback(_ context.Context, schema Schema, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.schema(schema).feedback[id]
	if !ok || f.DeletedAt != nil {
		return domain.ErrFeedbackNotFound
	}
	now := time.Now().UTC()
	f.DeletedAt = &now
	return nil
}

// --- patients ---

func (r *MemoryRepo) GetPatient(_ context.Context, schema Schema, id string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, ok := r.lookup(schema)
	if !ok {
		return nil, domain.ErrPatientNotFound
	}
	p, ok := ms.patients[id]
	if !ok {
		return nil, domain.ErrPatientNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *MemoryRepo) GetPatientsByIDs(_ context.Context, schema Schema, ids []string) (map[string]*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := map[string]*domain.Patient{}
	ms, _ := r.lookup(schema)
	if ms == nil {
		return result, nil
	}
	for _, id := range ids {
		if p, ok := ms.patients[id]; ok {
			copied := *p
			result[id] = &copied
		}
	}
	return result, nil
}

func (r *MemoryRepo) UpsertPatient(_ context.Context, schema Schema, p *domain.Patient) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.schema(schema)
	if existing, ok := ms.patients[p.ID]; ok && existing.UpdatedAt.After(p.UpdatedAt) {
		return false, nil
	}
	copied := *p
	copied.DeletedAt = nil
	ms.patients[p.ID] = &copied
	return true, nil
}

func (r *MemoryRepo) MarkPatientDeleted(_ context.Context, schema Schema, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.schema(schema).patients[id]
	if !ok || p.UpdatedAt.After(at) {
		return nil
	}
	p.DeletedAt = &at
	p.Active = false
	p.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) SetPatientActive(_ context.Context, schema Schema, id string, active bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.schema(schema).patients[id]
	if !ok || p.UpdatedAt.After(at) {
		return nil
	}
	p.Active = active
	p.UpdatedAt = at
	return nil
}

// --- users ---

func (r *MemoryRepo) GetUser(_ context.Context, schema Schema, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, ok := r.lookup(schema)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u, ok := ms.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *MemoryRepo) GetUsersByIDs(_ context.Context, schema Schema, ids []string) (map[string]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := map[string]*domain.User{}
	ms, _ := r.lookup(schema)
	if ms == nil {
		return result, nil
	}
	for _, id := range ids {
		if u, ok := ms.users[id]; ok {
			copied := *u
			result[id] = &copied
		}
	}
	return result, nil
}

func (r *MemoryRepo) UpsertUser(_ context.Context, schema Schema, u *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.schema(schema)
	if existing, ok := ms.users[u.ID]; ok && existing.UpdatedAt.After(u.UpdatedAt) {
		return false, nil
	}
	copied := *u
	copied.DeletedAt = nil
	ms.users[u.ID] = &copied
	return true, nil
}

func (r *MemoryRepo) MarkUserDeleted(_ context.Context, schema Schema, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.schema(schema).users[id]
	if !ok || u.UpdatedAt.After(at) {
		return nil
	}
	u.DeletedAt = &at
	u.Active = false
	u.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) SetUserActive(_ context.Context, schema Schema, id string, active bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.schema(schema).users[id]
	if !ok || u.UpdatedAt.After(at) {
		return nil
	}
	u.Active = active
	u.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) SetUserRole(_ context.Context, schema Schema, id, role string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.schema(schema).users[id]
	if !ok || u.UpdatedAt.After(at) {
		return nil
	}
	u.Role = role
	u.Active = role == domain.RoleCaregiver
	u.UpdatedAt = at
	return nil
}

// --- tags / tenants ---

func (r *MemoryRepo) GetActiveTag(_ context.Context, schema Schema, tagID string) (*domain.NFCTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, ok := r.lookup(schema)
	if !ok {
		return nil, domain.ErrTagNotFound
	}
	tag, ok := ms.tags[tagID]
	if !ok || !tag.Active {
		return nil, domain.ErrTagNotFound
	}
	copied := *tag
	return &copied, nil
}

func (r *MemoryRepo) GetTenantByOrgID(_ context.Context, orgID string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[orgID]
	if !ok || !t.Active {
		return nil, domain.ErrTenantNotFound
	}
	copied := t
	return &copied, nil
}

// --- reports ---

func (r *MemoryRepo) ListSessionReports(_ context.Context, schema Schema, q ReportQuery) ([]*SessionReportRow, *CursorKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if q.Limit <= 0 {
		q.Limit = 50
	}
	orderTS := func(row *SessionReportRow) time.Time {
		if q.ByCreatedAt {
			return row.CreatedAt
		}
		return row.CheckInTime
	}

	all := []*SessionReportRow{}
	ms, _ := r.lookup(schema)
	if ms == nil {
		return all, nil, nil
	}
	for _, s := range ms.sessions {
		if s.DeletedAt != nil {
			continue
		}
		if q.StartDate != nil && s.CheckInTime.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && s.CheckInTime.After(*q.EndDate) {
			continue
		}
		all = append(all, reportRow(ms, s))
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := orderTS(all[i]), orderTS(all[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return all[i].SessionID > all[j].SessionID
	})

	if q.After != nil {
		filtered := all[:0]
		for _, row := range all {
			ts := orderTS(row)
			if ts.Before(q.After.Timestamp) ||
				(ts.Equal(q.After.Timestamp) && row.SessionID < q.After.ID) {
				filtered = append(filtered, row)
			}
		}
		all = filtered
	}

	var next *CursorKey
	if len(all) > q.Limit {
		all = all[:q.Limit]
		last := all[len(all)-1]
		next = &CursorKey{Timestamp: orderTS(last), ID: last.SessionID}
	}
	return all, next, nil
}

func (r *MemoryRepo) GetSessionReport(_ context.Context, schema Schema, sessionID string) (*SessionReportRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms, ok := r.lookup(schema)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s, ok := ms.sessions[sessionID]
	if !ok || s.DeletedAt != nil {
		return nil, domain.ErrSessionNotFound
	}
	return reportRow(ms, s), nil
}

func reportRow(ms *memorySchema, s *domain.CareSession) *SessionReportRow {
	row := &SessionReportRow{
		SessionID:       s.ID,
		SessionCode:     s.SessionCode,
		PatientID:       s.PatientID,
		CaregiverID:     s.CaregiverID,
		CheckInTime:     s.CheckInTime,
		CheckOutTime:    s.CheckOutTime,
		Status:          s.Status,
		DurationMinutes: s.DurationMinutes(),
		CaregiverNotes:  s.CaregiverNotes,
		CreatedAt:       s.CreatedAt,
	}
	if p, ok := ms.patients[s.PatientID]; ok {
		row.PatientName = p.FullName()
	}
	if u, ok := ms.users[s.CaregiverID]; ok {
		row.CaregiverName = u.FullName()
	}
	for _, f := range ms.feedback {
		if f.CareSessionID == s.ID && f.DeletedAt == nil {
			rating := f.Rating
			row.Rating = &rating
			row.PatientFeedback = f.PatientFeedback
			break
		}
	}
	return row
}
