package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/notify"
	"tourdesk/internal/repository"
	"tourdesk/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type recNotifier struct {
	msgs []notify.Message
	err  error
}

func (n *recNotifier) Enqueue(_ context.Context, msg notify.Message) error {
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, msg)
	return nil
}

type recPublisher struct {
	mu     sync.Mutex
	events []websocket.ChangeEvent
}

func (p *recPublisher) Publish(ev websocket.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

type memAudit struct {
	entries    []model.AuditLog
	lastFilter repository.AuditFilter
}

func (a *memAudit) Log(_ context.Context, e *model.AuditLog) error {
	a.entries = append(a.entries, *e)
	return nil
}

func (a *memAudit) List(_ context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	a.lastFilter = filter
	return a.entries, int64(len(a.entries)), nil
}

func (a *memAudit) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- users ---

type memUsers struct {
	rows   map[uuid.UUID]model.User
	writes int
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{rows: map[uuid.UUID]model.User{}}
	for _, u := range users {
		m.rows[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	for _, r := range m.rows {
		if strings.EqualFold(r.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.rows[u.ID] = *u
	m.writes++
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.rows {
		if strings.EqualFold(u.Email, email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) List(_ context.Context, f repository.UserFilter) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range m.rows {
		if f.Status == "" || u.ApprovalStatus == f.Status {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.rows[u.ID] = *u
	m.writes++
	return nil
}

func (m *memUsers) LockByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.GetByEmail(ctx, email)
}

func (m *memUsers) SetResetCode(_ context.Context, id uuid.UUID, hash *string, expiresAt *time.Time) error {
	u, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.ResetCodeHash, u.ResetCodeExpiresAt, u.ResetAttempts = hash, expiresAt, 0
	m.rows[id] = u
	m.writes++
	return nil
}

func (m *memUsers) IncrementResetAttempts(_ context.Context, id uuid.UUID) (int, error) {
	u, ok := m.rows[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	u.ResetAttempts++
	m.rows[id] = u
	m.writes++
	return u.ResetAttempts, nil
}

func (m *memUsers) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = hash
	u.ResetCodeHash, u.ResetCodeExpiresAt, u.ResetAttempts = nil, nil, 0
	u.SessionToken = nil
	m.rows[id] = u
	m.writes++
	return nil
}

func (m *memUsers) Upsert(_ context.Context, u *model.User) error {
	m.rows[u.ID] = *u
	m.writes++
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	m.writes++
	return nil
}

// --- archive ---

type memArchive struct {
	rows map[uuid.UUID]model.ArchivedUserDocument
}

func newMemArchive() *memArchive {
	return &memArchive{rows: map[uuid.UUID]model.ArchivedUserDocument{}}
}

func (m *memArchive) Create(_ context.Context, d *model.ArchivedUserDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.rows[d.ID] = *d
	return nil
}

func (m *memArchive) FindByID(_ context.Context, id uuid.UUID) (*model.ArchivedUserDocument, error) {
	d, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (m *memArchive) List(_ context.Context, search string, page, limit int) ([]model.ArchivedUserDocument, int64, error) {
	var out []model.ArchivedUserDocument
	for _, d := range m.rows {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (m *memArchive) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

// --- facilities ---

type memFacilities struct {
	rows         map[uuid.UUID]model.Facility
	reservations map[uuid.UUID]model.FacilityReservation
	writes       int
}

func newMemFacilities(fs ...model.Facility) *memFacilities {
	m := &memFacilities{rows: map[uuid.UUID]model.Facility{}, reservations: map[uuid.UUID]model.FacilityReservation{}}
	for _, f := range fs {
		m.rows[f.ID] = f
	}
	return m
}

func (m *memFacilities) Create(_ context.Context, f *model.Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	m.rows[f.ID] = *f
	m.writes++
	return nil
}

func (m *memFacilities) Update(_ context.Context, f *model.Facility) error {
	m.rows[f.ID] = *f
	m.writes++
	return nil
}

func (m *memFacilities) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	m.writes++
	return nil
}

func (m *memFacilities) FindByID(_ context.Context, id uuid.UUID) (*model.Facility, error) {
	f, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &f, nil
}

func (m *memFacilities) LockByID(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	return m.FindByID(ctx, id)
}

func (m *memFacilities) FindByPlate(_ context.Context, plate string) (*model.Facility, error) {
	want := strings.ToUpper(strings.TrimSpace(plate))
	for _, f := range m.rows {
		if strings.ToUpper(strings.TrimSpace(f.PlateNumber)) == want {
			cp := f
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memFacilities) List(_ context.Context, _ repository.FacilityFilter) ([]model.Facility, int64, error) {
	var out []model.Facility
	for _, f := range m.rows {
		out = append(out, f)
	}
	return out, int64(len(out)), nil
}

func (m *memFacilities) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f := m.rows[id]
	f.Status = status
	m.rows[id] = f
	m.writes++
	return nil
}

func (m *memFacilities) CreateReservation(_ context.Context, r *model.FacilityReservation) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	cp.User = nil
	m.reservations[r.ID] = cp
	m.writes++
	return nil
}

func (m *memFacilities) UpdateReservation(_ context.Context, r *model.FacilityReservation) error {
	m.reservations[r.ID] = *r
	m.writes++
	return nil
}

func (m *memFacilities) FindReservation(_ context.Context, id uuid.UUID) (*model.FacilityReservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (m *memFacilities) ListReservations(_ context.Context, facilityID uuid.UUID) ([]model.FacilityReservation, error) {
	var out []model.FacilityReservation
	for _, r := range m.reservations {
		if r.FacilityID == facilityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memFacilities) ListActiveOnDate(_ context.Context, facilityID uuid.UUID, date time.Time) ([]model.FacilityReservation, error) {
	var out []model.FacilityReservation
	for _, r := range m.reservations {
		if r.FacilityID == facilityID && r.Status == model.ReservationReserved &&
			r.ReservationDate.Format(dateLayout) == date.Format(dateLayout) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memFacilities) CountActiveReservations(_ context.Context, facilityID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range m.reservations {
		if r.FacilityID == facilityID && r.Status == model.ReservationReserved {
			n++
		}
	}
	return n, nil
}

// --- cases and contracts ---

// memRecords is a numbered-record store; id and number pick the fields of T.
type memRecords[T any] struct {
	rows   map[uuid.UUID]T
	id     func(*T) *uuid.UUID
	number func(*T) string
}

func newMemCases() *memRecords[model.Case] {
	return &memRecords[model.Case]{
		rows:   map[uuid.UUID]model.Case{},
		id:     func(c *model.Case) *uuid.UUID { return &c.ID },
		number: func(c *model.Case) string { return c.CaseNumber },
	}
}

func newMemContracts() *memRecords[model.Contract] {
	return &memRecords[model.Contract]{
		rows:   map[uuid.UUID]model.Contract{},
		id:     func(c *model.Contract) *uuid.UUID { return &c.ID },
		number: func(c *model.Contract) string { return c.ContractNumber },
	}
}

func (m *memRecords[T]) Create(_ context.Context, r *T) error {
	for _, existing := range m.rows {
		if m.number(&existing) == m.number(r) {
			return gorm.ErrDuplicatedKey
		}
	}
	if id := m.id(r); *id == uuid.Nil {
		*id = uuid.New()
	}
	m.rows[*m.id(r)] = *r
	return nil
}

func (m *memRecords[T]) Update(_ context.Context, r *T) error {
	m.rows[*m.id(r)] = *r
	return nil
}

func (m *memRecords[T]) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRecords[T]) FindByID(_ context.Context, id uuid.UUID) (*T, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (m *memRecords[T]) FindByNumber(_ context.Context, number string) (*T, error) {
	for _, r := range m.rows {
		if m.number(&r) == number {
			cp := r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRecords[T]) List(_ context.Context, _ repository.RecordFilter) ([]T, int64, error) {
	out := make([]T, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

// --- compliance ---

type memCompliance struct {
	rows map[uuid.UUID]model.ComplianceRecord
}

func newMemCompliance() *memCompliance {
	return &memCompliance{rows: map[uuid.UUID]model.ComplianceRecord{}}
}

func (m *memCompliance) Create(_ context.Context, c *model.ComplianceRecord) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.rows[c.ID] = *c
	return nil
}

func (m *memCompliance) Update(_ context.Context, c *model.ComplianceRecord) error {
	m.rows[c.ID] = *c
	return nil
}

func (m *memCompliance) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memCompliance) FindByID(_ context.Context, id uuid.UUID) (*model.ComplianceRecord, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *memCompliance) FindByNumber(_ context.Context, number string) (*model.ComplianceRecord, error) {
	for _, c := range m.rows {
		if c.ComplianceNumber == number {
			cp := c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCompliance) List(_ context.Context, _ repository.RecordFilter) ([]model.ComplianceRecord, int64, error) {
	var out []model.ComplianceRecord
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

// --- visitors ---

type memVisitors struct {
	rows map[uuid.UUID]model.Visitor
}

func newMemVisitors() *memVisitors {
	return &memVisitors{rows: map[uuid.UUID]model.Visitor{}}
}

func (m *memVisitors) Create(_ context.Context, v *model.Visitor) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	m.rows[v.ID] = *v
	return nil
}

func (m *memVisitors) Update(_ context.Context, v *model.Visitor) error {
	m.rows[v.ID] = *v
	return nil
}

func (m *memVisitors) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memVisitors) FindByID(_ context.Context, id uuid.UUID) (*model.Visitor, error) {
	v, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (m *memVisitors) List(_ context.Context, f repository.VisitorFilter) ([]model.Visitor, int64, error) {
	var out []model.Visitor
	for _, v := range m.rows {
		if f.Status == "" || v.Status == f.Status {
			out = append(out, v)
		}
	}
	return out, int64(len(out)), nil
}

// --- auth ---

type stubTokens struct {
	issued []string
}

func (s *stubTokens) Issue(subject, role, sessionID string) (string, time.Time, error) {
	s.issued = append(s.issued, sessionID)
	return "token-" + subject + "-" + sessionID, time.Now().Add(time.Hour), nil
}

type memAdmins struct {
	rows map[uuid.UUID]model.Admin
}

func newMemAdmins(as ...model.Admin) *memAdmins {
	m := &memAdmins{rows: map[uuid.UUID]model.Admin{}}
	for _, a := range as {
		m.rows[a.ID] = a
	}
	return m
}

func (m *memAdmins) Create(_ context.Context, a *model.Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memAdmins) GetByID(_ context.Context, id uuid.UUID) (*model.Admin, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (m *memAdmins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	for _, a := range m.rows {
		if strings.EqualFold(a.Email, email) {
			cp := a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memAdmins) Update(_ context.Context, a *model.Admin) error {
	m.rows[a.ID] = *a
	return nil
}

func sampleUser(email, status string) model.User {
	return model.User{
		ID:             uuid.New(),
		FirstName:      "Maria",
		LastName:       "Santos",
		Birthday:       time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Age:            35,
		Contact:        "09171234567",
		Address:        "12 Rizal St, Makati",
		Zipcode:        "1200",
		Email:          email,
		Password:       "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva",
		ApprovalStatus: status,
	}
}
