package service

import (
	"context"
	"testing"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	svc      *userService
	users    *memUsers
	audit    *memAudit
	notifier *recNotifier
	live     *recPublisher
}

func newUserFixture(users ...model.User) *userFixture {
	f := &userFixture{
		users:    newMemUsers(users...),
		audit:    &memAudit{},
		notifier: &recNotifier{},
		live:     &recPublisher{},
	}
	f.svc = NewUserService(f.users, f.audit, passTx{}, f.notifier, nil, f.live, zap.NewNop()).(*userService)
	return f
}

func validUserForm() UserForm {
	return UserForm{
		FirstName:       "Juan",
		LastName:        "Dela Cruz",
		Birthday:        "1995-01-15",
		Contact:         "09171234567",
		Address:         "45 Mabini St, Manila",
		Zipcode:         "1000",
		Email:           "Juan@Example.com ",
		Password:        "supersecret",
		ConfirmPassword: "supersecret",
		AcceptTerms:     true,
	}
}

func TestSetApprovalStatus_StampsApproverOnEntryOnly(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalPending)
	f := newUserFixture(u)
	ctx := context.Background()
	adminA, adminB := uuid.New(), uuid.New()
	t1 := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return t1 }

	resp, err := f.svc.SetApprovalStatus(ctx, adminA.String(), u.ID.String(), model.ApprovalApproved, "")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, resp.ApprovalStatus)
	stored := f.users.rows[u.ID]
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, adminA, *stored.ApprovedBy)
	assert.True(t, stored.ApprovedAt.Equal(t1))
	require.Len(t, f.notifier.msgs, 1)
	assert.Equal(t, model.NotifyApproval, f.notifier.msgs[0].Kind)

	// approving again is a no-op for the stamp and sends nothing new
	f.svc.now = func() time.Time { return t1.Add(time.Hour) }
	_, err = f.svc.SetApprovalStatus(ctx, adminB.String(), u.ID.String(), model.ApprovalApproved, "")
	require.NoError(t, err)
	stored = f.users.rows[u.ID]
	assert.Equal(t, adminA, *stored.ApprovedBy)
	assert.True(t, stored.ApprovedAt.Equal(t1))
	assert.Len(t, f.notifier.msgs, 1)

	// moving away keeps the stamp
	_, err = f.svc.SetApprovalStatus(ctx, adminB.String(), u.ID.String(), model.ApprovalPending, "")
	require.NoError(t, err)
	stored = f.users.rows[u.ID]
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, adminA, *stored.ApprovedBy)
	assert.Len(t, f.notifier.msgs, 1, "pending sends no email")

	// re-entering Approved restamps
	t2 := t1.Add(48 * time.Hour)
	f.svc.now = func() time.Time { return t2 }
	_, err = f.svc.SetApprovalStatus(ctx, adminB.String(), u.ID.String(), model.ApprovalApproved, "")
	require.NoError(t, err)
	stored = f.users.rows[u.ID]
	assert.Equal(t, adminB, *stored.ApprovedBy)
	assert.True(t, stored.ApprovedAt.Equal(t2))

	assert.Equal(t, []string{model.ActionApproveUser, model.ActionApproveUser, model.ActionSetPending, model.ActionApproveUser}, f.audit.actions())
	require.NotEmpty(t, f.live.events)
	assert.Equal(t, websocket.ChangeEvent{Table: TableUsers, Type: websocket.OpUpdate, ID: u.ID.String(), At: f.live.events[0].At}, f.live.events[0])
}

func TestSetApprovalStatus_DeclineStoresReasonAndEndsSession(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalApproved)
	sid := "live-session"
	u.SessionToken = &sid
	f := newUserFixture(u)

	_, err := f.svc.SetApprovalStatus(context.Background(), uuid.NewString(), u.ID.String(), model.ApprovalDeclined, "  Blurry passport scan ")
	require.NoError(t, err)

	stored := f.users.rows[u.ID]
	assert.Equal(t, model.ApprovalDeclined, stored.ApprovalStatus)
	require.NotNil(t, stored.DeclineReason)
	assert.Equal(t, "Blurry passport scan", *stored.DeclineReason)
	assert.Nil(t, stored.SessionToken)
	require.Len(t, f.notifier.msgs, 1)
	assert.Equal(t, model.NotifyDecline, f.notifier.msgs[0].Kind)
	assert.Equal(t, "Blurry passport scan", f.notifier.msgs[0].Data["reason"])
}

func TestSetApprovalStatus_RejectsUnknownStatus(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalPending)
	f := newUserFixture(u)

	_, err := f.svc.SetApprovalStatus(context.Background(), uuid.NewString(), u.ID.String(), "Maybe", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.users.writes)
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.notifier.msgs)
}

func TestSetApprovalStatus_NotifierFailureRollsBackCaller(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalPending)
	f := newUserFixture(u)
	f.notifier.err = assert.AnError

	_, err := f.svc.SetApprovalStatus(context.Background(), uuid.NewString(), u.ID.String(), model.ApprovalApproved, "")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, f.live.events)
}

func TestDeleteUser_RequiresReason(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalPending)
	f := newUserFixture(u)

	err := f.svc.DeleteUser(context.Background(), uuid.NewString(), u.ID.String(), "   ")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "A reason is required to delete a user", err.Error())
	assert.Contains(t, f.users.rows, u.ID)

	err = f.svc.DeleteUser(context.Background(), uuid.NewString(), u.ID.String(), "Duplicate account")
	require.NoError(t, err)
	assert.NotContains(t, f.users.rows, u.ID)
	require.Len(t, f.notifier.msgs, 1)
	assert.Equal(t, model.NotifyDeletion, f.notifier.msgs[0].Kind)
	assert.Equal(t, "Duplicate account", f.notifier.msgs[0].Data["reason"])
	assert.Equal(t, []string{model.ActionDeleteUser}, f.audit.actions())
}

func TestDeleteUser_Missing(t *testing.T) {
	f := newUserFixture()
	err := f.svc.DeleteUser(context.Background(), uuid.NewString(), uuid.NewString(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister(t *testing.T) {
	f := newUserFixture()
	f.svc.now = func() time.Time { return time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC) }

	resp, err := f.svc.Register(context.Background(), validUserForm())
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", resp.Email)
	assert.Equal(t, model.ApprovalPending, resp.ApprovalStatus)
	assert.Equal(t, 30, resp.Age)

	id := uuid.MustParse(resp.ID)
	stored := f.users.rows[id]
	assert.NotEqual(t, "supersecret", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersecret")))
	assert.Nil(t, f.audit.entries[0].AdminID)

	_, err = f.svc.Register(context.Background(), validUserForm())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRegister_ValidationMessages(t *testing.T) {
	f := newUserFixture()
	cases := map[string]struct {
		mutate func(*UserForm)
		msg    string
	}{
		"underage":   {func(u *UserForm) { u.Birthday = time.Now().AddDate(-10, 0, 0).Format(dateLayout) }, "You must be at least 18 years old"},
		"mismatch":   {func(u *UserForm) { u.ConfirmPassword = "different1" }, "Passwords do not match"},
		"short":      {func(u *UserForm) { u.Password, u.ConfirmPassword = "short", "short" }, "Password must be at least 8 characters"},
		"terms":      {func(u *UserForm) { u.AcceptTerms = false }, "You must accept the terms and conditions"},
		"bad mobile": {func(u *UserForm) { u.Contact = "123" }, "Contact number must be a valid mobile number (09XXXXXXXXX or +63XXXXXXXXXX)"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			form := validUserForm()
			tc.mutate(&form)
			_, err := f.svc.Register(context.Background(), form)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
	assert.Zero(t, f.users.writes)
}

func TestUpdateUser_OwnProfileOnly(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalApproved)
	other := sampleUser("other@example.com", model.ApprovalApproved)
	f := newUserFixture(u, other)
	addr := "99 Luna St, Pasig"

	_, err := f.svc.UpdateUser(context.Background(), Actor{ID: other.ID.String(), Role: model.RoleUser}, u.ID.String(), UpdateUserRequest{Address: &addr})
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := f.svc.UpdateUser(context.Background(), Actor{ID: u.ID.String(), Role: model.RoleUser}, u.ID.String(), UpdateUserRequest{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, addr, resp.Address)

	taken := "OTHER@example.com"
	_, err = f.svc.UpdateUser(context.Background(), Actor{ID: uuid.NewString(), Role: model.RoleAdmin}, u.ID.String(), UpdateUserRequest{Email: &taken})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUploadDocument_RejectsUnknownKindAndType(t *testing.T) {
	u := sampleUser("maria@example.com", model.ApprovalPending)
	f := newUserFixture(u)
	admin := Actor{ID: uuid.NewString(), Role: model.RoleAdmin}

	_, err := f.svc.UploadDocument(context.Background(), admin, u.ID.String(), model.DocVisa, "visa.gif", 10, nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Only JPG, PNG and PDF files are allowed", err.Error())

	_, err = f.svc.UploadDocument(context.Background(), admin, u.ID.String(), "birth_certificate", "doc.pdf", 10, nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Unknown document type: birth_certificate", err.Error())
}
