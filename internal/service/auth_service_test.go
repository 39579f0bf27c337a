package service

import (
	"context"
	"testing"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuthFixture(t *testing.T, users []model.User, admins ...model.Admin) (*authService, *memUsers, *memAdmins, *stubTokens) {
	t.Helper()
	us := newMemUsers(users...)
	as := newMemAdmins(admins...)
	tokens := &stubTokens{}
	return NewAuthService(us, as, tokens, nil, zap.NewNop()).(*authService), us, as, tokens
}

func TestLoginUser_ApprovalGate(t *testing.T) {
	pending := sampleUser("pending@example.com", model.ApprovalPending)
	pending.Password = hashed(t, "password123")
	declined := sampleUser("declined@example.com", model.ApprovalDeclined)
	declined.Password = pending.Password
	reason := "Expired visa"
	declined.DeclineReason = &reason
	svc, _, _, tokens := newAuthFixture(t, []model.User{pending, declined})
	ctx := context.Background()

	_, err := svc.LoginUser(ctx, LoginRequest{Email: "pending@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Your account is pending approval. Please wait for an administrator to review it.", err.Error())

	_, err = svc.LoginUser(ctx, LoginRequest{Email: "declined@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Your account has been declined. Reason: Expired visa", err.Error())

	_, err = svc.LoginUser(ctx, LoginRequest{Email: "pending@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", err.Error())

	_, err = svc.LoginUser(ctx, LoginRequest{Email: "ghost@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, tokens.issued)
}

func TestLoginUser_RotatesSession(t *testing.T) {
	u := sampleUser("traveler@example.com", model.ApprovalApproved)
	u.Password = hashed(t, "password123")
	svc, users, _, tokens := newAuthFixture(t, []model.User{u})
	ctx := context.Background()

	first, err := svc.LoginUser(ctx, LoginRequest{Email: "Traveler@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, first.Role)
	require.NotNil(t, first.User)
	assert.Equal(t, u.ID.String(), first.User.ID)
	firstSID := tokens.issued[0]

	ok, err := svc.ValidateSession(ctx, u.ID.String(), firstSID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.LoginUser(ctx, LoginRequest{Email: "traveler@example.com", Password: "password123"})
	require.NoError(t, err)
	secondSID := tokens.issued[1]
	assert.NotEqual(t, firstSID, secondSID)

	ok, err = svc.ValidateSession(ctx, u.ID.String(), firstSID)
	require.NoError(t, err)
	assert.False(t, ok, "older login is superseded")

	require.NoError(t, svc.Logout(ctx, Actor{ID: u.ID.String(), Role: model.RoleUser}))
	assert.Nil(t, users.rows[u.ID].SessionToken)
	ok, err = svc.ValidateSession(ctx, u.ID.String(), secondSID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateSession_RequiresApproval(t *testing.T) {
	u := sampleUser("traveler@example.com", model.ApprovalPending)
	sid := "sid-1"
	u.SessionToken = &sid
	svc, _, _, _ := newAuthFixture(t, []model.User{u})

	ok, err := svc.ValidateSession(context.Background(), u.ID.String(), sid)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.ValidateSession(context.Background(), uuid.NewString(), sid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginAdminAndMe(t *testing.T) {
	admin := model.Admin{ID: uuid.New(), FirstName: "Rosa", LastName: "Garcia", Email: "rosa@tourdesk.ph", Password: hashed(t, "admin-pass"), Role: model.RoleAdmin}
	svc, _, _, _ := newAuthFixture(t, nil, admin)
	ctx := context.Background()

	resp, err := svc.LoginAdmin(ctx, LoginRequest{Email: "ROSA@tourdesk.ph", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.Role)
	require.NotNil(t, resp.Admin)
	assert.Nil(t, resp.User)

	me, err := svc.Me(ctx, Actor{ID: admin.ID.String(), Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Rosa", me.Admin.FirstName)
}

func TestEnsureAdmin(t *testing.T) {
	svc, _, admins, _ := newAuthFixture(t, nil)
	ctx := context.Background()

	err := svc.EnsureAdmin(ctx, "root@tourdesk.ph", "short")
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, admins.rows)

	require.NoError(t, svc.EnsureAdmin(ctx, "root@tourdesk.ph", "bootstrap-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "ROOT@tourdesk.ph", "bootstrap-pass"))
	require.Len(t, admins.rows, 1)
	for _, a := range admins.rows {
		assert.Equal(t, model.RoleSuperAdmin, a.Role)
	}

	assert.NoError(t, svc.EnsureAdmin(ctx, "", ""))
}
