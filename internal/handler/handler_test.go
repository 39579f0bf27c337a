package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tourdesk/internal/middleware"
	"tourdesk/internal/model"
	"tourdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testJWT = middleware.NewJWTManager("handler-test-secret", time.Hour)

func testAuth() *middleware.Authenticator {
	return middleware.NewAuthenticator(testJWT, nil, zap.NewNop())
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := testJWT.Issue("7d2f2c1e-6f1a-4a8e-9a53-2a4c1f0b9e11", model.RoleAdmin, "")
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, id string) string {
	t.Helper()
	token, _, err := testJWT.Issue(id, model.RoleUser, "sid")
	require.NoError(t, err)
	return token
}

func doJSON(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// fakes embed the interface so unimplemented methods panic if a test reaches them

type fakeReset struct {
	service.PasswordResetService
	requestErr error
	gotEmail   string
}

func (f *fakeReset) RequestCode(_ context.Context, email string) error {
	f.gotEmail = email
	return f.requestErr
}

type fakeAuth struct {
	service.AuthService
	loginErr error
}

func (f *fakeAuth) LoginAdmin(_ context.Context, req service.LoginRequest) (*service.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.LoginResponse{Token: "signed", Role: model.RoleAdmin}, nil
}

func (f *fakeAuth) Me(_ context.Context, actor service.Actor) (*service.MeResponse, error) {
	return &service.MeResponse{Role: actor.Role}, nil
}

type fakeUsers struct {
	service.UserService
	approvalCalls []string
	deleteErr     error
	deleteReason  string
	updateActor   service.Actor
	uploadKind    string
	uploadName    string
	listFilter    service.UserListFilter
}

func (f *fakeUsers) SetApprovalStatus(_ context.Context, adminID, userID, status, reason string) (*service.UserResponse, error) {
	f.approvalCalls = append(f.approvalCalls, adminID+"|"+userID+"|"+status+"|"+reason)
	return &service.UserResponse{ID: userID, ApprovalStatus: status}, nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, _, _, reason string) error {
	f.deleteReason = reason
	return f.deleteErr
}

func (f *fakeUsers) UpdateUser(_ context.Context, actor service.Actor, id string, _ service.UpdateUserRequest) (*service.UserResponse, error) {
	f.updateActor = actor
	return &service.UserResponse{ID: id}, nil
}

func (f *fakeUsers) UploadDocument(_ context.Context, _ service.Actor, userID, kind, filename string, _ int64, _ io.Reader) (*service.UserResponse, error) {
	f.uploadKind = kind
	f.uploadName = filename
	return &service.UserResponse{ID: userID}, nil
}

func (f *fakeUsers) ListUsers(_ context.Context, filter service.UserListFilter) ([]service.UserResponse, int64, error) {
	f.listFilter = filter
	return []service.UserResponse{{ID: "a"}, {ID: "b"}}, 45, nil
}

func authRouter(reset *fakeReset, auth *fakeAuth) *gin.Engine {
	r := gin.New()
	h := NewAuthHandler(auth, nil, reset, CookieConfig{TTL: time.Hour}, zap.NewNop())
	h.RegisterRoutes(r.Group(""), testAuth())
	return r
}

func TestForgotPassword_Contract(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"sent", nil, http.StatusOK, `{"success":true,"message":"A reset code has been sent to your email."}`},
		{"blank", &service.ValidationError{Message: "Email is required."}, http.StatusBadRequest, `{"error":"Email is required."}`},
		{"unknown", fmt.Errorf("lookup: %w", service.ErrNotFound), http.StatusNotFound, `{"error":"lookup: not found"}`},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError, `{"error":"` + internalErrorMessage + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := authRouter(&fakeReset{requestErr: tc.err}, &fakeAuth{})
			w := doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "a@example.com"})
			assert.Equal(t, tc.wantCode, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestForgotPassword_RateLimited(t *testing.T) {
	reset := &fakeReset{requestErr: &service.RateLimitError{
		Message:    "Too many reset requests. Please try again in 42 seconds.",
		RetryAfter: 41500 * time.Millisecond,
	}}
	r := authRouter(reset, &fakeAuth{})

	w := doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many reset requests. Please try again in 42 seconds."}`, w.Body.String())
	assert.Equal(t, "a@example.com", reset.gotEmail)
}

func TestForgotPassword_MalformedBody(t *testing.T) {
	r := authRouter(&fakeReset{}, &fakeAuth{})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", strings.NewReader("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Email is required."}`, w.Body.String())
}

func TestAdminLogin_SetsCookie(t *testing.T) {
	r := authRouter(&fakeReset{}, &fakeAuth{})
	w := doJSON(r, http.MethodPost, "/api/auth/admin/login", "", map[string]string{"email": "a@x.io", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.AccessTokenCookie+"=signed")

	r = authRouter(&fakeReset{}, &fakeAuth{loginErr: fmt.Errorf("bad: %w", service.ErrUnauthorized)})
	w = doJSON(r, http.MethodPost, "/api/auth/admin/login", "", map[string]string{"email": "a@x.io", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestMe_ServedOnBothPaths(t *testing.T) {
	r := authRouter(&fakeReset{}, &fakeAuth{})
	token := adminToken(t)
	for _, path := range []string{"/api/me", "/api/auth/me"} {
		w := doJSON(r, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decode(t, w)
		assert.Equal(t, "admin", body["data"].(map[string]interface{})["role"])
	}
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/api/me", "", nil).Code)
}

func userRouter(users *fakeUsers) *gin.Engine {
	r := gin.New()
	NewUserHandler(users, zap.NewNop()).RegisterRoutes(r.Group(""), testAuth())
	return r
}

func TestSetApproval_PassesActorAndReason(t *testing.T) {
	users := &fakeUsers{}
	r := userRouter(users)

	w := doJSON(r, http.MethodPatch, "/api/users/u-1/approval", adminToken(t), map[string]string{"status": "Declined", "reason": "Blurry passport"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"7d2f2c1e-6f1a-4a8e-9a53-2a4c1f0b9e11|u-1|Declined|Blurry passport"}, users.approvalCalls)

	w = doJSON(r, http.MethodPatch, "/api/users/u-1/approval", adminToken(t), map[string]string{"reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, users.approvalCalls, 1)
}

func TestSetApproval_AdminOnly(t *testing.T) {
	users := &fakeUsers{}
	r := userRouter(users)
	w := doJSON(r, http.MethodPatch, "/api/users/u-1/approval", userToken(t, "u-1"), map[string]string{"status": "Approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, users.approvalCalls)
}

func TestDeleteUser_ErrorMapping(t *testing.T) {
	users := &fakeUsers{deleteErr: &service.ValidationError{Message: "Please provide a reason for deletion"}}
	r := userRouter(users)

	w := doJSON(r, http.MethodDelete, "/api/users/u-1", adminToken(t), map[string]string{"reason": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide a reason for deletion", decode(t, w)["error"])
	assert.Equal(t, "  ", users.deleteReason)

	users.deleteErr = nil
	w = doJSON(r, http.MethodDelete, "/api/users/u-1", adminToken(t), map[string]string{"reason": "Duplicate account"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Duplicate account", users.deleteReason)
}

func TestUpdateUser_UserActorForwarded(t *testing.T) {
	users := &fakeUsers{}
	r := userRouter(users)
	w := doJSON(r, http.MethodPut, "/api/users/u-9", userToken(t, "u-9"), map[string]string{"address": "Cebu"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Actor{ID: "u-9", Role: model.RoleUser}, users.updateActor)
}

func TestListUsers_Pagination(t *testing.T) {
	users := &fakeUsers{}
	r := userRouter(users)
	w := doJSON(r, http.MethodGet, "/api/users?status=Pending&search=maria&page=2&limit=20", adminToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, service.UserListFilter{Status: "Pending", Search: "maria", Page: 2, Limit: 20}, users.listFilter)
	meta := decode(t, w)["meta"].(map[string]interface{})
	assert.EqualValues(t, 45, meta["total"])
	assert.EqualValues(t, 3, meta["total_pages"])
}

func TestUploadDocument_Multipart(t *testing.T) {
	users := &fakeUsers{}
	r := userRouter(users)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, "passport.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/u-3/documents/passport", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+userToken(t, "u-3"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "passport", users.uploadKind)
	assert.Equal(t, "passport.pdf", users.uploadName)

	w = doJSON(r, http.MethodPost, "/api/users/u-3/documents/passport", userToken(t, "u-3"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWizardStep(t *testing.T) {
	r := gin.New()
	NewWizardHandler(service.Wizards()).RegisterRoutes(r.Group(""))

	w := doJSON(r, http.MethodPost, "/api/wizards/visitor/steps/1", "", map[string]string{
		"first_name": "Ana", "last_name": "Cruz", "contact_number": "09171234567",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"next_step":2,"done":false}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/wizards/visitor/steps/2", "", map[string]string{"purpose": "Meeting"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"Person to visit is required"}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/wizards/visitor/steps/9", "", map[string]string{})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(r, http.MethodPost, "/api/wizards/spaceship/steps/1", "", map[string]string{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/wizards/user", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	steps := decode(t, w)["data"].(map[string]interface{})["steps"].([]interface{})
	assert.Len(t, steps, 4)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("x: %w", service.ErrAlreadyExists)))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrInvalidState))
	assert.Equal(t, http.StatusForbidden, statusFor(service.ErrForbidden))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
