package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/repository"
	"tourdesk/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(subject, role, sessionID string) (token string, expiresAt time.Time, err error)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expires_at"`
	Role      string         `json:"role"`
	User      *UserResponse  `json:"user,omitempty"`
	Admin     *AdminResponse `json:"admin,omitempty"`
}

type AdminResponse struct {
	ID                string  `json:"id"`
	FirstName         string  `json:"first_name"`
	LastName          string  `json:"last_name"`
	Email             string  `json:"email"`
	Role              string  `json:"role"`
	ProfilePictureURL *string `json:"profile_picture_url"`
}

// MeResponse carries exactly one of User or Admin
type MeResponse struct {
	Role  string         `json:"role"`
	User  *UserResponse  `json:"user,omitempty"`
	Admin *AdminResponse `json:"admin,omitempty"`
}

// AuthService handles logins and server-side session validity
type AuthService interface {
	LoginUser(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	LoginAdmin(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, actor Actor) error
	ValidateSession(ctx context.Context, userID, sessionID string) (bool, error)
	Me(ctx context.Context, actor Actor) (*MeResponse, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	users  repository.UserRepository
	admins repository.AdminRepository
	tokens TokenIssuer
	store  storage.Store
	log    *zap.Logger
}

// NewAuthService returns a new instance of AuthService
func NewAuthService(users repository.UserRepository, admins repository.AdminRepository, tokens TokenIssuer, store storage.Store, log *zap.Logger) AuthService {
	return &authService{users: users, admins: admins, tokens: tokens, store: store, log: log}
}

const invalidCredentials = "Invalid email or password"

func mapAdmin(a *model.Admin, store storage.Store) *AdminResponse {
	resp := &AdminResponse{
		ID:        a.ID.String(),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      a.Role,
	}
	if a.ProfilePicture != nil && *a.ProfilePicture != "" && store != nil {
		u := store.PublicURL(storage.BucketProfilePictures, *a.ProfilePicture)
		resp.ProfilePictureURL = &u
	}
	return resp
}

func (s *authService) LoginUser(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(lookupErr(err, ""), ErrNotFound) {
			return nil, unauthorized(invalidCredentials)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, unauthorized(invalidCredentials)
	}

	switch user.ApprovalStatus {
	case model.ApprovalPending:
		return nil, forbidden("Your account is pending approval. Please wait for an administrator to review it.")
	case model.ApprovalDeclined:
		msg := "Your account has been declined."
		if user.DeclineReason != nil && *user.DeclineReason != "" {
			msg += " Reason: " + *user.DeclineReason
		}
		return nil, forbidden(msg)
	}

	// A new sid invalidates any token issued before this login.
	sid := uuid.NewString()
	user.SessionToken = &sid
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(user.ID.String(), model.RoleUser, sid)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return &LoginResponse{
		Token:     token,
		ExpiresAt: exp.Format(timestampLayout),
		Role:      model.RoleUser,
		User:      mapUser(user, s.store),
	}, nil
}

func (s *authService) LoginAdmin(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(lookupErr(err, ""), ErrNotFound) {
			return nil, unauthorized(invalidCredentials)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		return nil, unauthorized(invalidCredentials)
	}

	token, exp, err := s.tokens.Issue(admin.ID.String(), admin.Role, uuid.NewString())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	s.log.Info("admin logged in", zap.String("admin_id", admin.ID.String()))
	return &LoginResponse{
		Token:     token,
		ExpiresAt: exp.Format(timestampLayout),
		Role:      admin.Role,
		Admin:     mapAdmin(admin, s.store),
	}, nil
}

func (s *authService) Logout(ctx context.Context, actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	uid, err := parseID(actor.ID, "user")
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return lookupErr(err, "User not found")
	}
	user.SessionToken = nil
	return s.users.Update(ctx, user)
}

func (s *authService) ValidateSession(ctx context.Context, userID, sessionID string) (bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil || sessionID == "" {
		return false, nil
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(lookupErr(err, ""), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.SessionToken != nil && *user.SessionToken == sessionID && user.ApprovalStatus == model.ApprovalApproved, nil
}

func (s *authService) Me(ctx context.Context, actor Actor) (*MeResponse, error) {
	id, err := parseID(actor.ID, "account")
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		admin, err := s.admins.GetByID(ctx, id)
		if err != nil {
			return nil, lookupErr(err, "Admin not found")
		}
		return &MeResponse{Role: admin.Role, Admin: mapAdmin(admin, s.store)}, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "User not found")
	}
	return &MeResponse{Role: model.RoleUser, User: mapUser(user, s.store)}, nil
}

// EnsureAdmin creates the bootstrap superadmin when no account holds email.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	_, err := s.admins.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(lookupErr(err, ""), ErrNotFound) {
		return err
	}
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return invalid("Bootstrap admin password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}
	admin := &model.Admin{
		FirstName: "System",
		LastName:  "Administrator",
		Email:     email,
		Password:  string(hashed),
		Role:      model.RoleSuperAdmin,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return writeErr(err, "Admin already exists")
	}
	s.log.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
