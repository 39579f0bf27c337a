package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"tourdesk/internal/export"
	"tourdesk/internal/model"
	"tourdesk/internal/notify"
	"tourdesk/internal/repository"
	"tourdesk/internal/storage"
	"tourdesk/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	profilePictureMaxSide = 512
	profilePictureQuality = 80
	exportRowLimit        = 5000
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   string
	Role string
}

// IsAdmin reports whether the caller holds an operator role
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleSuperAdmin
}

// DTOs
type UpdateUserRequest struct {
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name"`
	Suffix     *string `json:"suffix"`
	Birthday   *string `json:"birthday"`
	Contact    *string `json:"contact"`
	Address    *string `json:"address"`
	Zipcode    *string `json:"zipcode"`
	Email      *string `json:"email"`
}

type ApprovalRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type DeleteUserRequest struct {
	Reason string `json:"reason"`
}

type UserListFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// UserDocuments holds public URLs of uploaded identity documents
type UserDocuments struct {
	Visa     *string `json:"visa"`
	Passport *string `json:"passport"`
	IDFront  *string `json:"id_front"`
	IDBack   *string `json:"id_back"`
}

// UserResponse never exposes credentials, session or reset state
type UserResponse struct {
	ID                string        `json:"id"`
	FirstName         string        `json:"first_name"`
	MiddleName        string        `json:"middle_name"`
	LastName          string        `json:"last_name"`
	Suffix            string        `json:"suffix"`
	FullName          string        `json:"full_name"`
	Birthday          string        `json:"birthday"`
	Age               int           `json:"age"`
	Contact           string        `json:"contact"`
	Address           string        `json:"address"`
	Zipcode           string        `json:"zipcode"`
	Email             string        `json:"email"`
	Documents         UserDocuments `json:"documents"`
	ProfilePictureURL *string       `json:"profile_picture_url"`
	ApprovalStatus    string        `json:"approval_status"`
	ApprovedBy        *string       `json:"approved_by"`
	ApproverName      string        `json:"approver_name,omitempty"`
	ApprovedAt        *string       `json:"approved_at"`
	DeclineReason     *string       `json:"decline_reason"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
}

// UserService covers the applicant lifecycle managed from the dashboard
type UserService interface {
	Register(ctx context.Context, form UserForm) (*UserResponse, error)
	CreateUser(ctx context.Context, adminID string, form UserForm) (*UserResponse, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, filter UserListFilter) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	SetApprovalStatus(ctx context.Context, adminID, userID, status, reason string) (*UserResponse, error)
	DeleteUser(ctx context.Context, adminID, userID, reason string) error
	UploadDocument(ctx context.Context, actor Actor, userID, kind, filename string, size int64, r io.Reader) (*UserResponse, error)
	UploadProfilePicture(ctx context.Context, actor Actor, userID, filename string, data []byte) (*UserResponse, error)
	ExportUsers(ctx context.Context, filter UserListFilter) ([]byte, error)
}

type userService struct {
	users    repository.UserRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	notifier Notifier
	store    storage.Store
	live     ChangePublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewUserService returns a new instance of UserService
func NewUserService(
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	notifier Notifier,
	store storage.Store,
	live ChangePublisher,
	log *zap.Logger,
) UserService {
	return &userService{
		users:    users,
		audit:    audit,
		tx:       tx,
		notifier: notifier,
		store:    store,
		live:     live,
		log:      log,
		now:      time.Now,
	}
}

func mapUser(u *model.User, store storage.Store) *UserResponse {
	url := func(bucket string, p *string) *string {
		if p == nil || *p == "" || store == nil {
			return nil
		}
		s := store.PublicURL(bucket, *p)
		return &s
	}
	resp := &UserResponse{
		ID:         u.ID.String(),
		FirstName:  u.FirstName,
		MiddleName: u.MiddleName,
		LastName:   u.LastName,
		Suffix:     u.Suffix,
		FullName:   u.FullName(),
		Birthday:   formatDate(u.Birthday),
		Age:        u.Age,
		Contact:    u.Contact,
		Address:    u.Address,
		Zipcode:    u.Zipcode,
		Email:      u.Email,
		Documents: UserDocuments{
			Visa:     url(storage.BucketUserDocuments, u.VisaPath),
			Passport: url(storage.BucketUserDocuments, u.PassportPath),
			IDFront:  url(storage.BucketUserDocuments, u.IDFrontPath),
			IDBack:   url(storage.BucketUserDocuments, u.IDBackPath),
		},
		ProfilePictureURL: url(storage.BucketProfilePictures, u.ProfilePicture),
		ApprovalStatus:    u.ApprovalStatus,
		ApprovedBy:        idString(u.ApprovedBy),
		ApprovedAt:        formatOptionalTime(u.ApprovedAt),
		DeclineReason:     u.DeclineReason,
		CreatedAt:         u.CreatedAt.Format(timestampLayout),
		UpdatedAt:         u.UpdatedAt.Format(timestampLayout),
	}
	if u.Approver != nil {
		resp.ApproverName = u.Approver.FirstName + " " + u.Approver.LastName
	}
	return resp
}

func (s *userService) Register(ctx context.Context, form UserForm) (*UserResponse, error) {
	return s.create(ctx, nil, form, "registration")
}

func (s *userService) CreateUser(ctx context.Context, adminID string, form UserForm) (*UserResponse, error) {
	return s.create(ctx, actorID(adminID), form, "admin")
}

func (s *userService) create(ctx context.Context, admin *uuid.UUID, form UserForm, source string) (*UserResponse, error) {
	form.Email = normalizeEmail(form.Email)
	if err := validateForm(UserFlow, form); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, form.Email, nil); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}
	birthday := parseDate(form.Birthday)
	user := &model.User{
		FirstName:      strings.TrimSpace(form.FirstName),
		MiddleName:     strings.TrimSpace(form.MiddleName),
		LastName:       strings.TrimSpace(form.LastName),
		Suffix:         strings.TrimSpace(form.Suffix),
		Birthday:       birthday,
		Age:            model.AgeOn(birthday, s.now()),
		Contact:        strings.TrimSpace(form.Contact),
		Address:        strings.TrimSpace(form.Address),
		Zipcode:        strings.TrimSpace(form.Zipcode),
		Email:          form.Email,
		Password:       string(hashed),
		ApprovalStatus: model.ApprovalPending,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return writeErr(err, "Email already exists")
		}
		return writeAudit(txCtx, s.audit, admin, model.ActionCreateUser, user.ID.String(), user.FullName(),
			map[string]interface{}{"email": user.Email, "source": source})
	})
	if err != nil {
		return nil, err
	}

	publish(s.live, TableUsers, websocket.OpInsert, user.ID)
	return mapUser(user, s.store), nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self *model.User) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if self == nil || existing.ID != self.ID {
			return alreadyExists("Email already exists")
		}
		return nil
	case errors.Is(lookupErr(err, ""), ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, lookupErr(err, "User not found")
	}
	return mapUser(user, s.store), nil
}

func (s *userService) ListUsers(ctx context.Context, filter UserListFilter) ([]UserResponse, int64, error) {
	if filter.Status != "" && !isApprovalStatus(filter.Status) {
		return nil, 0, invalid("Invalid approval status: %s", filter.Status)
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Status: filter.Status,
		Search: strings.TrimSpace(filter.Search),
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *mapUser(&users[i], s.store))
	}
	return out, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != uid.String() {
		return nil, forbidden("You can only update your own profile")
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, lookupErr(err, "User not found")
	}

	form := UserForm{
		FirstName:  user.FirstName,
		MiddleName: user.MiddleName,
		LastName:   user.LastName,
		Suffix:     user.Suffix,
		Birthday:   formatDate(user.Birthday),
		Contact:    user.Contact,
		Address:    user.Address,
		Zipcode:    user.Zipcode,
		Email:      user.Email,
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	apply(&form.FirstName, req.FirstName)
	apply(&form.MiddleName, req.MiddleName)
	apply(&form.LastName, req.LastName)
	apply(&form.Suffix, req.Suffix)
	apply(&form.Birthday, req.Birthday)
	apply(&form.Contact, req.Contact)
	apply(&form.Address, req.Address)
	apply(&form.Zipcode, req.Zipcode)
	apply(&form.Email, req.Email)
	form.Email = normalizeEmail(form.Email)

	for step := 1; step <= 2; step++ {
		if err := UserFlow.ValidateStep(step, form); err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
	}
	if form.Email != user.Email {
		if err := s.ensureEmailFree(ctx, form.Email, user); err != nil {
			return nil, err
		}
	}

	user.FirstName = form.FirstName
	user.MiddleName = form.MiddleName
	user.LastName = form.LastName
	user.Suffix = form.Suffix
	user.Birthday = parseDate(form.Birthday)
	user.Age = model.AgeOn(user.Birthday, s.now())
	user.Contact = form.Contact
	user.Address = form.Address
	user.Zipcode = form.Zipcode
	user.Email = form.Email

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return writeErr(err, "Email already exists")
		}
		var admin *uuid.UUID
		if actor.IsAdmin() {
			admin = actorID(actor.ID)
		}
		return writeAudit(txCtx, s.audit, admin, model.ActionUpdateUser, user.ID.String(), user.FullName(), nil)
	})
	if err != nil {
		return nil, err
	}

	publish(s.live, TableUsers, websocket.OpUpdate, user.ID)
	return mapUser(user, s.store), nil
}

// applyApproval moves the user to status. The approver stamp is written on
// entry into Approved and is never cleared afterwards.
func applyApproval(u *model.User, status, reason string, admin uuid.UUID, now time.Time) {
	if status == model.ApprovalApproved && (u.ApprovedBy == nil || u.ApprovalStatus != model.ApprovalApproved) {
		id := admin
		at := now
		u.ApprovedBy = &id
		u.ApprovedAt = &at
		u.Approver = nil
	}
	if status == model.ApprovalDeclined {
		u.DeclineReason = strPtr(reason)
	}
	if status != model.ApprovalApproved {
		u.SessionToken = nil
	}
	u.ApprovalStatus = status
}

func (s *userService) SetApprovalStatus(ctx context.Context, adminID, userID, status, reason string) (*UserResponse, error) {
	if !isApprovalStatus(status) {
		return nil, invalid("Invalid approval status: %s", status)
	}
	admin := actorID(adminID)
	if admin == nil {
		return nil, unauthorized("Admin session required")
	}
	uid, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if user, err = s.users.GetByID(txCtx, uid); err != nil {
			return lookupErr(err, "User not found")
		}
		prev := user.ApprovalStatus
		applyApproval(user, status, reason, *admin, s.now())
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}

		details := map[string]interface{}{"from": prev, "to": status}
		if status == model.ApprovalDeclined && user.DeclineReason != nil {
			details["reason"] = *user.DeclineReason
		}
		if err := writeAudit(txCtx, s.audit, admin, approvalAction(status), user.ID.String(), user.FullName(), details); err != nil {
			return err
		}

		if prev == status {
			return nil
		}
		switch status {
		case model.ApprovalApproved:
			return s.notifier.Enqueue(txCtx, notify.Message{Kind: model.NotifyApproval, To: user.Email, FirstName: user.FirstName})
		case model.ApprovalDeclined:
			return s.notifier.Enqueue(txCtx, notify.Message{
				Kind: model.NotifyDecline, To: user.Email, FirstName: user.FirstName,
				Data: map[string]string{"reason": deref(user.DeclineReason)},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user approval status changed",
		zap.String("user_id", user.ID.String()),
		zap.String("status", status),
		zap.String("admin_id", adminID))
	publish(s.live, TableUsers, websocket.OpUpdate, user.ID)
	return mapUser(user, s.store), nil
}

func approvalAction(status string) string {
	switch status {
	case model.ApprovalApproved:
		return model.ActionApproveUser
	case model.ApprovalDeclined:
		return model.ActionDeclineUser
	}
	return model.ActionSetPending
}

func isApprovalStatus(status string) bool {
	switch status {
	case model.ApprovalPending, model.ApprovalApproved, model.ApprovalDeclined:
		return true
	}
	return false
}

func (s *userService) DeleteUser(ctx context.Context, adminID, userID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("A reason is required to delete a user")
	}
	uid, err := parseID(userID, "user")
	if err != nil {
		return err
	}
	admin := actorID(adminID)

	var user *model.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if user, err = s.users.GetByID(txCtx, uid); err != nil {
			return lookupErr(err, "User not found")
		}
		if err := s.users.Delete(txCtx, uid); err != nil {
			return lookupErr(err, "User not found")
		}
		if err := writeAudit(txCtx, s.audit, admin, model.ActionDeleteUser, user.ID.String(), user.FullName(),
			map[string]interface{}{"email": user.Email, "reason": reason}); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, notify.Message{
			Kind: model.NotifyDeletion, To: user.Email, FirstName: user.FirstName,
			Data: map[string]string{"reason": reason},
		})
	})
	if err != nil {
		return err
	}

	s.removeFiles(ctx, user)
	s.log.Info("user deleted", zap.String("user_id", userID), zap.String("admin_id", adminID))
	publish(s.live, TableUsers, websocket.OpDelete, uid)
	return nil
}

// removeFiles drops stored documents of a deleted user; failures only leave orphans.
func (s *userService) removeFiles(ctx context.Context, u *model.User) {
	if s.store == nil {
		return
	}
	for _, p := range []*string{u.VisaPath, u.PassportPath, u.IDFrontPath, u.IDBackPath} {
		if p == nil {
			continue
		}
		if err := s.store.Remove(ctx, storage.BucketUserDocuments, *p); err != nil {
			s.log.Warn("failed to remove user document", zap.String("path", *p), zap.Error(err))
		}
	}
	if u.ProfilePicture != nil {
		if err := s.store.Remove(ctx, storage.BucketProfilePictures, *u.ProfilePicture); err != nil {
			s.log.Warn("failed to remove profile picture", zap.String("path", *u.ProfilePicture), zap.Error(err))
		}
	}
}

func (s *userService) loadOwned(ctx context.Context, actor Actor, userID string) (*model.User, error) {
	uid, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != uid.String() {
		return nil, forbidden("You can only upload files to your own account")
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, lookupErr(err, "User not found")
	}
	return user, nil
}

func (s *userService) UploadDocument(ctx context.Context, actor Actor, userID, kind, filename string, size int64, r io.Reader) (*UserResponse, error) {
	if err := storage.ValidateUpload(filename, size); err != nil {
		return nil, invalid("%s", uploadMessage(err))
	}
	user, err := s.loadOwned(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	field := user.DocumentPath(kind)
	if field == nil {
		return nil, invalid("Unknown document type: %s", kind)
	}

	key := fmt.Sprintf("%s/%s-%d%s", user.ID, kind, s.now().Unix(), strings.ToLower(filepath.Ext(filename)))
	path, err := s.store.Upload(ctx, storage.BucketUserDocuments, key, r)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, invalid("%s", uploadMessage(err))
		}
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	old := *field
	*field = &path

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		var admin *uuid.UUID
		if actor.IsAdmin() {
			admin = actorID(actor.ID)
		}
		return writeAudit(txCtx, s.audit, admin, model.ActionUploadUserDoc, user.ID.String(), user.FullName(),
			map[string]interface{}{"kind": kind, "path": path})
	})
	if err != nil {
		_ = s.store.Remove(ctx, storage.BucketUserDocuments, path)
		return nil, err
	}
	if old != nil && *old != path {
		if err := s.store.Remove(ctx, storage.BucketUserDocuments, *old); err != nil {
			s.log.Warn("failed to remove replaced document", zap.String("path", *old), zap.Error(err))
		}
	}

	publish(s.live, TableUsers, websocket.OpUpdate, user.ID)
	return mapUser(user, s.store), nil
}

func (s *userService) UploadProfilePicture(ctx context.Context, actor Actor, userID, filename string, data []byte) (*UserResponse, error) {
	if err := storage.ValidateUpload(filename, int64(len(data))); err != nil {
		return nil, invalid("%s", uploadMessage(err))
	}
	if !storage.IsImage(filename) {
		return nil, invalid("Profile picture must be a JPG or PNG image")
	}
	user, err := s.loadOwned(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	compressed, err := storage.CompressImage(data, profilePictureMaxSide, profilePictureQuality)
	if err != nil {
		return nil, invalid("Profile picture could not be read as an image")
	}

	key := fmt.Sprintf("%s/profile-%d.jpg", user.ID, s.now().Unix())
	path, err := s.store.Upload(ctx, storage.BucketProfilePictures, key, bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to store profile picture: %w", err)
	}
	old := user.ProfilePicture
	user.ProfilePicture = &path
	if err := s.users.Update(ctx, user); err != nil {
		_ = s.store.Remove(ctx, storage.BucketProfilePictures, path)
		return nil, err
	}
	if old != nil && *old != path {
		if err := s.store.Remove(ctx, storage.BucketProfilePictures, *old); err != nil {
			s.log.Warn("failed to remove replaced profile picture", zap.String("path", *old), zap.Error(err))
		}
	}

	publish(s.live, TableUsers, websocket.OpUpdate, user.ID)
	return mapUser(user, s.store), nil
}

func (s *userService) ExportUsers(ctx context.Context, filter UserListFilter) ([]byte, error) {
	if filter.Status != "" && !isApprovalStatus(filter.Status) {
		return nil, invalid("Invalid approval status: %s", filter.Status)
	}
	users, _, err := s.users.List(ctx, repository.UserFilter{
		Status: filter.Status,
		Search: strings.TrimSpace(filter.Search),
		Page:   1,
		Limit:  exportRowLimit,
	})
	if err != nil {
		return nil, err
	}
	return export.Users(users)
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return "File is too large. Maximum size is 10MB"
	case errors.Is(err, storage.ErrFileType):
		return "Only JPG, PNG and PDF files are allowed"
	}
	return "Invalid file"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
