package service

import (
	"context"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/notify"
	"tourdesk/internal/repository"
	"tourdesk/internal/storage"
	"tourdesk/internal/websocket"

	"go.uber.org/zap"
)

type ArchivedUserResponse struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	FullName       string        `json:"full_name"`
	Email          string        `json:"email"`
	Contact        string        `json:"contact"`
	Birthday       string        `json:"birthday"`
	Age            int           `json:"age"`
	Address        string        `json:"address"`
	Zipcode        string        `json:"zipcode"`
	Documents      UserDocuments `json:"documents"`
	ApprovalStatus string        `json:"approval_status"`
	Category       string        `json:"category"`
	ArchivedAt     string        `json:"archived_at"`
	ArchivedBy     *string       `json:"archived_by"`
}

// ArchiveService moves users between the live table and the archive
type ArchiveService interface {
	Archive(ctx context.Context, adminID, userID string) (*ArchivedUserResponse, error)
	Retrieve(ctx context.Context, adminID, archiveID string) (*UserResponse, error)
	ListArchived(ctx context.Context, search string, page, limit int) ([]ArchivedUserResponse, int64, error)
	GetArchived(ctx context.Context, archiveID string) (*ArchivedUserResponse, error)
}

type archiveService struct {
	users    repository.UserRepository
	archive  repository.ArchiveRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	notifier Notifier
	store    storage.Store
	live     ChangePublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewArchiveService returns a new instance of ArchiveService
func NewArchiveService(
	users repository.UserRepository,
	archive repository.ArchiveRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	notifier Notifier,
	store storage.Store,
	live ChangePublisher,
	log *zap.Logger,
) ArchiveService {
	return &archiveService{
		users:    users,
		archive:  archive,
		audit:    audit,
		tx:       tx,
		notifier: notifier,
		store:    store,
		live:     live,
		log:      log,
		now:      time.Now,
	}
}

func mapArchived(a *model.ArchivedUserDocument, store storage.Store) *ArchivedUserResponse {
	u := a.RestoredUser()
	live := mapUser(u, store)
	return &ArchivedUserResponse{
		ID:             a.ID.String(),
		UserID:         a.UserID.String(),
		FullName:       u.FullName(),
		Email:          a.Email,
		Contact:        a.Contact,
		Birthday:       formatDate(a.Birthday),
		Age:            a.Age,
		Address:        a.Address,
		Zipcode:        a.Zipcode,
		Documents:      live.Documents,
		ApprovalStatus: a.ApprovalStatus,
		Category:       a.Category,
		ArchivedAt:     a.ArchivedAt.Format(timestampLayout),
		ArchivedBy:     idString(a.ArchivedBy),
	}
}

// Archive copies the user into the archive and removes the live row in one transaction.
func (s *archiveService) Archive(ctx context.Context, adminID, userID string) (*ArchivedUserResponse, error) {
	uid, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	admin := actorID(adminID)

	var doc *model.ArchivedUserDocument
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, uid)
		if err != nil {
			return lookupErr(err, "User not found")
		}
		doc = model.NewArchiveCopy(user, admin, s.now())
		if err := s.archive.Create(txCtx, doc); err != nil {
			return err
		}
		if err := s.users.Delete(txCtx, uid); err != nil {
			return lookupErr(err, "User not found")
		}
		if err := writeAudit(txCtx, s.audit, admin, model.ActionArchiveUser, uid.String(), user.FullName(),
			map[string]interface{}{"archive_id": doc.ID.String(), "email": user.Email}); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, notify.Message{Kind: model.NotifyArchival, To: user.Email, FirstName: user.FirstName})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user archived", zap.String("user_id", userID), zap.String("archive_id", doc.ID.String()))
	publish(s.live, TableUsers, websocket.OpDelete, uid)
	publish(s.live, TableArchivedUsers, websocket.OpInsert, doc.ID)
	return mapArchived(doc, s.store), nil
}

// Retrieve restores the archived user under its original id and drops the archive row.
func (s *archiveService) Retrieve(ctx context.Context, adminID, archiveID string) (*UserResponse, error) {
	aid, err := parseID(archiveID, "archive")
	if err != nil {
		return nil, err
	}
	admin := actorID(adminID)

	var user *model.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		doc, err := s.archive.FindByID(txCtx, aid)
		if err != nil {
			return lookupErr(err, "Archived record not found")
		}
		if existing, err := s.users.GetByEmail(txCtx, doc.Email); err == nil && existing.ID != doc.UserID {
			return alreadyExists("Another account already uses " + doc.Email)
		}
		user = doc.RestoredUser()
		if err := s.users.Upsert(txCtx, user); err != nil {
			return writeErr(err, "Another account already uses "+doc.Email)
		}
		if err := s.archive.Delete(txCtx, aid); err != nil {
			return lookupErr(err, "Archived record not found")
		}
		if err := writeAudit(txCtx, s.audit, admin, model.ActionRetrieveUser, user.ID.String(), user.FullName(),
			map[string]interface{}{"archive_id": aid.String()}); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, notify.Message{Kind: model.NotifyRetrieval, To: user.Email, FirstName: user.FirstName})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user retrieved", zap.String("user_id", user.ID.String()), zap.String("archive_id", archiveID))
	publish(s.live, TableArchivedUsers, websocket.OpDelete, aid)
	publish(s.live, TableUsers, websocket.OpInsert, user.ID)
	return mapUser(user, s.store), nil
}

func (s *archiveService) ListArchived(ctx context.Context, search string, page, limit int) ([]ArchivedUserResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	docs, total, err := s.archive.List(ctx, strings.TrimSpace(search), page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ArchivedUserResponse, 0, len(docs))
	for i := range docs {
		out = append(out, *mapArchived(&docs[i], s.store))
	}
	return out, total, nil
}

func (s *archiveService) GetArchived(ctx context.Context, archiveID string) (*ArchivedUserResponse, error) {
	aid, err := parseID(archiveID, "archive")
	if err != nil {
		return nil, err
	}
	doc, err := s.archive.FindByID(ctx, aid)
	if err != nil {
		return nil, lookupErr(err, "Archived record not found")
	}
	return mapArchived(doc, s.store), nil
}
