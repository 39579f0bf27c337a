package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	AdminID    string `json:"admin_id"`
	AdminName  string `json:"admin_name"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditQuery is the raw query string of the activity trail endpoint.
type AuditQuery struct {
	Action   string
	EntityID string
	AdminID  string
	Since    string // YYYY-MM-DD
	Page     int
	Limit    int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the newest entries first with the acting admin resolved.
// Rows without an admin are self-service or background actions.
func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{Action: q.Action, EntityID: strings.TrimSpace(q.EntityID)}
	filter.Page, filter.Limit = normalizePage(q.Page, q.Limit)

	if q.AdminID != "" {
		id, err := uuid.Parse(q.AdminID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid admin id", ErrValidation)
		}
		filter.AdminID = &id
	}
	if q.Since != "" {
		since, err := time.ParseInLocation(dateLayout, q.Since, time.Local)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: since must be YYYY-MM-DD", ErrValidation)
		}
		filter.Since = &since
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditLogResponse(l))
	}
	return res, total, nil
}

func toAuditLogResponse(l model.AuditLog) AuditLogResponse {
	out := AuditLogResponse{
		ID:         l.ID.String(),
		AdminName:  "System",
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Details:    l.Details,
		CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if l.AdminID != nil {
		out.AdminID = l.AdminID.String()
	}
	if l.Admin != nil {
		out.AdminName = strings.TrimSpace(l.Admin.FirstName + " " + l.Admin.LastName)
	}
	return out
}
