package service

import (
	"context"
	"strings"
	"time"

	"tourdesk/internal/export"
	"tourdesk/internal/model"
	"tourdesk/internal/repository"
	"tourdesk/internal/websocket"
	"tourdesk/internal/wizard"

	"go.uber.org/zap"
)

type VisitorListFilter struct {
	Status string
	Search string
	From   string
	To     string
	Page   int
	Limit  int
}

type VisitorTransitionRequest struct {
	Remarks string `json:"remarks"`
}

type VisitorResponse struct {
	model.Visitor
	FullName string `json:"full_name"`
	LoggedBy string `json:"logged_by,omitempty"`
	VisitDay string `json:"visit_day"`
}

// VisitorService keeps the front-desk visitor log
type VisitorService interface {
	Create(ctx context.Context, adminID string, form VisitorForm) (*VisitorResponse, error)
	Update(ctx context.Context, adminID, id string, form VisitorForm) (*VisitorResponse, error)
	Delete(ctx context.Context, adminID, id string) error
	Get(ctx context.Context, id string) (*VisitorResponse, error)
	List(ctx context.Context, filter VisitorListFilter) ([]VisitorResponse, int64, error)
	CheckIn(ctx context.Context, adminID, id string) (*VisitorResponse, error)
	CheckOut(ctx context.Context, adminID, id, remarks string) (*VisitorResponse, error)
	Cancel(ctx context.Context, adminID, id, remarks string) (*VisitorResponse, error)
	Export(ctx context.Context, filter VisitorListFilter) ([]byte, error)
}

type visitorService struct {
	repo  repository.VisitorRepository
	audit repository.AuditRepository
	tx    repository.TransactionManager
	live  ChangePublisher
	log   *zap.Logger
	now   func() time.Time
}

// NewVisitorService returns a new instance of VisitorService
func NewVisitorService(repo repository.VisitorRepository, audit repository.AuditRepository, tx repository.TransactionManager, live ChangePublisher, log *zap.Logger) VisitorService {
	return &visitorService{repo: repo, audit: audit, tx: tx, live: live, log: log, now: time.Now}
}

func mapVisitor(v *model.Visitor) *VisitorResponse {
	resp := &VisitorResponse{
		Visitor:  *v,
		FullName: v.FirstName + " " + v.LastName,
		VisitDay: formatDate(v.VisitDate),
	}
	if v.Admin != nil {
		resp.LoggedBy = v.Admin.FirstName + " " + v.Admin.LastName
		resp.Admin = nil
	}
	return resp
}

func fillVisitor(v *model.Visitor, form VisitorForm) {
	v.FirstName = strings.TrimSpace(form.FirstName)
	v.LastName = strings.TrimSpace(form.LastName)
	v.ContactNumber = strings.TrimSpace(form.ContactNumber)
	v.Email = strings.TrimSpace(form.Email)
	v.Purpose = strings.TrimSpace(form.Purpose)
	v.PersonToVisit = strings.TrimSpace(form.PersonToVisit)
	v.VisitDate = parseDate(form.VisitDate)
	v.ExpectedTimeIn = strings.TrimSpace(form.ExpectedTimeIn)
}

func (s *visitorService) Create(ctx context.Context, adminID string, form VisitorForm) (*VisitorResponse, error) {
	if err := validateForm(VisitorFlow, form); err != nil {
		return nil, err
	}
	v := &model.Visitor{Status: model.VisitorExpected, AdminID: actorID(adminID)}
	fillVisitor(v, form)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, v); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, v.AdminID, model.ActionCreateVisitor, v.ID.String(), v.FirstName+" "+v.LastName,
			map[string]interface{}{"visit_date": formatDate(v.VisitDate)})
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableVisitors, websocket.OpInsert, v.ID)
	return mapVisitor(v), nil
}

// Update revalidates the schedule only when it changed, so past visits stay editable.
func (s *visitorService) Update(ctx context.Context, adminID, id string, form VisitorForm) (*VisitorResponse, error) {
	vid, err := parseID(id, "visitor")
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindByID(ctx, vid)
	if err != nil {
		return nil, lookupErr(err, "Visitor not found")
	}
	for step := 1; step <= 2; step++ {
		if err := VisitorFlow.ValidateStep(step, form); err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
	}
	if strings.TrimSpace(form.VisitDate) != formatDate(v.VisitDate) {
		if err := VisitorFlow.ValidateStep(3, form); err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
	} else if err := wizard.TimeOfDay("Expected time in", form.ExpectedTimeIn); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	fillVisitor(v, form)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, v); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateVisitor, v.ID.String(), v.FirstName+" "+v.LastName, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableVisitors, websocket.OpUpdate, v.ID)
	return mapVisitor(v), nil
}

func (s *visitorService) Delete(ctx context.Context, adminID, id string) error {
	vid, err := parseID(id, "visitor")
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := s.repo.FindByID(txCtx, vid)
		if err != nil {
			return lookupErr(err, "Visitor not found")
		}
		if err := s.repo.Delete(txCtx, vid); err != nil {
			return lookupErr(err, "Visitor not found")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionDeleteVisitor, vid.String(), v.FirstName+" "+v.LastName, nil)
	})
	if err != nil {
		return err
	}
	publish(s.live, TableVisitors, websocket.OpDelete, vid)
	return nil
}

func (s *visitorService) Get(ctx context.Context, id string) (*VisitorResponse, error) {
	vid, err := parseID(id, "visitor")
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindByID(ctx, vid)
	if err != nil {
		return nil, lookupErr(err, "Visitor not found")
	}
	return mapVisitor(v), nil
}

func (s *visitorService) repoFilter(filter VisitorListFilter) (repository.VisitorFilter, error) {
	if filter.Status != "" {
		if err := wizard.OneOf("Status", filter.Status, model.VisitorExpected, model.VisitorCheckedIn, model.VisitorCheckedOut, model.VisitorCancelled); err != nil {
			return repository.VisitorFilter{}, &ValidationError{Message: err.Error()}
		}
	}
	for _, d := range []struct{ label, v string }{{"From date", filter.From}, {"To date", filter.To}} {
		if err := wizard.OptionalDate(d.label, d.v); err != nil {
			return repository.VisitorFilter{}, &ValidationError{Message: err.Error()}
		}
	}
	if err := wizard.DateOnOrAfter("To date", filter.To, "from date", filter.From); err != nil {
		return repository.VisitorFilter{}, &ValidationError{Message: err.Error()}
	}
	return repository.VisitorFilter{
		Status: filter.Status,
		Search: strings.TrimSpace(filter.Search),
		From:   parseOptionalDate(filter.From),
		To:     parseOptionalDate(filter.To),
		Page:   filter.Page,
		Limit:  filter.Limit,
	}, nil
}

func (s *visitorService) List(ctx context.Context, filter VisitorListFilter) ([]VisitorResponse, int64, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	rf, err := s.repoFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	list, total, err := s.repo.List(ctx, rf)
	if err != nil {
		return nil, 0, err
	}
	out := make([]VisitorResponse, 0, len(list))
	for i := range list {
		out = append(out, *mapVisitor(&list[i]))
	}
	return out, total, nil
}

// Export writes every matching visitor, ignoring pagination.
func (s *visitorService) Export(ctx context.Context, filter VisitorListFilter) ([]byte, error) {
	filter.Page, filter.Limit = 1, 0
	rf, err := s.repoFilter(filter)
	if err != nil {
		return nil, err
	}
	list, _, err := s.repo.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	return export.Visitors(list)
}

func (s *visitorService) CheckIn(ctx context.Context, adminID, id string) (*VisitorResponse, error) {
	return s.transition(ctx, adminID, id, model.VisitorExpected, model.VisitorCheckedIn, "", model.ActionVisitorCheckIn)
}

func (s *visitorService) CheckOut(ctx context.Context, adminID, id, remarks string) (*VisitorResponse, error) {
	return s.transition(ctx, adminID, id, model.VisitorCheckedIn, model.VisitorCheckedOut, remarks, model.ActionVisitorCheckOut)
}

func (s *visitorService) Cancel(ctx context.Context, adminID, id, remarks string) (*VisitorResponse, error) {
	return s.transition(ctx, adminID, id, model.VisitorExpected, model.VisitorCancelled, remarks, model.ActionVisitorCancel)
}

// transition moves a visitor from one status to the next, stamping arrival or departure.
func (s *visitorService) transition(ctx context.Context, adminID, id, from, to, remarks, action string) (*VisitorResponse, error) {
	remarks = strings.TrimSpace(remarks)
	if err := wizard.OptionalOneOf("Remarks", remarks,
		model.RemarkCompleted, model.RemarkNoShow, model.RemarkRescheduled, model.RemarkLeftEarly, model.RemarkOther); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	vid, err := parseID(id, "visitor")
	if err != nil {
		return nil, err
	}

	var v *model.Visitor
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if v, err = s.repo.FindByID(txCtx, vid); err != nil {
			return lookupErr(err, "Visitor not found")
		}
		if v.Status != from {
			return invalidState("Cannot change visitor from " + v.Status + " to " + to)
		}
		now := s.now()
		switch to {
		case model.VisitorCheckedIn:
			v.TimeIn = &now
		case model.VisitorCheckedOut:
			v.TimeOut = &now
		}
		v.Status = to
		if remarks != "" {
			v.Remarks = &remarks
		}
		if err := s.repo.Update(txCtx, v); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), action, v.ID.String(), v.FirstName+" "+v.LastName,
			map[string]interface{}{"from": from, "to": to, "remarks": remarks})
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableVisitors, websocket.OpUpdate, v.ID)
	return mapVisitor(v), nil
}
