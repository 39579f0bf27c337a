package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/repository"
	"tourdesk/internal/storage"
	"tourdesk/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LegalFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

func (f LegalFilter) record() repository.RecordFilter {
	page, limit := normalizePage(f.Page, f.Limit)
	return repository.RecordFilter{Status: f.Status, Search: strings.TrimSpace(f.Search), Page: page, Limit: limit}
}

type CaseResponse struct {
	model.Case
	DocumentURL *string `json:"document_url"`
}

type ContractResponse struct {
	model.Contract
	DocumentURL *string `json:"document_url"`
}

type ComplianceResponse struct {
	model.ComplianceRecord
	DocumentURL *string `json:"document_url"`
}

type CaseService interface {
	Create(ctx context.Context, adminID string, form CaseForm) (*CaseResponse, error)
	Update(ctx context.Context, adminID, id string, form CaseForm) (*CaseResponse, error)
	Delete(ctx context.Context, adminID, id string) error
	Get(ctx context.Context, id string) (*CaseResponse, error)
	List(ctx context.Context, filter LegalFilter) ([]CaseResponse, int64, error)
	UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*CaseResponse, error)
}

type ContractService interface {
	Create(ctx context.Context, adminID string, form ContractForm) (*ContractResponse, error)
	Update(ctx context.Context, adminID, id string, form ContractForm) (*ContractResponse, error)
	Delete(ctx context.Context, adminID, id string) error
	Get(ctx context.Context, id string) (*ContractResponse, error)
	List(ctx context.Context, filter LegalFilter) ([]ContractResponse, int64, error)
	UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*ContractResponse, error)
}

type ComplianceService interface {
	Create(ctx context.Context, adminID string, form ComplianceForm) (*ComplianceResponse, error)
	Update(ctx context.Context, adminID, id string, form ComplianceForm) (*ComplianceResponse, error)
	Delete(ctx context.Context, adminID, id string) error
	Get(ctx context.Context, id string) (*ComplianceResponse, error)
	List(ctx context.Context, filter LegalFilter) ([]ComplianceResponse, int64, error)
	UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*ComplianceResponse, error)
}

// LegalDeps holds what the case, contract and compliance services share
type LegalDeps struct {
	audit repository.AuditRepository
	tx    repository.TransactionManager
	store storage.Store
	live  ChangePublisher
	log   *zap.Logger
	now   func() time.Time
}

// NewLegalDeps groups the collaborators of the legal record services
func NewLegalDeps(audit repository.AuditRepository, tx repository.TransactionManager, store storage.Store, live ChangePublisher, log *zap.Logger) LegalDeps {
	return LegalDeps{audit: audit, tx: tx, store: store, live: live, log: log, now: time.Now}
}

func (d LegalDeps) documentURL(p *string) *string {
	if p == nil || *p == "" || d.store == nil {
		return nil
	}
	u := d.store.PublicURL(storage.BucketLegalDocuments, *p)
	return &u
}

// storeDocument uploads into legal-documents under <prefix>/<id>/.
func (d LegalDeps) storeDocument(ctx context.Context, prefix string, id uuid.UUID, filename string, size int64, r io.Reader) (string, error) {
	if err := storage.ValidateUpload(filename, size); err != nil {
		return "", invalid("%s", uploadMessage(err))
	}
	key := fmt.Sprintf("%s/%s/%d%s", prefix, id, d.now().UnixNano(), strings.ToLower(filepath.Ext(filename)))
	path, err := d.store.Upload(ctx, storage.BucketLegalDocuments, key, r)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return "", invalid("%s", uploadMessage(err))
		}
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return path, nil
}

func (d LegalDeps) dropDocument(ctx context.Context, p *string) {
	if p == nil || *p == "" || d.store == nil {
		return
	}
	if err := d.store.Remove(ctx, storage.BucketLegalDocuments, *p); err != nil {
		d.log.Warn("failed to remove legal document", zap.String("path", *p), zap.Error(err))
	}
}

// ensureNumberFree rejects number when a record other than self already holds it.
func ensureNumberFree[T any](ctx context.Context, find func(context.Context, string) (*T, error), idOf func(*T) uuid.UUID, number string, self uuid.UUID, msg string) error {
	found, err := find(ctx, number)
	if err != nil {
		if errors.Is(lookupErr(err, ""), ErrNotFound) {
			return nil
		}
		return err
	}
	if idOf(found) != self {
		return alreadyExists(msg)
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// --- Cases ---

type caseService struct {
	LegalDeps
	repo repository.CaseRepository
}

// NewCaseService returns a new instance of CaseService
func NewCaseService(repo repository.CaseRepository, deps LegalDeps) CaseService {
	return &caseService{LegalDeps: deps, repo: repo}
}

func (s *caseService) respond(c *model.Case) *CaseResponse {
	return &CaseResponse{Case: *c, DocumentURL: s.documentURL(c.DocumentPath)}
}

func (s *caseService) fill(c *model.Case, form CaseForm) error {
	userID, err := optionalID(form.UserID, "user")
	if err != nil {
		return err
	}
	c.CaseNumber = strings.TrimSpace(form.CaseNumber)
	c.Title = strings.TrimSpace(form.Title)
	c.CaseType = strings.TrimSpace(form.CaseType)
	c.Description = strings.TrimSpace(form.Description)
	c.Status = orDefault(form.Status, model.CaseOpen)
	c.Priority = orDefault(form.Priority, model.PriorityMedium)
	c.Court = strings.TrimSpace(form.Court)
	c.UserID = userID
	c.FilingDate = parseDate(form.FilingDate)
	c.HearingDate = parseOptionalDate(form.HearingDate)
	return nil
}

func (s *caseService) Create(ctx context.Context, adminID string, form CaseForm) (*CaseResponse, error) {
	form.CaseNumber = strings.TrimSpace(form.CaseNumber)
	if err := validateForm(CaseFlow, form); err != nil {
		return nil, err
	}
	if err := ensureNumberFree(ctx, s.repo.FindByNumber, func(c *model.Case) uuid.UUID { return c.ID }, form.CaseNumber, uuid.Nil, "Case number already exists"); err != nil {
		return nil, err
	}
	c := &model.Case{AdminID: actorID(adminID)}
	if err := s.fill(c, form); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, c); err != nil {
			return writeErr(err, "Case number already exists")
		}
		return writeAudit(txCtx, s.audit, c.AdminID, model.ActionCreateCase, c.ID.String(), c.CaseNumber, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableCases, websocket.OpInsert, c.ID)
	return s.respond(c), nil
}

func (s *caseService) Update(ctx context.Context, adminID, id string, form CaseForm) (*CaseResponse, error) {
	cid, err := parseID(id, "case")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Case not found")
	}
	form.CaseNumber = strings.TrimSpace(form.CaseNumber)
	if err := validateForm(CaseFlow, form); err != nil {
		return nil, err
	}
	if err := ensureNumberFree(ctx, s.repo.FindByNumber, func(c *model.Case) uuid.UUID { return c.ID }, form.CaseNumber, cid, "Case number already exists"); err != nil {
		return nil, err
	}
	if err := s.fill(c, form); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, c); err != nil {
			return writeErr(err, "Case number already exists")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateCase, c.ID.String(), c.CaseNumber, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableCases, websocket.OpUpdate, c.ID)
	return s.respond(c), nil
}

func (s *caseService) Delete(ctx context.Context, adminID, id string) error {
	cid, err := parseID(id, "case")
	if err != nil {
		return err
	}
	var c *model.Case
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if c, err = s.repo.FindByID(txCtx, cid); err != nil {
			return lookupErr(err, "Case not found")
		}
		if err := s.repo.Delete(txCtx, cid); err != nil {
			return lookupErr(err, "Case not found")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionDeleteCase, cid.String(), c.CaseNumber, nil)
	})
	if err != nil {
		return err
	}
	s.dropDocument(ctx, c.DocumentPath)
	publish(s.live, TableCases, websocket.OpDelete, cid)
	return nil
}

func (s *caseService) Get(ctx context.Context, id string) (*CaseResponse, error) {
	cid, err := parseID(id, "case")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Case not found")
	}
	return s.respond(c), nil
}

func (s *caseService) List(ctx context.Context, filter LegalFilter) ([]CaseResponse, int64, error) {
	list, total, err := s.repo.List(ctx, filter.record())
	if err != nil {
		return nil, 0, err
	}
	out := make([]CaseResponse, 0, len(list))
	for i := range list {
		out = append(out, *s.respond(&list[i]))
	}
	return out, total, nil
}

func (s *caseService) UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*CaseResponse, error) {
	cid, err := parseID(id, "case")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Case not found")
	}
	path, err := s.storeDocument(ctx, "cases", cid, filename, size, r)
	if err != nil {
		return nil, err
	}
	old := c.DocumentPath
	c.DocumentPath = &path
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, c); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateCase, c.ID.String(), c.CaseNumber,
			map[string]interface{}{"document": path})
	})
	if err != nil {
		s.dropDocument(ctx, &path)
		return nil, err
	}
	s.dropDocument(ctx, old)
	publish(s.live, TableCases, websocket.OpUpdate, c.ID)
	return s.respond(c), nil
}

// --- Contracts ---

type contractService struct {
	LegalDeps
	repo repository.ContractRepository
}

// NewContractService returns a new instance of ContractService
func NewContractService(repo repository.ContractRepository, deps LegalDeps) ContractService {
	return &contractService{LegalDeps: deps, repo: repo}
}

func (s *contractService) respond(c *model.Contract) *ContractResponse {
	return &ContractResponse{Contract: *c, DocumentURL: s.documentURL(c.DocumentPath)}
}

func (s *contractService) fill(c *model.Contract, form ContractForm) error {
	userID, err := optionalID(form.UserID, "user")
	if err != nil {
		return err
	}
	value := decimal.Zero
	if v, err := decimal.NewFromString(strings.TrimSpace(form.Value)); err == nil {
		value = v
	}
	c.ContractNumber = strings.TrimSpace(form.ContractNumber)
	c.Title = strings.TrimSpace(form.Title)
	c.PartyName = strings.TrimSpace(form.PartyName)
	c.ContractType = strings.TrimSpace(form.ContractType)
	c.Value = value
	c.Status = orDefault(form.Status, model.ContractPendingApproval)
	c.Description = strings.TrimSpace(form.Description)
	c.UserID = userID
	c.StartDate = parseDate(form.StartDate)
	c.EndDate = parseDate(form.EndDate)
	return nil
}

func (s *contractService) Create(ctx context.Context, adminID string, form ContractForm) (*ContractResponse, error) {
	form.ContractNumber = strings.TrimSpace(form.ContractNumber)
	if err := validateForm(ContractFlow, form); err != nil {
		return nil, err
	}
	if err := ensureNumberFree(ctx, s.repo.FindByNumber, func(c *model.Contract) uuid.UUID { return c.ID }, form.ContractNumber, uuid.Nil, "Contract number already exists"); err != nil {
		return nil, err
	}
	c := &model.Contract{AdminID: actorID(adminID)}
	if err := s.fill(c, form); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, c); err != nil {
			return writeErr(err, "Contract number already exists")
		}
		return writeAudit(txCtx, s.audit, c.AdminID, model.ActionCreateContract, c.ID.String(), c.ContractNumber,
			map[string]interface{}{"value": c.Value.StringFixed(2)})
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableContracts, websocket.OpInsert, c.ID)
	return s.respond(c), nil
}

func (s *contractService) Update(ctx context.Context, adminID, id string, form ContractForm) (*ContractResponse, error) {
	cid, err := parseID(id, "contract")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Contract not found")
	}
	form.ContractNumber = strings.TrimSpace(form.ContractNumber)
	if err := validateForm(ContractFlow, form); err != nil {
		return nil, err
	}
	if err := ensureNumberFree(ctx, s.repo.FindByNumber, func(c *model.Contract) uuid.UUID { return c.ID }, form.ContractNumber, cid, "Contract number already exists"); err != nil {
		return nil, err
	}
	if err := s.fill(c, form); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, c); err != nil {
			return writeErr(err, "Contract number already exists")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateContract, c.ID.String(), c.ContractNumber, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableContracts, websocket.OpUpdate, c.ID)
	return s.respond(c), nil
}

func (s *contractService) Delete(ctx context.Context, adminID, id string) error {
	cid, err := parseID(id, "contract")
	if err != nil {
		return err
	}
	var c *model.Contract
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if c, err = s.repo.FindByID(txCtx, cid); err != nil {
			return lookupErr(err, "Contract not found")
		}
		if err := s.repo.Delete(txCtx, cid); err != nil {
			return lookupErr(err, "Contract not found")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionDeleteContract, cid.String(), c.ContractNumber, nil)
	})
	if err != nil {
		return err
	}
	s.dropDocument(ctx, c.DocumentPath)
	publish(s.live, TableContracts, websocket.OpDelete, cid)
	return nil
}

func (s *contractService) Get(ctx context.Context, id string) (*ContractResponse, error) {
	cid, err := parseID(id, "contract")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Contract not found")
	}
	return s.respond(c), nil
}

func (s *contractService) List(ctx context.Context, filter LegalFilter) ([]ContractResponse, int64, error) {
	list, total, err := s.repo.List(ctx, filter.record())
	if err != nil {
		return nil, 0, err
	}
	out := make([]ContractResponse, 0, len(list))
	for i := range list {
		out = append(out, *s.respond(&list[i]))
	}
	return out, total, nil
}

func (s *contractService) UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*ContractResponse, error) {
	cid, err := parseID(id, "contract")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Contract not found")
	}
	path, err := s.storeDocument(ctx, "contracts", cid, filename, size, r)
	if err != nil {
		return nil, err
	}
	old := c.DocumentPath
	c.DocumentPath = &path
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, c); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateContract, c.ID.String(), c.ContractNumber,
			map[string]interface{}{"document": path})
	})
	if err != nil {
		s.dropDocument(ctx, &path)
		return nil, err
	}
	s.dropDocument(ctx, old)
	publish(s.live, TableContracts, websocket.OpUpdate, c.ID)
	return s.respond(c), nil
}

// --- Compliance ---

type complianceService struct {
	LegalDeps
	repo repository.ComplianceRepository
}

// NewComplianceService returns a new instance of ComplianceService
func NewComplianceService(repo repository.ComplianceRepository, deps LegalDeps) ComplianceService {
	return &complianceService{LegalDeps: deps, repo: repo}
}

func (s *complianceService) respond(c *model.ComplianceRecord) *ComplianceResponse {
	return &ComplianceResponse{ComplianceRecord: *c, DocumentURL: s.documentURL(c.DocumentPath)}
}

func (s *complianceService) fill(c *model.ComplianceRecord, form ComplianceForm) error {
	userID, err := optionalID(form.UserID, "user")
	if err != nil {
		return err
	}
	c.ComplianceNumber = strings.TrimSpace(form.ComplianceNumber)
	c.Title = strings.TrimSpace(form.Title)
	c.Category = strings.TrimSpace(form.Category)
	c.RegulatoryBody = strings.TrimSpace(form.RegulatoryBody)
	c.Status = orDefault(form.Status, model.CompliancePending)
	c.Description = strings.TrimSpace(form.Description)
	c.UserID = userID
	c.DueDate = parseDate(form.DueDate)
	c.SubmittedDate = parseOptionalDate(form.SubmittedDate)
	return nil
}

func (s *complianceService) Create(ctx context.Context, adminID string, form ComplianceForm) (*ComplianceResponse, error) {
	form.ComplianceNumber = strings.TrimSpace(form.ComplianceNumber)
	if err := validateForm(ComplianceFlow, form); err != nil {
		return nil, err
	}
	if err := ensureNumberFree(ctx, s.repo.FindByNumber, func(c *model.ComplianceRecord) uuid.UUID { return c.ID }, form.ComplianceNumber, uuid.Nil, "Compliance number already exists"); err != nil {
		return nil, err
	}
	c := &model.ComplianceRecord{AdminID: actorID(adminID)}
	if err := s.fill(c, form); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, c); err != nil {
			return writeErr(err, "Compliance number already exists")
		}
		return writeAudit(txCtx, s.audit, c.AdminID, model.ActionCreateCompliance, c.ID.String(), c.ComplianceNumber, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableCompliance, websocket.OpInsert, c.ID)
	return s.respond(c), nil
}

func (s *complianceService) Update(ctx context.Context, adminID, id string, form ComplianceForm) (*ComplianceResponse, error) {
	cid, err := parseID(id, "compliance")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Compliance record not found")
	}
	form.ComplianceNumber = strings.TrimSpace(form.ComplianceNumber)
	if err := validateForm(ComplianceFlow, form); err != nil {
		return nil, err
	}
	if err := ensureNumberFree(ctx, s.repo.FindByNumber, func(c *model.ComplianceRecord) uuid.UUID { return c.ID }, form.ComplianceNumber, cid, "Compliance number already exists"); err != nil {
		return nil, err
	}
	if err := s.fill(c, form); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, c); err != nil {
			return writeErr(err, "Compliance number already exists")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateCompliance, c.ID.String(), c.ComplianceNumber, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableCompliance, websocket.OpUpdate, c.ID)
	return s.respond(c), nil
}

func (s *complianceService) Delete(ctx context.Context, adminID, id string) error {
	cid, err := parseID(id, "compliance")
	if err != nil {
		return err
	}
	var c *model.ComplianceRecord
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if c, err = s.repo.FindByID(txCtx, cid); err != nil {
			return lookupErr(err, "Compliance record not found")
		}
		if err := s.repo.Delete(txCtx, cid); err != nil {
			return lookupErr(err, "Compliance record not found")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionDeleteCompliance, cid.String(), c.ComplianceNumber, nil)
	})
	if err != nil {
		return err
	}
	s.dropDocument(ctx, c.DocumentPath)
	publish(s.live, TableCompliance, websocket.OpDelete, cid)
	return nil
}

func (s *complianceService) Get(ctx context.Context, id string) (*ComplianceResponse, error) {
	cid, err := parseID(id, "compliance")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Compliance record not found")
	}
	return s.respond(c), nil
}

func (s *complianceService) List(ctx context.Context, filter LegalFilter) ([]ComplianceResponse, int64, error) {
	list, total, err := s.repo.List(ctx, filter.record())
	if err != nil {
		return nil, 0, err
	}
	out := make([]ComplianceResponse, 0, len(list))
	for i := range list {
		out = append(out, *s.respond(&list[i]))
	}
	return out, total, nil
}

func (s *complianceService) UploadDocument(ctx context.Context, adminID, id, filename string, size int64, r io.Reader) (*ComplianceResponse, error) {
	cid, err := parseID(id, "compliance")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "Compliance record not found")
	}
	path, err := s.storeDocument(ctx, "compliance", cid, filename, size, r)
	if err != nil {
		return nil, err
	}
	old := c.DocumentPath
	c.DocumentPath = &path
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, c); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateCompliance, c.ID.String(), c.ComplianceNumber,
			map[string]interface{}{"document": path})
	})
	if err != nil {
		s.dropDocument(ctx, &path)
		return nil, err
	}
	s.dropDocument(ctx, old)
	publish(s.live, TableCompliance, websocket.OpUpdate, c.ID)
	return s.respond(c), nil
}
