package service

import (
	"context"
	"testing"
	"time"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validComplianceForm(number string) ComplianceForm {
	return ComplianceForm{
		ComplianceNumber: number,
		Title:            "DOT accreditation renewal",
		Category:         "Licensing",
		RegulatoryBody:   "Department of Tourism",
		DueDate:          "2026-12-31",
	}
}

func TestComplianceCreate_NumberMustBeUnique(t *testing.T) {
	repo := newMemCompliance()
	audit := &memAudit{}
	svc := NewComplianceService(repo, NewLegalDeps(audit, passTx{}, nil, &recPublisher{}, zap.NewNop()))
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.NewString(), validComplianceForm("CMP-2026-001"))
	require.NoError(t, err)
	assert.Equal(t, model.CompliancePending, created.Status)
	assert.Nil(t, created.DocumentURL)

	_, err = svc.Create(ctx, uuid.NewString(), validComplianceForm(" CMP-2026-001 "))
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "Compliance number already exists", err.Error())
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, []string{model.ActionCreateCompliance}, audit.actions())
}

func TestComplianceUpdate_KeepsOwnNumber(t *testing.T) {
	repo := newMemCompliance()
	svc := NewComplianceService(repo, NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.NewString(), validComplianceForm("CMP-1"))
	require.NoError(t, err)

	form := validComplianceForm("CMP-1")
	form.Status = model.ComplianceSubmitted
	form.SubmittedDate = "2026-01-05"
	updated, err := svc.Update(ctx, uuid.NewString(), created.ID.String(), form)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceSubmitted, updated.Status)
	require.NotNil(t, updated.SubmittedDate)
}

func TestComplianceCreate_SubmittedDateNotInFuture(t *testing.T) {
	repo := newMemCompliance()
	svc := NewComplianceService(repo, NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))

	form := validComplianceForm("CMP-9")
	form.SubmittedDate = futureDate(5)
	_, err := svc.Create(context.Background(), uuid.NewString(), form)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Submitted date cannot be in the future", err.Error())
	assert.Empty(t, repo.rows)
}

func TestComplianceGet_Missing(t *testing.T) {
	svc := NewComplianceService(newMemCompliance(), NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))
	_, err := svc.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Compliance record not found", err.Error())
}

func pastDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, -days).Format(dateLayout)
}

func validCaseForm(number string) CaseForm {
	return CaseForm{
		CaseNumber: number,
		Title:      "Refund dispute, Palawan package",
		CaseType:   "Consumer complaint",
		Court:      "MTC Makati Branch 61",
		FilingDate: pastDate(30),
	}
}

func validContractForm(number string) ContractForm {
	return ContractForm{
		ContractNumber: number,
		Title:          "Resort allotment 2027",
		PartyName:      "Coron Bay Resort Inc.",
		ContractType:   "Supplier",
		Value:          "150000.50",
		StartDate:      "2027-01-01",
		EndDate:        "2027-12-31",
	}
}

func TestCaseCreate_NumberMustBeUnique(t *testing.T) {
	repo := newMemCases()
	audit := &memAudit{}
	svc := NewCaseService(repo, NewLegalDeps(audit, passTx{}, nil, &recPublisher{}, zap.NewNop()))
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.NewString(), validCaseForm("CV-2026-014"))
	require.NoError(t, err)
	assert.Equal(t, model.CaseOpen, created.Status)
	assert.Equal(t, model.PriorityMedium, created.Priority)

	_, err = svc.Create(ctx, uuid.NewString(), validCaseForm(" CV-2026-014 "))
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "Case number already exists", err.Error())
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, []string{model.ActionCreateCase}, audit.actions())
}

func TestCaseUpdate_NumberUniqueExceptSelf(t *testing.T) {
	repo := newMemCases()
	svc := NewCaseService(repo, NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))
	ctx := context.Background()

	first, err := svc.Create(ctx, uuid.NewString(), validCaseForm("CV-1"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, uuid.NewString(), validCaseForm("CV-2"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.NewString(), second.ID.String(), validCaseForm("CV-1"))
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "CV-2", repo.rows[second.ID].CaseNumber)

	form := validCaseForm("CV-1")
	form.Status = model.CaseInProgress
	updated, err := svc.Update(ctx, uuid.NewString(), first.ID.String(), form)
	require.NoError(t, err)
	assert.Equal(t, model.CaseInProgress, updated.Status)
}

func TestCaseCreate_HearingNotBeforeFiling(t *testing.T) {
	repo := newMemCases()
	svc := NewCaseService(repo, NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))
	ctx := context.Background()

	form := validCaseForm("CV-7")
	form.HearingDate = pastDate(31)
	_, err := svc.Create(ctx, uuid.NewString(), form)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Hearing date cannot be before filing date", err.Error())
	assert.Empty(t, repo.rows)

	form.HearingDate = form.FilingDate
	created, err := svc.Create(ctx, uuid.NewString(), form)
	require.NoError(t, err)
	require.NotNil(t, created.HearingDate)
}

func TestContractCreate_NumberMustBeUnique(t *testing.T) {
	repo := newMemContracts()
	audit := &memAudit{}
	svc := NewContractService(repo, NewLegalDeps(audit, passTx{}, nil, &recPublisher{}, zap.NewNop()))
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.NewString(), validContractForm("CT-2027-001"))
	require.NoError(t, err)
	assert.Equal(t, model.ContractPendingApproval, created.Status)
	assert.Equal(t, "150000.50", created.Value.StringFixed(2))

	_, err = svc.Create(ctx, uuid.NewString(), validContractForm("CT-2027-001"))
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "Contract number already exists", err.Error())
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, []string{model.ActionCreateContract}, audit.actions())
}

func TestContractUpdate_NumberUniqueExceptSelf(t *testing.T) {
	repo := newMemContracts()
	svc := NewContractService(repo, NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))
	ctx := context.Background()

	first, err := svc.Create(ctx, uuid.NewString(), validContractForm("CT-1"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, uuid.NewString(), validContractForm("CT-2"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.NewString(), second.ID.String(), validContractForm("CT-1"))
	require.ErrorIs(t, err, ErrAlreadyExists)

	form := validContractForm("CT-1")
	form.Status = model.ContractActive
	updated, err := svc.Update(ctx, uuid.NewString(), first.ID.String(), form)
	require.NoError(t, err)
	assert.Equal(t, model.ContractActive, updated.Status)
}

func TestContractCreate_EndMustFollowStart(t *testing.T) {
	repo := newMemContracts()
	svc := NewContractService(repo, NewLegalDeps(&memAudit{}, passTx{}, nil, nil, zap.NewNop()))

	for _, end := range []string{"2027-01-01", "2026-12-31"} {
		form := validContractForm("CT-9")
		form.EndDate = end
		_, err := svc.Create(context.Background(), uuid.NewString(), form)
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "End date must be after start date", err.Error())
	}
	assert.Empty(t, repo.rows)
}
