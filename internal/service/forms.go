package service

import (
	"tourdesk/internal/model"
	"tourdesk/internal/wizard"
)

// Wizard forms. Every field is a string as typed into the dashboard; dates are
// YYYY-MM-DD and times HH:MM.

type UserForm struct {
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name"`
	Suffix          string `json:"suffix"`
	Birthday        string `json:"birthday"`
	Contact         string `json:"contact"`
	Address         string `json:"address"`
	Zipcode         string `json:"zipcode"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
}

type VisitorForm struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ContactNumber  string `json:"contact_number"`
	Email          string `json:"email"`
	Purpose        string `json:"purpose"`
	PersonToVisit  string `json:"person_to_visit"`
	VisitDate      string `json:"visit_date"`
	ExpectedTimeIn string `json:"expected_time_in"`
}

type FacilityForm struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	VehicleType   string `json:"vehicle_type"`
	PlateNumber   string `json:"plate_number"`
	Capacity      int    `json:"capacity"`
	DriverName    string `json:"driver_name"`
	DriverContact string `json:"driver_contact"`
	DailyRate     string `json:"daily_rate"`
	Status        string `json:"status"`
}

type CaseForm struct {
	CaseNumber  string `json:"case_number"`
	Title       string `json:"title"`
	CaseType    string `json:"case_type"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Court       string `json:"court"`
	UserID      string `json:"user_id"`
	FilingDate  string `json:"filing_date"`
	HearingDate string `json:"hearing_date"`
}

type ContractForm struct {
	ContractNumber string `json:"contract_number"`
	Title          string `json:"title"`
	PartyName      string `json:"party_name"`
	ContractType   string `json:"contract_type"`
	Value          string `json:"value"`
	Status         string `json:"status"`
	Description    string `json:"description"`
	UserID         string `json:"user_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

type ComplianceForm struct {
	ComplianceNumber string `json:"compliance_number"`
	Title            string `json:"title"`
	Category         string `json:"category"`
	RegulatoryBody   string `json:"regulatory_body"`
	Status           string `json:"status"`
	Description      string `json:"description"`
	UserID           string `json:"user_id"`
	DueDate          string `json:"due_date"`
	SubmittedDate    string `json:"submitted_date"`
}

type ReservationForm struct {
	UserID          string `json:"user_id"`
	ReservationDate string `json:"reservation_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Purpose         string `json:"purpose"`
}

var UserFlow = wizard.NewFlow("user",
	wizard.Step[UserForm]{Name: "Personal Information", Validate: func(f UserForm) error {
		return wizard.First(
			wizard.Required("First name", f.FirstName),
			wizard.Required("Last name", f.LastName),
			wizard.Date("Birthday", f.Birthday),
			wizard.MinAge("Birthday", f.Birthday, minimumApplicantAge),
		)
	}},
	wizard.Step[UserForm]{Name: "Contact Details", Validate: func(f UserForm) error {
		return wizard.First(
			wizard.PHMobile("Contact number", f.Contact),
			wizard.Required("Address", f.Address),
			wizard.Zipcode("Zipcode", f.Zipcode),
			wizard.Email("Email", f.Email),
		)
	}},
	wizard.Step[UserForm]{Name: "Account Security", Validate: func(f UserForm) error {
		return wizard.First(
			wizard.MinLen("Password", f.Password, minPasswordLength),
			wizard.Equal("Passwords do not match", f.Password, f.ConfirmPassword),
		)
	}},
	wizard.Step[UserForm]{Name: "Terms", Validate: func(f UserForm) error {
		return wizard.True("You must accept the terms and conditions", f.AcceptTerms)
	}},
)

var VisitorFlow = wizard.NewFlow("visitor",
	wizard.Step[VisitorForm]{Name: "Visitor Information", Validate: func(f VisitorForm) error {
		return wizard.First(
			wizard.Required("First name", f.FirstName),
			wizard.Required("Last name", f.LastName),
			wizard.PHMobile("Contact number", f.ContactNumber),
			wizard.OptionalEmail("Email", f.Email),
		)
	}},
	wizard.Step[VisitorForm]{Name: "Visit Details", Validate: func(f VisitorForm) error {
		return wizard.First(
			wizard.Required("Purpose", f.Purpose),
			wizard.Required("Person to visit", f.PersonToVisit),
		)
	}},
	wizard.Step[VisitorForm]{Name: "Schedule", Validate: func(f VisitorForm) error {
		return wizard.First(
			wizard.DateNotInPast("Visit date", f.VisitDate),
			wizard.TimeOfDay("Expected time in", f.ExpectedTimeIn),
		)
	}},
)

var FacilityFlow = wizard.NewFlow("facility",
	wizard.Step[FacilityForm]{Name: "Vehicle", Validate: func(f FacilityForm) error {
		return wizard.First(
			wizard.Required("Facility name", f.Name),
			wizard.OneOf("Category", f.Category, model.FacilityVIP, model.FacilityPremium, model.FacilityStandard),
			wizard.Required("Vehicle type", f.VehicleType),
			wizard.Required("Plate number", f.PlateNumber),
			wizard.MaxLen("Plate number", f.PlateNumber, 20),
		)
	}},
	wizard.Step[FacilityForm]{Name: "Driver & Capacity", Validate: func(f FacilityForm) error {
		return wizard.First(
			wizard.Positive("Capacity", f.Capacity),
			wizard.Required("Driver name", f.DriverName),
			wizard.PHMobile("Driver contact", f.DriverContact),
		)
	}},
	wizard.Step[FacilityForm]{Name: "Rate & Status", Validate: func(f FacilityForm) error {
		return wizard.First(
			wizard.Decimal("Daily rate", f.DailyRate),
			wizard.OptionalOneOf("Status", f.Status, model.FacilityAvailable, model.FacilityReserved, model.FacilityUnderMaintenance),
		)
	}},
)

var CaseFlow = wizard.NewFlow("case",
	wizard.Step[CaseForm]{Name: "Case Details", Validate: func(f CaseForm) error {
		return wizard.First(
			wizard.Required("Case number", f.CaseNumber),
			wizard.MaxLen("Case number", f.CaseNumber, 50),
			wizard.Required("Title", f.Title),
			wizard.Required("Case type", f.CaseType),
		)
	}},
	wizard.Step[CaseForm]{Name: "Status & Court", Validate: func(f CaseForm) error {
		return wizard.First(
			wizard.OptionalOneOf("Status", f.Status, model.CaseOpen, model.CaseInProgress, model.CaseClosed, model.CaseAppealed, model.CaseDismissed),
			wizard.OptionalOneOf("Priority", f.Priority, model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent),
			wizard.UUID("User", f.UserID),
		)
	}},
	wizard.Step[CaseForm]{Name: "Dates", Validate: func(f CaseForm) error {
		return wizard.First(
			wizard.Date("Filing date", f.FilingDate),
			wizard.DateNotInFuture("Filing date", f.FilingDate),
			wizard.OptionalDate("Hearing date", f.HearingDate),
			wizard.DateOnOrAfter("Hearing date", f.HearingDate, "filing date", f.FilingDate),
		)
	}},
)

var ContractFlow = wizard.NewFlow("contract",
	wizard.Step[ContractForm]{Name: "Contract Details", Validate: func(f ContractForm) error {
		return wizard.First(
			wizard.Required("Contract number", f.ContractNumber),
			wizard.MaxLen("Contract number", f.ContractNumber, 50),
			wizard.Required("Title", f.Title),
			wizard.Required("Party name", f.PartyName),
			wizard.Required("Contract type", f.ContractType),
		)
	}},
	wizard.Step[ContractForm]{Name: "Value & Status", Validate: func(f ContractForm) error {
		return wizard.First(
			wizard.Decimal("Contract value", f.Value),
			wizard.OptionalOneOf("Status", f.Status, model.ContractPendingApproval, model.ContractActive, model.ContractExpired, model.ContractTerminated),
			wizard.UUID("User", f.UserID),
		)
	}},
	wizard.Step[ContractForm]{Name: "Term", Validate: func(f ContractForm) error {
		return wizard.First(
			wizard.Date("Start date", f.StartDate),
			wizard.Date("End date", f.EndDate),
			wizard.DateAfter("End date", f.EndDate, "start date", f.StartDate),
		)
	}},
)

var ComplianceFlow = wizard.NewFlow("compliance",
	wizard.Step[ComplianceForm]{Name: "Requirement", Validate: func(f ComplianceForm) error {
		return wizard.First(
			wizard.Required("Compliance number", f.ComplianceNumber),
			wizard.MaxLen("Compliance number", f.ComplianceNumber, 50),
			wizard.Required("Title", f.Title),
			wizard.Required("Category", f.Category),
			wizard.Required("Regulatory body", f.RegulatoryBody),
		)
	}},
	wizard.Step[ComplianceForm]{Name: "Status", Validate: func(f ComplianceForm) error {
		return wizard.First(
			wizard.OptionalOneOf("Status", f.Status, model.CompliancePending, model.ComplianceSubmitted, model.ComplianceApproved, model.ComplianceRejected, model.ComplianceOverdue),
			wizard.UUID("User", f.UserID),
		)
	}},
	wizard.Step[ComplianceForm]{Name: "Deadlines", Validate: func(f ComplianceForm) error {
		return wizard.First(
			wizard.Date("Due date", f.DueDate),
			wizard.OptionalDate("Submitted date", f.SubmittedDate),
			wizard.DateNotInFuture("Submitted date", f.SubmittedDate),
		)
	}},
)

var ReservationFlow = wizard.NewFlow("reservation",
	wizard.Step[ReservationForm]{Name: "Schedule", Validate: func(f ReservationForm) error {
		return wizard.First(
			wizard.Required("User", f.UserID),
			wizard.UUID("User", f.UserID),
			wizard.DateNotInPast("Reservation date", f.ReservationDate),
			wizard.TimeOfDay("Start time", f.StartTime),
			wizard.TimeOfDay("End time", f.EndTime),
			wizard.TimeAfter("End time", f.EndTime, "start time", f.StartTime),
		)
	}},
)

// Wizards lists every flow for the step-validation endpoint
func Wizards() wizard.Registry {
	return wizard.Registry{}.Register(UserFlow, VisitorFlow, FacilityFlow, CaseFlow, ContractFlow, ComplianceFlow, ReservationFlow)
}

func validateForm[T any](flow *wizard.Flow[T], form T) error {
	if err := flow.ValidateAll(form); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}
