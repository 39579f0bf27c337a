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

func newFacilityFixture(facilities []model.Facility, users ...model.User) (*facilityService, *memFacilities) {
	repo := newMemFacilities(facilities...)
	svc := NewFacilityService(repo, newMemUsers(users...), &memAudit{}, passTx{}, nil, &recPublisher{}, zap.NewNop()).(*facilityService)
	return svc, repo
}

func van(plate, status string) model.Facility {
	return model.Facility{
		ID:            uuid.New(),
		Name:          "Hiace Commuter",
		Category:      model.FacilityPremium,
		VehicleType:   "Van",
		PlateNumber:   plate,
		Capacity:      14,
		DriverName:    "Pedro Reyes",
		DriverContact: "09181234567",
		Status:        status,
	}
}

func validFacilityForm(plate string) FacilityForm {
	return FacilityForm{
		Name:          "Coaster",
		Category:      model.FacilityVIP,
		VehicleType:   "Bus",
		PlateNumber:   plate,
		Capacity:      29,
		DriverName:    "Jose Cruz",
		DriverContact: "+639171234567",
		DailyRate:     "8500.00",
	}
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(dateLayout)
}

func TestFacilityCreate_PlateUniquenessIgnoresCase(t *testing.T) {
	existing := van("ABC 1234", model.FacilityAvailable)
	svc, repo := newFacilityFixture([]model.Facility{existing})

	_, err := svc.Create(context.Background(), uuid.NewString(), validFacilityForm(" abc 1234 "))
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "Plate number already exists", err.Error())
	assert.Zero(t, repo.writes)
	assert.Len(t, repo.rows, 1)

	resp, err := svc.Create(context.Background(), uuid.NewString(), validFacilityForm("xyz 987"))
	require.NoError(t, err)
	assert.Equal(t, "XYZ 987", resp.PlateNumber)
	assert.Equal(t, model.FacilityAvailable, resp.Status)
	assert.Equal(t, "8500", resp.DailyRate.String())
}

func TestFacilityUpdate_KeepsOwnPlate(t *testing.T) {
	existing := van("ABC 1234", model.FacilityAvailable)
	svc, _ := newFacilityFixture([]model.Facility{existing})

	form := validFacilityForm("abc 1234")
	form.Capacity = 10
	resp, err := svc.Update(context.Background(), uuid.NewString(), existing.ID.String(), form)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Capacity)
}

func TestFacilityCreate_ValidatesWizard(t *testing.T) {
	svc, repo := newFacilityFixture(nil)
	form := validFacilityForm("NEW 1")
	form.Capacity = 0

	_, err := svc.Create(context.Background(), uuid.NewString(), form)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Capacity must be greater than 0", err.Error())
	assert.Zero(t, repo.writes)
}

func TestReserve_RejectsOverlapAndMaintenance(t *testing.T) {
	u := sampleUser("guest@example.com", model.ApprovalApproved)
	open := van("AAA 111", model.FacilityAvailable)
	broken := van("BBB 222", model.FacilityUnderMaintenance)
	svc, repo := newFacilityFixture([]model.Facility{open, broken}, u)
	ctx := context.Background()
	day := futureDate(3)

	res, err := svc.Reserve(ctx, uuid.NewString(), open.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: day, StartTime: "09:00", EndTime: "12:00", Purpose: "Airport transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationReserved, res.Status)
	assert.Equal(t, u.FullName(), res.UserName)
	assert.Equal(t, model.FacilityReserved, repo.rows[open.ID].Status)

	_, err = svc.Reserve(ctx, uuid.NewString(), open.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: day, StartTime: "11:00", EndTime: "13:00",
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "Facility is already reserved for that time", err.Error())

	// back to back is allowed
	_, err = svc.Reserve(ctx, uuid.NewString(), open.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: day, StartTime: "12:00", EndTime: "14:00",
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, uuid.NewString(), broken.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: day, StartTime: "09:00", EndTime: "10:00",
	})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, repo.reservations, 2)
}

func TestReserve_OneDigitHoursStillClash(t *testing.T) {
	u := sampleUser("guest@example.com", model.ApprovalApproved)
	open := van("AAA 111", model.FacilityAvailable)
	svc, repo := newFacilityFixture([]model.Facility{open}, u)
	ctx := context.Background()
	day := futureDate(2)

	res, err := svc.Reserve(ctx, uuid.NewString(), open.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: day, StartTime: "9:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", res.StartTime)
	assert.Equal(t, "11:00", res.EndTime)

	_, err = svc.Reserve(ctx, uuid.NewString(), open.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: day, StartTime: "10:00", EndTime: "12:00",
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Len(t, repo.reservations, 1)
}

func TestReserve_EndTimeMustFollowStart(t *testing.T) {
	u := sampleUser("guest@example.com", model.ApprovalApproved)
	open := van("AAA 111", model.FacilityAvailable)
	svc, repo := newFacilityFixture([]model.Facility{open}, u)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), open.ID.String(), ReservationForm{
		UserID: u.ID.String(), ReservationDate: futureDate(1), StartTime: "15:00", EndTime: "09:00",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "End time must be after start time", err.Error())
	assert.Empty(t, repo.reservations)
}

func TestCancelReservation_FreesFacility(t *testing.T) {
	u := sampleUser("guest@example.com", model.ApprovalApproved)
	open := van("AAA 111", model.FacilityAvailable)
	svc, repo := newFacilityFixture([]model.Facility{open}, u)
	ctx := context.Background()
	day := futureDate(2)

	first, err := svc.Reserve(ctx, "", open.ID.String(), ReservationForm{UserID: u.ID.String(), ReservationDate: day, StartTime: "08:00", EndTime: "09:00"})
	require.NoError(t, err)
	second, err := svc.Reserve(ctx, "", open.ID.String(), ReservationForm{UserID: u.ID.String(), ReservationDate: day, StartTime: "10:00", EndTime: "11:00"})
	require.NoError(t, err)

	_, err = svc.CancelReservation(ctx, "", first.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.FacilityReserved, repo.rows[open.ID].Status, "still held by the second booking")

	done, err := svc.CompleteReservation(ctx, "", second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, done.Status)
	assert.Equal(t, model.FacilityAvailable, repo.rows[open.ID].Status)

	_, err = svc.CancelReservation(ctx, "", second.ID.String())
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "Reservation is already completed", err.Error())
}

func TestOverlaps(t *testing.T) {
	existing := []model.FacilityReservation{{StartTime: "09:00", EndTime: "11:00"}}
	assert.True(t, overlaps("10:00", "12:00", existing))
	assert.True(t, overlaps("08:00", "09:30", existing))
	assert.True(t, overlaps("09:30", "10:00", existing))
	assert.False(t, overlaps("11:00", "12:00", existing))
	assert.False(t, overlaps("07:00", "09:00", existing))

	// one-digit hours compare by clock, not lexically
	assert.True(t, overlaps("9:00", "11:00", []model.FacilityReservation{{StartTime: "10:00", EndTime: "12:00"}}))
	assert.True(t, overlaps("10:00", "12:00", []model.FacilityReservation{{StartTime: "9:00", EndTime: "11:00"}}))
	assert.False(t, overlaps("7:00", "9:00", existing))
	assert.Equal(t, "09:05", clock(" 9:05 "))
}
