package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/repository"
	"tourdesk/internal/storage"
	"tourdesk/internal/websocket"
	"tourdesk/internal/wizard"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	facilityImageMaxSide = 1280
	facilityImageQuality = 85
)

type FacilityListFilter struct {
	Category string
	Status   string
	Search   string
	Page     int
	Limit    int
}

type FacilityResponse struct {
	model.Facility
	ImageURL *string `json:"image_url"`
}

type ReservationResponse struct {
	model.FacilityReservation
	UserName string `json:"user_name,omitempty"`
}

// FacilityService manages vehicles and their reservations
type FacilityService interface {
	Create(ctx context.Context, adminID string, form FacilityForm) (*FacilityResponse, error)
	Update(ctx context.Context, adminID, id string, form FacilityForm) (*FacilityResponse, error)
	Delete(ctx context.Context, adminID, id string) error
	Get(ctx context.Context, id string) (*FacilityResponse, error)
	List(ctx context.Context, filter FacilityListFilter) ([]FacilityResponse, int64, error)
	UploadImage(ctx context.Context, adminID, id, filename string, data []byte) (*FacilityResponse, error)

	Reserve(ctx context.Context, adminID, facilityID string, form ReservationForm) (*ReservationResponse, error)
	ListReservations(ctx context.Context, facilityID string) ([]ReservationResponse, error)
	CancelReservation(ctx context.Context, adminID, reservationID string) (*ReservationResponse, error)
	CompleteReservation(ctx context.Context, adminID, reservationID string) (*ReservationResponse, error)
}

type facilityService struct {
	repo  repository.FacilityRepository
	users repository.UserRepository
	audit repository.AuditRepository
	tx    repository.TransactionManager
	store storage.Store
	live  ChangePublisher
	log   *zap.Logger
}

// NewFacilityService returns a new instance of FacilityService
func NewFacilityService(
	repo repository.FacilityRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	store storage.Store,
	live ChangePublisher,
	log *zap.Logger,
) FacilityService {
	return &facilityService{repo: repo, users: users, audit: audit, tx: tx, store: store, live: live, log: log}
}

func (s *facilityService) respond(f *model.Facility) *FacilityResponse {
	resp := &FacilityResponse{Facility: *f}
	if f.ImagePath != nil && *f.ImagePath != "" && s.store != nil {
		u := s.store.PublicURL(storage.BucketFacilityImages, *f.ImagePath)
		resp.ImageURL = &u
	}
	return resp
}

func mapReservation(r *model.FacilityReservation) *ReservationResponse {
	resp := &ReservationResponse{FacilityReservation: *r}
	if r.User != nil {
		resp.UserName = r.User.FullName()
		resp.User = nil
	}
	return resp
}

func (s *facilityService) fill(f *model.Facility, form FacilityForm) {
	rate := decimal.Zero
	if v, err := decimal.NewFromString(strings.TrimSpace(form.DailyRate)); err == nil {
		rate = v
	}
	f.Name = strings.TrimSpace(form.Name)
	f.Category = form.Category
	f.VehicleType = strings.TrimSpace(form.VehicleType)
	f.PlateNumber = strings.ToUpper(strings.TrimSpace(form.PlateNumber))
	f.Capacity = form.Capacity
	f.DriverName = strings.TrimSpace(form.DriverName)
	f.DriverContact = strings.TrimSpace(form.DriverContact)
	f.DailyRate = rate
	if st := strings.TrimSpace(form.Status); st != "" {
		f.Status = st
	} else if f.Status == "" {
		f.Status = model.FacilityAvailable
	}
}

// ensurePlateFree rejects the plate when a different facility already holds it.
func (s *facilityService) ensurePlateFree(ctx context.Context, plate string, self *model.Facility) error {
	found, err := s.repo.FindByPlate(ctx, plate)
	if err != nil {
		if errors.Is(lookupErr(err, ""), ErrNotFound) {
			return nil
		}
		return err
	}
	if self == nil || found.ID != self.ID {
		return alreadyExists("Plate number already exists")
	}
	return nil
}

func (s *facilityService) Create(ctx context.Context, adminID string, form FacilityForm) (*FacilityResponse, error) {
	if err := validateForm(FacilityFlow, form); err != nil {
		return nil, err
	}
	if err := s.ensurePlateFree(ctx, form.PlateNumber, nil); err != nil {
		return nil, err
	}
	f := &model.Facility{}
	s.fill(f, form)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, f); err != nil {
			return writeErr(err, "Plate number already exists")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionCreateFacility, f.ID.String(), f.Name,
			map[string]interface{}{"plate_number": f.PlateNumber})
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableFacilities, websocket.OpInsert, f.ID)
	return s.respond(f), nil
}

func (s *facilityService) Update(ctx context.Context, adminID, id string, form FacilityForm) (*FacilityResponse, error) {
	fid, err := parseID(id, "facility")
	if err != nil {
		return nil, err
	}
	f, err := s.repo.FindByID(ctx, fid)
	if err != nil {
		return nil, lookupErr(err, "Facility not found")
	}
	if err := validateForm(FacilityFlow, form); err != nil {
		return nil, err
	}
	if err := s.ensurePlateFree(ctx, form.PlateNumber, f); err != nil {
		return nil, err
	}
	s.fill(f, form)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, f); err != nil {
			return writeErr(err, "Plate number already exists")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateFacility, f.ID.String(), f.Name, nil)
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableFacilities, websocket.OpUpdate, f.ID)
	return s.respond(f), nil
}

func (s *facilityService) Delete(ctx context.Context, adminID, id string) error {
	fid, err := parseID(id, "facility")
	if err != nil {
		return err
	}
	var f *model.Facility
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if f, err = s.repo.FindByID(txCtx, fid); err != nil {
			return lookupErr(err, "Facility not found")
		}
		if err := s.repo.Delete(txCtx, fid); err != nil {
			return lookupErr(err, "Facility not found")
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionDeleteFacility, fid.String(), f.Name,
			map[string]interface{}{"plate_number": f.PlateNumber})
	})
	if err != nil {
		return err
	}
	if f.ImagePath != nil && s.store != nil {
		if err := s.store.Remove(ctx, storage.BucketFacilityImages, *f.ImagePath); err != nil {
			s.log.Warn("failed to remove facility image", zap.String("path", *f.ImagePath), zap.Error(err))
		}
	}
	publish(s.live, TableFacilities, websocket.OpDelete, fid)
	return nil
}

func (s *facilityService) Get(ctx context.Context, id string) (*FacilityResponse, error) {
	fid, err := parseID(id, "facility")
	if err != nil {
		return nil, err
	}
	f, err := s.repo.FindByID(ctx, fid)
	if err != nil {
		return nil, lookupErr(err, "Facility not found")
	}
	return s.respond(f), nil
}

func (s *facilityService) List(ctx context.Context, filter FacilityListFilter) ([]FacilityResponse, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	list, total, err := s.repo.List(ctx, repository.FacilityFilter{
		Category: filter.Category,
		Status:   filter.Status,
		Search:   strings.TrimSpace(filter.Search),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]FacilityResponse, 0, len(list))
	for i := range list {
		out = append(out, *s.respond(&list[i]))
	}
	return out, total, nil
}

func (s *facilityService) UploadImage(ctx context.Context, adminID, id, filename string, data []byte) (*FacilityResponse, error) {
	if err := storage.ValidateUpload(filename, int64(len(data))); err != nil {
		return nil, invalid("%s", uploadMessage(err))
	}
	if !storage.IsImage(filename) {
		return nil, invalid("Facility image must be a JPG or PNG image")
	}
	fid, err := parseID(id, "facility")
	if err != nil {
		return nil, err
	}
	f, err := s.repo.FindByID(ctx, fid)
	if err != nil {
		return nil, lookupErr(err, "Facility not found")
	}
	compressed, err := storage.CompressImage(data, facilityImageMaxSide, facilityImageQuality)
	if err != nil {
		return nil, invalid("Facility image could not be read as an image")
	}
	key := fmt.Sprintf("%s/%d.jpg", fid, time.Now().UnixNano())
	path, err := s.store.Upload(ctx, storage.BucketFacilityImages, key, bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to store facility image: %w", err)
	}
	old := f.ImagePath
	f.ImagePath = &path

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, f); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionUpdateFacility, f.ID.String(), f.Name,
			map[string]interface{}{"image": path})
	})
	if err != nil {
		_ = s.store.Remove(ctx, storage.BucketFacilityImages, path)
		return nil, err
	}
	if old != nil && *old != path {
		if err := s.store.Remove(ctx, storage.BucketFacilityImages, *old); err != nil {
			s.log.Warn("failed to remove replaced facility image", zap.String("path", *old), zap.Error(err))
		}
	}
	publish(s.live, TableFacilities, websocket.OpUpdate, f.ID)
	return s.respond(f), nil
}

// overlaps reports whether [start,end) intersects any reservation. A stored
// slot that does not parse counts as a clash.
func overlaps(start, end string, existing []model.FacilityReservation) bool {
	s, err1 := wizard.ClockTime(start)
	e, err2 := wizard.ClockTime(end)
	if err1 != nil || err2 != nil {
		return true
	}
	for _, r := range existing {
		rs, err1 := wizard.ClockTime(r.StartTime)
		re, err2 := wizard.ClockTime(r.EndTime)
		if err1 != nil || err2 != nil {
			return true
		}
		if s.Before(re) && rs.Before(e) {
			return true
		}
	}
	return false
}

// clock normalizes a validated HH:MM value to two-digit hours.
func clock(v string) string {
	t, err := wizard.ClockTime(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return t.Format(wizard.TimeLayout)
}

func (s *facilityService) Reserve(ctx context.Context, adminID, facilityID string, form ReservationForm) (*ReservationResponse, error) {
	fid, err := parseID(facilityID, "facility")
	if err != nil {
		return nil, err
	}
	if err := validateForm(ReservationFlow, form); err != nil {
		return nil, err
	}
	uid, err := parseID(form.UserID, "user")
	if err != nil {
		return nil, err
	}

	res := &model.FacilityReservation{
		FacilityID:      fid,
		UserID:          uid,
		ReservationDate: parseDate(form.ReservationDate),
		StartTime:       clock(form.StartTime),
		EndTime:         clock(form.EndTime),
		Purpose:         strings.TrimSpace(form.Purpose),
		Status:          model.ReservationReserved,
	}
	var facility *model.Facility
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if facility, err = s.repo.LockByID(txCtx, fid); err != nil {
			return lookupErr(err, "Facility not found")
		}
		if facility.Status == model.FacilityUnderMaintenance {
			return invalidState("Facility is under maintenance and cannot be reserved")
		}
		user, err := s.users.GetByID(txCtx, uid)
		if err != nil {
			return lookupErr(err, "User not found")
		}
		active, err := s.repo.ListActiveOnDate(txCtx, fid, res.ReservationDate)
		if err != nil {
			return err
		}
		if overlaps(res.StartTime, res.EndTime, active) {
			return alreadyExists("Facility is already reserved for that time")
		}
		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}
		if facility.Status != model.FacilityReserved {
			if err := s.repo.UpdateStatus(txCtx, fid, model.FacilityReserved); err != nil {
				return err
			}
			facility.Status = model.FacilityReserved
		}
		res.User = user
		return writeAudit(txCtx, s.audit, actorID(adminID), model.ActionCreateReservation, res.ID.String(), facility.Name,
			map[string]interface{}{
				"facility_id": fid.String(),
				"user_id":     uid.String(),
				"date":        formatDate(res.ReservationDate),
				"start_time":  res.StartTime,
				"end_time":    res.EndTime,
			})
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableReservations, websocket.OpInsert, res.ID)
	publish(s.live, TableFacilities, websocket.OpUpdate, fid)
	return mapReservation(res), nil
}

func (s *facilityService) ListReservations(ctx context.Context, facilityID string) ([]ReservationResponse, error) {
	fid, err := parseID(facilityID, "facility")
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListReservations(ctx, fid)
	if err != nil {
		return nil, err
	}
	out := make([]ReservationResponse, 0, len(list))
	for i := range list {
		out = append(out, *mapReservation(&list[i]))
	}
	return out, nil
}

func (s *facilityService) CancelReservation(ctx context.Context, adminID, reservationID string) (*ReservationResponse, error) {
	return s.endReservation(ctx, adminID, reservationID, model.ReservationCancelled)
}

func (s *facilityService) CompleteReservation(ctx context.Context, adminID, reservationID string) (*ReservationResponse, error) {
	return s.endReservation(ctx, adminID, reservationID, model.ReservationCompleted)
}

// endReservation closes an active reservation and frees the facility when
// nothing else holds it.
func (s *facilityService) endReservation(ctx context.Context, adminID, reservationID, status string) (*ReservationResponse, error) {
	rid, err := parseID(reservationID, "reservation")
	if err != nil {
		return nil, err
	}
	var res *model.FacilityReservation
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if res, err = s.repo.FindReservation(txCtx, rid); err != nil {
			return lookupErr(err, "Reservation not found")
		}
		if res.Status != model.ReservationReserved {
			return invalidState(fmt.Sprintf("Reservation is already %s", strings.ToLower(res.Status)))
		}
		res.Status = status
		if err := s.repo.UpdateReservation(txCtx, res); err != nil {
			return err
		}
		remaining, err := s.repo.CountActiveReservations(txCtx, res.FacilityID)
		if err != nil {
			return err
		}
		facility, err := s.repo.FindByID(txCtx, res.FacilityID)
		if err != nil {
			return lookupErr(err, "Facility not found")
		}
		if remaining == 0 && facility.Status == model.FacilityReserved {
			if err := s.repo.UpdateStatus(txCtx, res.FacilityID, model.FacilityAvailable); err != nil {
				return err
			}
		}
		action := model.ActionCancelReservation
		if status == model.ReservationCompleted {
			action = model.ActionCompleteReservation
		}
		return writeAudit(txCtx, s.audit, actorID(adminID), action, rid.String(), facility.Name,
			map[string]interface{}{"facility_id": res.FacilityID.String()})
	})
	if err != nil {
		return nil, err
	}
	publish(s.live, TableReservations, websocket.OpUpdate, rid)
	publish(s.live, TableFacilities, websocket.OpUpdate, res.FacilityID)
	return mapReservation(res), nil
}
