package services

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/models"
	"Ashray/role"
	"Ashray/util"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MedicationInput is the writable part of a medication schedule. Nil fields are
// left unchanged on update.
type MedicationInput struct {
	Name           *string                `json:"name"`
	Dosage         *string                `json:"dosage"`
	Frequency      *string                `json:"frequency"`
	Schedule       []models.ScheduleSlot  `json:"schedule"`
	StartDate      *time.Time             `json:"startDate"`
	EndDate        *time.Time             `json:"endDate"`
	Instructions   *string                `json:"instructions"`
	PrescribedBy   *string                `json:"prescribedBy"`
	RefillReminder *models.RefillReminder `json:"refillReminder"`
	IsActive       *bool                  `json:"isActive"`
}

func (in MedicationInput) applyTo(m *models.Medication) {
	if in.Name != nil {
		m.Name = util.StripHTML(*in.Name)
	}
	if in.Dosage != nil {
		m.Dosage = *in.Dosage
	}
	if in.Frequency != nil {
		m.Frequency = *in.Frequency
	}
	if in.Schedule != nil {
		m.Schedule = in.Schedule
	}
	if in.StartDate != nil {
		m.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		m.EndDate = in.EndDate
	}
	if in.Instructions != nil {
		m.Instructions = util.StripHTML(*in.Instructions)
	}
	if in.PrescribedBy != nil {
		m.PrescribedBy = *in.PrescribedBy
	}
	if in.RefillReminder != nil {
		m.RefillReminder = *in.RefillReminder
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
}

type IntakeInput struct {
	ScheduleTime string `json:"scheduleTime" binding:"required"`
	Taken        bool   `json:"taken"`
	Notes        string `json:"notes"`
}

type AdherenceReport struct {
	Medication    string                  `json:"medication"`
	AdherenceRate string                  `json:"adherenceRate"`
	History       []models.AdherenceEntry `json:"history"`
	TotalDoses    int                     `json:"totalDoses"`
	TakenDoses    int                     `json:"takenDoses"`
	MissedDoses   int                     `json:"missedDoses"`
}

type MedicationService struct {
	medications MedicationRepository
	log         *zap.Logger
	now         func() time.Time
}

func NewMedicationService(medications MedicationRepository, log *zap.Logger) *MedicationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MedicationService{medications: medications, log: log, now: time.Now}
}

func (s *MedicationService) List(ctx context.Context, p *identity.Principal) ([]models.Medication, error) {
	if err := identity.Authorize(p, role.Patient, role.Caregiver); err != nil {
		return nil, err
	}
	return s.medications.ListByPatient(ctx, p.UserID(), false)
}

/*
 * Patients and caregivers create schedules for themselves
 * Apply defaults and validate before insert
 */
func (s *MedicationService) Create(ctx context.Context, p *identity.Principal, in MedicationInput) (*models.Medication, error) {
	if err := identity.Authorize(p, role.Patient, role.Caregiver); err != nil {
		return nil, err
	}
	now := s.now()
	m := &models.Medication{Patient: p.UserID(), Frequency: models.FrequencyOnceDaily, IsActive: true}
	in.applyTo(m)
	m.ApplyDefaults(now)
	if err := m.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if err := s.medications.Insert(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("medication created", zap.String("id", m.ID.Hex()), zap.String("patient", m.Patient.Hex()))
	return m, nil
}

func (s *MedicationService) find(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	m, err := s.medications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound(util.MEDICATION_NOT_FOUND)
	}
	return m, nil
}

// Get allows the owner, caregivers and pharmacies.
func (s *MedicationService) Get(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*models.Medication, error) {
	if p == nil {
		return nil, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN)
	}
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Patient != p.UserID() && !p.Is(role.Caregiver, role.Pharmacy) {
		return nil, apperr.Forbidden(util.NOT_AUTHORIZED_MEDICATION)
	}
	return m, nil
}

// findOwned loads a medication the caller owns. Only patients and caregivers write.
func (s *MedicationService) findOwned(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*models.Medication, error) {
	if err := identity.Authorize(p, role.Patient, role.Caregiver); err != nil {
		return nil, err
	}
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Patient != p.UserID() {
		return nil, apperr.Forbidden(util.NOT_AUTHORIZED_MEDICATION)
	}
	return m, nil
}

func (s *MedicationService) Update(ctx context.Context, p *identity.Principal, id primitive.ObjectID, in MedicationInput) (*models.Medication, error) {
	m, err := s.findOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(m)
	m.UpdatedAt = s.now()
	if err := m.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if err := s.medications.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MedicationService) Delete(ctx context.Context, p *identity.Principal, id primitive.ObjectID) error {
	if _, err := s.findOwned(ctx, p, id); err != nil {
		return err
	}
	return s.medications.Delete(ctx, id)
}

/*
 * Owner only
 * Mark the slot matching scheduleTime exactly; an unknown time still lands in history
 * Save the whole document
 */
func (s *MedicationService) LogIntake(ctx context.Context, p *identity.Principal, id primitive.ObjectID, in IntakeInput) (*models.Medication, error) {
	m, err := s.findOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	m.LogIntake(in.ScheduleTime, in.Taken, util.StripHTML(in.Notes), s.now())
	if err := s.medications.Save(ctx, m); err != nil {
		return nil, err
	}
	s.log.Debug("intake logged", zap.String("id", id.Hex()), zap.String("time", in.ScheduleTime), zap.Bool("taken", in.Taken))
	return m, nil
}

func (s *MedicationService) Adherence(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*AdherenceReport, error) {
	m, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	taken := m.TakenDoses()
	total := len(m.AdherenceHistory)
	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", m.AdherenceRate())
	}
	return &AdherenceReport{
		Medication:    m.Name,
		AdherenceRate: rate,
		History:       m.AdherenceHistory,
		TotalDoses:    total,
		TakenDoses:    taken,
		MissedDoses:   total - taken,
	}, nil
}
