package services

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/models"
	"Ashray/repository"
	"Ashray/role"
	"Ashray/util"
	"context"
	"sort"

	"go.uber.org/zap"
)

const recentPatientPrescriptions = 5

type ScheduleEntry struct {
	Medication string `json:"medication"`
	Time       string `json:"time"`
	Taken      bool   `json:"taken"`
	Dosage     string `json:"dosage"`
}

type PatientDashboard struct {
	Medications   []models.Medication   `json:"medications"`
	Prescriptions []models.Prescription `json:"prescriptions"`
	AdherenceRate float64               `json:"adherenceRate"`
	TodaySchedule []ScheduleEntry       `json:"todaySchedule"`
}

type PatientService struct {
	users         UserRepository
	medications   MedicationRepository
	prescriptions PrescriptionRepository
	log           *zap.Logger
}

func NewPatientService(users UserRepository, medications MedicationRepository, prescriptions PrescriptionRepository, log *zap.Logger) *PatientService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PatientService{users: users, medications: medications, prescriptions: prescriptions, log: log}
}

/*
 * Active medications and the latest prescriptions
 * Adherence is the unweighted mean over active medications, 0 when there are none
 * Every schedule slot is flattened into one list ordered by time
 */
func (s *PatientService) Dashboard(ctx context.Context, p *identity.Principal) (*PatientDashboard, error) {
	if err := identity.Authorize(p, role.Patient, role.Caregiver); err != nil {
		return nil, err
	}
	id := p.UserID()
	meds, err := s.medications.ListByPatient(ctx, id, true)
	if err != nil {
		return nil, err
	}
	rxs, err := s.prescriptions.List(ctx, repository.PrescriptionFilter{Patient: &id, Limit: recentPatientPrescriptions})
	if err != nil {
		return nil, err
	}
	return &PatientDashboard{
		Medications:   meds,
		Prescriptions: rxs,
		AdherenceRate: AverageAdherence(meds),
		TodaySchedule: FlattenSchedule(meds),
	}, nil
}

func AverageAdherence(meds []models.Medication) float64 {
	if len(meds) == 0 {
		return 0
	}
	var total float64
	for i := range meds {
		total += meds[i].AdherenceRate()
	}
	return models.Round2(total / float64(len(meds)))
}

func FlattenSchedule(meds []models.Medication) []ScheduleEntry {
	out := []ScheduleEntry{}
	for _, m := range meds {
		for _, slot := range m.Schedule {
			out = append(out, ScheduleEntry{Medication: m.Name, Time: slot.Time, Taken: slot.Taken, Dosage: m.Dosage})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func (s *PatientService) Profile(ctx context.Context, p *identity.Principal) (*models.User, error) {
	if p == nil {
		return nil, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN)
	}
	u, err := s.users.FindByID(ctx, p.UserID())
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.UserNotFound(util.USER_NOT_FOUND)
	}
	return u, nil
}

// UpdateProfile writes name, phone and address only.
func (s *PatientService) UpdateProfile(ctx context.Context, p *identity.Principal, upd models.ProfileUpdate) (*models.User, error) {
	if p == nil {
		return nil, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN)
	}
	if upd.Name != nil {
		name := util.StripHTML(*upd.Name)
		if name == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		upd.Name = &name
	}
	return s.users.UpdateProfile(ctx, p.UserID(), upd)
}
