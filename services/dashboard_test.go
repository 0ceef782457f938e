package services

import (
	"Ashray/apperr"
	"Ashray/models"
	"Ashray/role"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientDashboard(t *testing.T) {
	meds := newFakeMedications()
	rxs := newFakePrescriptions()
	patient := principal(role.Patient)
	svc := NewPatientService(newFakeUsers(patient.User), meds, rxs, nil)

	meds.put(models.Medication{
		Patient: patient.UserID(), Name: "Metformin", Dosage: "500mg", IsActive: true,
		Schedule:         []models.ScheduleSlot{{Time: "20:00"}, {Time: "08:00", Taken: true}},
		AdherenceHistory: []models.AdherenceEntry{{Taken: true}, {Taken: false}},
	})
	meds.put(models.Medication{
		Patient: patient.UserID(), Name: "Aspirin", Dosage: "75mg", IsActive: true,
		Schedule:         []models.ScheduleSlot{{Time: "13:00"}},
		AdherenceHistory: []models.AdherenceEntry{{Taken: true}},
	})
	meds.put(models.Medication{Patient: patient.UserID(), Name: "Old", Dosage: "1mg", IsActive: false})
	for i := 0; i < 7; i++ {
		rx := models.NewPrescription(patient.UserID(), "", models.PrescribedBy{Name: "Dr"}, time.Now())
		rx.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		rxs.put(*rx)
	}

	d, err := svc.Dashboard(context.Background(), patient)
	require.NoError(t, err)
	assert.Len(t, d.Medications, 2)
	assert.Len(t, d.Prescriptions, 5)
	assert.Equal(t, 75.0, d.AdherenceRate)
	require.Len(t, d.TodaySchedule, 3)
	assert.Equal(t, []string{"08:00", "13:00", "20:00"}, []string{d.TodaySchedule[0].Time, d.TodaySchedule[1].Time, d.TodaySchedule[2].Time})
	assert.True(t, d.TodaySchedule[0].Taken)
	assert.Equal(t, "Aspirin", d.TodaySchedule[1].Medication)

	_, err = svc.Dashboard(context.Background(), principal(role.Pharmacy))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestAverageAdherence_NoMedications(t *testing.T) {
	assert.Equal(t, 0.0, AverageAdherence(nil))
}

func TestPatientProfile(t *testing.T) {
	patient := principal(role.Patient)
	patient.User.Name = "Asha"
	svc := NewPatientService(newFakeUsers(patient.User), newFakeMedications(), newFakePrescriptions(), nil)

	u, err := svc.Profile(context.Background(), patient)
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)

	u, err = svc.UpdateProfile(context.Background(), patient, models.ProfileUpdate{Name: strPtr("<i>Asha K</i>"), Phone: strPtr("9876543210")})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", u.Name)
	assert.Equal(t, "9876543210", u.Phone)

	_, err = svc.UpdateProfile(context.Background(), patient, models.ProfileUpdate{Name: strPtr("  ")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Profile(context.Background(), principal(role.Patient))
	assert.True(t, apperr.Is(err, apperr.KindUserNotFound))
}

func TestPharmacyDashboardAndProcess(t *testing.T) {
	rxs := newFakePrescriptions()
	items := newFakeInventory()
	pharmacy := principal(role.Pharmacy)
	ph := pharmacy.UserID()
	rxSvc := NewPrescriptionService(PrescriptionDeps{Prescriptions: rxs})
	svc := NewPharmacyService(rxs, items, rxSvc, nil)

	patient := principal(role.Patient).UserID()
	for _, st := range []string{models.StatusPending, models.StatusReady, models.StatusReady} {
		rx := models.NewPrescription(patient, "", models.PrescribedBy{Name: "Dr"}, time.Now())
		rx.Status = st
		rx.Pharmacy = &ph
		rxs.put(*rx)
	}
	queued := rxs.put(*models.NewPrescription(patient, "", models.PrescribedBy{Name: "Dr"}, time.Now()))

	invSvc := NewInventoryService(items, nil)
	_, err := invSvc.Create(context.Background(), pharmacy, itemInput("Insulin", 2, 10))
	require.NoError(t, err)
	_, err = invSvc.Create(context.Background(), pharmacy, itemInput("Amlodipine", 40, 10))
	require.NoError(t, err)

	d, err := svc.Dashboard(context.Background(), pharmacy)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Stats.TotalPrescriptions)
	assert.Equal(t, int64(1), d.Stats.Pending)
	assert.Equal(t, int64(2), d.Stats.Ready)
	assert.Equal(t, int64(2), d.Stats.TotalInventory)
	assert.Equal(t, 1, d.Stats.LowStockItems)
	assert.Len(t, d.RecentPrescriptions, 3)

	pending, err := svc.Pending(context.Background(), pharmacy)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	processed, err := svc.Process(context.Background(), pharmacy, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, processed.Status)
	assert.True(t, processed.IsAssignedTo(ph))

	_, err = svc.Dashboard(context.Background(), principal(role.Patient))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
