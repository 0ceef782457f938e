package services

import (
	"Ashray/metrics"
	"Ashray/models"
	"Ashray/notify"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationService struct {
	medications MedicationRepository
	users       UserRepository
	mailer      notify.Sender
	log         *zap.Logger
}

func NewNotificationService(medications MedicationRepository, users UserRepository, mailer notify.Sender, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{medications: medications, users: users, mailer: mailer, log: log}
}

/*
 * Format the current time as HH:MM
 * Scan every active medication for an untaken slot at exactly that time
 * Email the patient; one failed send does not stop the rest
 */
func (s *NotificationService) SendReminders(ctx context.Context, now time.Time) (int, error) {
	hhmm := now.Format("15:04")
	meds, err := s.medications.ListActive(ctx)
	if err != nil {
		s.log.Error("reminder scan failed", zap.Error(err))
		return 0, err
	}

	patients := map[primitive.ObjectID]*models.User{}
	sent := 0
	for i := range meds {
		m := &meds[i]
		if !m.DueAt(hhmm) {
			continue
		}
		patient, ok := patients[m.Patient]
		if !ok {
			patient, err = s.users.FindByID(ctx, m.Patient)
			if err != nil {
				s.log.Warn("reminder patient lookup failed", zap.String("patient", m.Patient.Hex()), zap.Error(err))
			}
			patients[m.Patient] = patient
		}
		if patient == nil || patient.Email == "" {
			continue
		}

		email := notify.BuildReminderEmail(patient.Email, notify.ReminderData{
			Name:          patient.Name,
			Medication:    m.Name,
			Dosage:        m.Dosage,
			ScheduledTime: hhmm,
			Instructions:  m.Instructions,
		})
		if err := s.mailer.Send(ctx, email); err != nil {
			if errors.Is(err, notify.ErrDisabled) {
				metrics.RemindersSent.WithLabelValues("disabled").Inc()
				continue
			}
			metrics.RemindersSent.WithLabelValues("failed").Inc()
			s.log.Error("failed to send reminder", zap.String("to", patient.Email), zap.String("medication", m.Name), zap.Error(err))
			continue
		}
		metrics.RemindersSent.WithLabelValues("sent").Inc()
		sent++
		s.log.Info("reminder sent", zap.String("to", patient.Email), zap.String("medication", m.Name))
	}
	return sent, nil
}
