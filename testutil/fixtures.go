package testutil

import (
	"Ashray/models"
	"Ashray/role"
	"Ashray/util"
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, collection string, doc interface{}) {
	f.t.Helper()
	if _, err := f.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", collection, err)
	}
}

// CreateUser inserts an active user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, r string) models.User {
	f.t.Helper()
	u := models.NewUser("sub-"+primitive.NewObjectID().Hex(), name, email, r)
	u.ID = primitive.NewObjectID()
	f.insert(ctx, util.UserCollection, u)
	return *u
}

func (f *Fixtures) CreatePatient(ctx context.Context) models.User {
	return f.CreateUser(ctx, "Test Patient", primitive.NewObjectID().Hex()+"@patient.test", role.Patient)
}

func (f *Fixtures) CreatePharmacy(ctx context.Context) models.User {
	return f.CreateUser(ctx, "Test Pharmacy", primitive.NewObjectID().Hex()+"@pharmacy.test", role.Pharmacy)
}

// CreatePrescription inserts a pending prescription carrying the given line items.
func (f *Fixtures) CreatePrescription(ctx context.Context, patient primitive.ObjectID, meds ...models.PrescribedMedication) models.Prescription {
	f.t.Helper()
	p := models.NewPrescription(patient, "", models.PrescribedBy{Name: "Dr. Test"}, time.Now())
	p.ID = primitive.NewObjectID()
	p.Medications = append(p.Medications, meds...)
	f.insert(ctx, util.PrescriptionCollection, p)
	return *p
}

// CreateMedication inserts an active schedule with one slot per time.
func (f *Fixtures) CreateMedication(ctx context.Context, patient primitive.ObjectID, name string, times ...string) models.Medication {
	f.t.Helper()
	now := time.Now()
	m := &models.Medication{
		ID:        primitive.NewObjectID(),
		Patient:   patient,
		Name:      name,
		Dosage:    "500mg",
		Frequency: models.FrequencyOnceDaily,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, tm := range times {
		m.Schedule = append(m.Schedule, models.ScheduleSlot{Time: tm})
	}
	m.ApplyDefaults(now)
	f.insert(ctx, util.MedicationCollection, m)
	return *m
}

// CreateInventoryItem inserts a tablet item with the given stock levels.
func (f *Fixtures) CreateInventoryItem(ctx context.Context, pharmacy primitive.ObjectID, name string, quantity, reorderLevel int) models.InventoryItem {
	f.t.Helper()
	strength, form := "500mg", "tablet"
	item := models.NewInventoryItem(pharmacy, models.InventoryInput{
		MedicationName: &name,
		DosageForm:     &form,
		Strength:       &strength,
		Quantity:       &quantity,
		ReorderLevel:   &reorderLevel,
	}, time.Now())
	item.ID = primitive.NewObjectID()
	f.insert(ctx, util.InventoryCollection, item)
	return *item
}
