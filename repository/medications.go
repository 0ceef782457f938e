package repository

import (
	"Ashray/apperr"
	"Ashray/models"
	"Ashray/util"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MedicationStore struct {
	c *mongo.Collection
}

func NewMedicationStore(db *mongo.Database) *MedicationStore {
	return &MedicationStore{c: db.Collection(util.MedicationCollection)}
}

func (s *MedicationStore) Insert(ctx context.Context, m *models.Medication) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, m)
	return err
}

func (s *MedicationStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Medication, error) {
	var m models.Medication
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByPatient returns a patient's medications, newest first.
func (s *MedicationStore) ListByPatient(ctx context.Context, patient primitive.ObjectID, activeOnly bool) ([]models.Medication, error) {
	q := bson.M{"patient": patient}
	if activeOnly {
		q["isActive"] = true
	}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// ListActive returns every active medication; used by the reminder job.
func (s *MedicationStore) ListActive(ctx context.Context) ([]models.Medication, error) {
	return s.find(ctx, bson.M{"isActive": true}, options.Find())
}

func (s *MedicationStore) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Medication, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Medication{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces the stored document with m.
func (s *MedicationStore) Save(ctx context.Context, m *models.Medication) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(util.MEDICATION_NOT_FOUND)
	}
	return nil
}

func (s *MedicationStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(util.MEDICATION_NOT_FOUND)
	}
	return nil
}
