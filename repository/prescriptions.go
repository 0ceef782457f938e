package repository

import (
	"Ashray/apperr"
	"Ashray/models"
	"Ashray/util"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PrescriptionFilter narrows List. Zero values match everything.
type PrescriptionFilter struct {
	Patient  *primitive.ObjectID
	Pharmacy *primitive.ObjectID
	Status   string
	Limit    int64
}

func (f PrescriptionFilter) query() bson.M {
	q := bson.M{}
	if f.Patient != nil {
		q["patient"] = *f.Patient
	}
	if f.Pharmacy != nil {
		q["pharmacy"] = *f.Pharmacy
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

type PrescriptionStore struct {
	c *mongo.Collection
}

func NewPrescriptionStore(db *mongo.Database) *PrescriptionStore {
	return &PrescriptionStore{c: db.Collection(util.PrescriptionCollection)}
}

// Insert writes a new prescription. A taken prescriptionNumber is reported as a conflict.
func (s *PrescriptionStore) Insert(ctx context.Context, p *models.Prescription) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.KindConflict, util.PRESCRIPTION_NUMBER_EXISTS, err)
		}
		return err
	}
	return nil
}

func (s *PrescriptionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	var p models.Prescription
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// List returns matching prescriptions, newest first.
func (s *PrescriptionStore) List(ctx context.Context, f PrescriptionFilter) ([]models.Prescription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, err
	}
	out := []models.Prescription{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendMedications pushes meds onto the existing list and records the parse result.
// Existing line items are left untouched.
func (s *PrescriptionStore) AppendMedications(ctx context.Context, id primitive.ObjectID, meds []models.PrescribedMedication, result models.ParsingResult) (*models.Prescription, error) {
	update := bson.M{
		"$set": bson.M{"parsingResult": result, "updatedAt": time.Now()},
	}
	if len(meds) > 0 {
		update["$push"] = bson.M{"medications": bson.M{"$each": meds}}
	}
	return s.findOneAndUpdate(ctx, id, update)
}

// UpdateStatus sets status and assigns the pharmacy handling it.
func (s *PrescriptionStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, pharmacy primitive.ObjectID) (*models.Prescription, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{
		"$set": bson.M{"status": status, "pharmacy": pharmacy, "updatedAt": time.Now()},
	})
}

func (s *PrescriptionStore) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Prescription, error) {
	var p models.Prescription
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
		}
		return nil, err
	}
	return &p, nil
}

func (s *PrescriptionStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(util.PRESCRIPTION_NOT_FOUND)
	}
	return nil
}

// CountByStatus groups the prescriptions assigned to pharmacy (all when nil) by status.
func (s *PrescriptionStore) CountByStatus(ctx context.Context, pharmacy *primitive.ObjectID) (map[string]int64, error) {
	match := bson.M{}
	if pharmacy != nil {
		match["pharmacy"] = *pharmacy
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(models.PrescriptionStatuses))
	for _, st := range models.PrescriptionStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
