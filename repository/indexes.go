package repository

import (
	"Ashray/util"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
 * EnsureIndexes is called at startup. Each collection is handled independently
 * and every failure is reported so startup can fail fast.
 */
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range indexSets() {
		if _, err := db.Collection(set.collection).Indexes().CreateMany(ctx, set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func indexSets() []indexSet {
	return []indexSet{
		{util.UserCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
			{Keys: bson.D{{Key: "cognitoUserId", Value: 1}}, Options: options.Index().SetName("uniq_cognito_user").SetUnique(true)},
		}},
		{util.PrescriptionCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "prescriptionNumber", Value: 1}}, Options: options.Index().SetName("uniq_prescription_number").SetUnique(true)},
			{Keys: bson.D{{Key: "patient", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_patient_created")},
			{Keys: bson.D{{Key: "pharmacy", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("idx_pharmacy_status")},
		}},
		{util.MedicationCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "patient", Value: 1}, {Key: "isActive", Value: 1}}, Options: options.Index().SetName("idx_patient_active")},
		}},
		{util.InventoryCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "pharmacy", Value: 1}, {Key: "medicationName", Value: 1}}, Options: options.Index().SetName("idx_pharmacy_name")},
		}},
	}
}
