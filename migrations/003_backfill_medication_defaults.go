package migrations

import (
	"Ashray/util"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func BackfillMedicationDefaults(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	coll := db.Collection(util.MedicationCollection)
	history, err := coll.UpdateMany(ctx,
		bson.M{"adherenceHistory": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"adherenceHistory": bson.A{}}},
	)
	if err != nil {
		return err
	}
	refill, err := coll.UpdateMany(ctx,
		bson.M{"refillReminder": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"refillReminder": bson.M{"enabled": false, "daysBeforeRefill": 7}}},
	)
	if err != nil {
		return err
	}
	log.Info("Migration applied",
		zap.Int64("adherenceHistory", history.ModifiedCount),
		zap.Int64("refillReminder", refill.ModifiedCount))
	return nil
}
