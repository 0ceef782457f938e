package migrations

import (
	"Ashray/util"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func BackfillInventoryDefaults(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	coll := db.Collection(util.InventoryCollection)
	history, err := coll.UpdateMany(ctx,
		bson.M{"restockHistory": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"restockHistory": bson.A{}}},
	)
	if err != nil {
		return err
	}
	category, err := coll.UpdateMany(ctx,
		bson.M{"category": bson.M{"$in": bson.A{nil, ""}}},
		bson.M{"$set": bson.M{"category": "other"}},
	)
	if err != nil {
		return err
	}
	log.Info("Migration applied",
		zap.Int64("restockHistory", history.ModifiedCount),
		zap.Int64("category", category.ModifiedCount))
	return nil
}
