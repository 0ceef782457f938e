package migrations

import (
	"Ashray/util"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BackfillUploadedToS3 sets the storage flag on images saved before it existed.
// An image with an object key lives in S3; anything else is a local file.
func BackfillUploadedToS3(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	coll := db.Collection(util.PrescriptionCollection)
	missing := bson.M{"$exists": false}

	inS3, err := coll.UpdateMany(ctx,
		bson.M{"prescriptionImage.uploadedToS3": missing, "prescriptionImage.key": bson.M{"$nin": bson.A{nil, ""}}},
		bson.M{"$set": bson.M{"prescriptionImage.uploadedToS3": true}},
	)
	if err != nil {
		return err
	}
	local, err := coll.UpdateMany(ctx,
		bson.M{"prescriptionImage": bson.M{"$type": "object"}, "prescriptionImage.uploadedToS3": missing},
		bson.M{"$set": bson.M{"prescriptionImage.uploadedToS3": false}},
	)
	if err != nil {
		return err
	}
	log.Info("Migration applied",
		zap.Int64("s3", inS3.ModifiedCount),
		zap.Int64("local", local.ModifiedCount))
	return nil
}
