package migrations

import (
	"Ashray/repository"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	log.Info("Migration applied: indexes ensured")
	return nil
}
