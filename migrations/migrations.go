package migrations

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type migration struct {
	name string
	run  func(ctx context.Context, db *mongo.Database, log *zap.Logger) error
}

// all is the ordered list applied at startup. Every step is idempotent.
var all = []migration{
	{"001_ensure_indexes", EnsureIndexes},
	{"002_backfill_uploaded_to_s3", BackfillUploadedToS3},
	{"003_backfill_medication_defaults", BackfillMedicationDefaults},
	{"004_backfill_inventory_defaults", BackfillInventoryDefaults},
}

// Run applies every migration in order and stops at the first failure.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	for _, m := range all {
		if err := m.run(ctx, db, log.With(zap.String("migration", m.name))); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}
