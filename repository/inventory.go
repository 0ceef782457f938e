package repository

import (
	"Ashray/apperr"
	"Ashray/models"
	"Ashray/util"
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InventoryFilter struct {
	Pharmacy primitive.ObjectID
	Category string
	Search   string
}

type InventoryStore struct {
	c *mongo.Collection
}

func NewInventoryStore(db *mongo.Database) *InventoryStore {
	return &InventoryStore{c: db.Collection(util.InventoryCollection)}
}

func (s *InventoryStore) Insert(ctx context.Context, item *models.InventoryItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, item)
	return err
}

func (s *InventoryStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List returns a pharmacy's items sorted by medication name. Search is matched
// literally and case-insensitively against medicationName and genericName.
func (s *InventoryStore) List(ctx context.Context, f InventoryFilter) ([]models.InventoryItem, error) {
	q := bson.M{"pharmacy": f.Pharmacy}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"medicationName": rx},
			bson.M{"genericName": rx},
		}
	}
	return s.find(ctx, q)
}

// LowStock returns a pharmacy's items whose quantity is at or below reorderLevel.
func (s *InventoryStore) LowStock(ctx context.Context, pharmacy primitive.ObjectID) ([]models.InventoryItem, error) {
	return s.find(ctx, bson.M{
		"pharmacy": pharmacy,
		"$expr":    bson.M{"$lte": bson.A{"$quantity", "$reorderLevel"}},
	})
}

func (s *InventoryStore) find(ctx context.Context, q bson.M) ([]models.InventoryItem, error) {
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "medicationName", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.InventoryItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *InventoryStore) Count(ctx context.Context, pharmacy primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"pharmacy": pharmacy})
}

func (s *InventoryStore) Save(ctx context.Context, item *models.InventoryItem) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(util.INVENTORY_ITEM_NOT_FOUND)
	}
	return nil
}

// Restock increments quantity and records the event in one update.
func (s *InventoryStore) Restock(ctx context.Context, id primitive.ObjectID, entry models.RestockEntry) (*models.InventoryItem, error) {
	update := bson.M{
		"$inc":  bson.M{"quantity": entry.Quantity},
		"$push": bson.M{"restockHistory": entry},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	var item models.InventoryItem
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&item)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound(util.INVENTORY_ITEM_NOT_FOUND)
		}
		return nil, err
	}
	return &item, nil
}

func (s *InventoryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(util.INVENTORY_ITEM_NOT_FOUND)
	}
	return nil
}
