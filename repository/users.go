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

type UserStore struct {
	c *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{c: db.Collection(util.UserCollection)}
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.KindConflict, util.USER_ALREADY_EXISTS, err)
		}
		return err
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter interface{}) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// FindByCognitoIDOrEmail matches the token subject first, then the lowercased email.
func (s *UserStore) FindByCognitoIDOrEmail(ctx context.Context, sub, email string) (*models.User, error) {
	if sub != "" {
		u, err := s.findOne(ctx, bson.M{"cognitoUserId": sub})
		if u != nil || err != nil {
			return u, err
		}
	}
	if email == "" {
		return nil, nil
	}
	return s.FindByEmail(ctx, email)
}

func (s *UserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		set["address"] = upd.Address
	}
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.UserNotFound(util.USER_NOT_FOUND)
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) SetEmailVerified(ctx context.Context, email string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"email": models.NormalizeEmail(email)},
		bson.M{"$set": bson.M{"emailVerified": true, "updatedAt": time.Now()}})
	return err
}

func (s *UserStore) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
	return err
}
