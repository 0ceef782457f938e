package models

import (
	"Ashray/role"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
}

type User struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CognitoUserID string             `json:"cognitoUserId" bson:"cognitoUserId" validate:"required"`
	Name          string             `json:"name" bson:"name" validate:"required"`
	Email         string             `json:"email" bson:"email" validate:"required,looseemail"`
	Role          string             `json:"role" bson:"role" validate:"oneof=patient pharmacy caregiver admin"`
	Phone         string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Address       *Address           `json:"address,omitempty" bson:"address,omitempty"`
	ProfileImage  string             `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	IsActive      bool               `json:"isActive" bson:"isActive"`
	EmailVerified bool               `json:"emailVerified" bson:"emailVerified"`
	LastLogin     *time.Time         `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NewUser applies the record defaults: trimmed name, lowercase email, patient role, active.
func NewUser(cognitoUserID, name, email, r string) *User {
	if r == "" {
		r = role.Patient
	}
	now := time.Now()
	return &User{
		CognitoUserID: cognitoUserID,
		Name:          strings.TrimSpace(name),
		Email:         NormalizeEmail(email),
		Role:          r,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	return validate.Struct(u)
}

// ProfileUpdate is the subset of fields a user may change about themselves.
type ProfileUpdate struct {
	Name    *string  `json:"name" validate:"omitempty,min=1"`
	Phone   *string  `json:"phone"`
	Address *Address `json:"address"`
}
