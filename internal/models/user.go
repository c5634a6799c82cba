package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser       = "user"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

// Address is a single embedded address entry on a user.
type Address struct {
	ID          string `bson:"id" json:"id"`
	Alias       string `bson:"alias" json:"alias"`
	Details     string `bson:"details" json:"details"`
	City        string `bson:"city" json:"city"`
	Governorate string `bson:"governorate" json:"governorate"`
	ZipCode     string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
}

// User is the account document. PasswordChangedAt invalidates tokens issued
// before the last password change.
type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name              string               `bson:"name" json:"name"`
	Slug              string               `bson:"slug" json:"slug"`
	Email             string               `bson:"email" json:"email"`
	Phone             string               `bson:"phone" json:"phone"`
	PasswordHash      string               `bson:"passwordHash" json:"-"`
	Role              string               `bson:"role" json:"role"`
	Active            bool                 `bson:"active" json:"active"`
	Wishlist          []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
	Addresses         []Address            `bson:"addresses" json:"addresses"`
	PasswordChangedAt *time.Time           `bson:"passwordChangedAt,omitempty" json:"-"`
	ResetCodeHash     string               `bson:"resetCodeHash,omitempty" json:"-"`
	ResetCodeExpires  *time.Time           `bson:"resetCodeExpires,omitempty" json:"-"`
	ResetCodeVerified bool                 `bson:"resetCodeVerified,omitempty" json:"-"`
	CreatedAt         time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// ChangedPasswordAfter reports whether the password changed after the given
// token issue time (unix seconds).
func (u *User) ChangedPasswordAfter(issuedAtUnix int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAtUnix < u.PasswordChangedAt.Unix()
}
