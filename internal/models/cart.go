package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is a (product, quantity) line inside a cart.
type CartItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// Cart is a user's open cart. TotalAfterDiscount is present only while an
// applied coupon is still valid for the current line items; every mutation
// of the lines clears it.
type Cart struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID `bson:"user" json:"user"`
	Items              []CartItem         `bson:"items" json:"items"`
	Total              float64            `bson:"total" json:"total"`
	TotalAfterDiscount *float64           `bson:"totalAfterDiscount,omitempty" json:"totalAfterDiscount,omitempty"`
	Ordered            bool               `bson:"ordered" json:"ordered"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}
