package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the catalog document. RatingsAverage and RatingsQuantity are
// derived from the reviews collection and are only ever written by the
// review aggregator.
type Product struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title              string               `bson:"title" json:"title"`
	Slug               string               `bson:"slug" json:"slug"`
	Description        string               `bson:"description" json:"description"`
	Quantity           int                  `bson:"quantity" json:"quantity"`
	Sold               int                  `bson:"sold" json:"sold"`
	Price              float64              `bson:"price" json:"price"`
	PriceAfterDiscount float64              `bson:"priceAfterDiscount,omitempty" json:"priceAfterDiscount,omitempty"`
	ImageCover         string               `bson:"imageCover,omitempty" json:"imageCover,omitempty"`
	Images             []string             `bson:"images,omitempty" json:"images,omitempty"`
	Category           primitive.ObjectID   `bson:"category" json:"category"`
	SubCategories      []primitive.ObjectID `bson:"subCategories,omitempty" json:"subCategories,omitempty"`
	RatingsAverage     float64              `bson:"ratingsAverage" json:"ratingsAverage"`
	RatingsQuantity    int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}
