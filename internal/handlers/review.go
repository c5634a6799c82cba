package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

type reviewCreateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Review  string `json:"review" binding:"required"`
	Product string `json:"product"`
}

type reviewUpdateRequest struct {
	Rating *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Review *string `json:"review"`
}

/* =======================
   RATING AGGREGATOR
======================= */

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ratingUpdate builds the product update for an aggregate result. When no
// reviews remain the cached fields reset to zero instead of keeping the last
// computed average.
func ratingUpdate(found bool, count int, average float64) bson.M {
	if !found {
		return bson.M{"ratingsQuantity": 0, "ratingsAverage": 0.0}
	}
	return bson.M{"ratingsQuantity": count, "ratingsAverage": round2(average)}
}

// recalcProductRatings recomputes the review count and mean for a product
// and persists both onto the product document. It runs synchronously after
// every review create, rating change and delete.
func recalcProductRatings(ctx context.Context, db *mongo.Database, productID primitive.ObjectID) error {
	cursor, err := db.Collection("reviews").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$product",
			"ratingsQuantity": bson.M{"$sum": 1},
			"avgRating":       bson.M{"$avg": "$rating"},
		}}},
	})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var results []struct {
		RatingsQuantity int     `bson:"ratingsQuantity"`
		AvgRating       float64 `bson:"avgRating"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return err
	}

	update := ratingUpdate(false, 0, 0)
	if len(results) > 0 {
		update = ratingUpdate(true, results[0].RatingsQuantity, results[0].AvgRating)
	}

	_, err = db.Collection("products").UpdateByID(ctx, productID, bson.M{"$set": update})
	return err
}

/* =======================
   HANDLERS
======================= */

func GetReviews(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /reviews"

		query, err := parseListQuery(c, listOptions{})
		if err != nil {
			respondError(c, route, err)
			return
		}

		// Nested route scopes the list to one product.
		if rawID := strings.TrimSpace(c.Param("id")); rawID != "" {
			productID, err := primitive.ObjectIDFromHex(rawID)
			if err != nil {
				respondError(c, route, NewValidationError("invalid id"))
				return
			}
			query.Filter["product"] = productID
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("reviews").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("reviews").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		reviews := make([]models.Review, 0)
		if err := cursor.All(ctx, &reviews); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(reviews), paginationMeta(total, query.Page, query.Limit), gin.H{"reviews": reviews})
	}
}

func GetReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /reviews/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var review models.Review
		err := db.Collection("reviews").FindOne(ctx, bson.M{"_id": id}).Decode(&review)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("review not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"review": review})
	}
}

func CreateReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /reviews"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		var req reviewCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		// Nested route injects the product id; a flat POST carries it in the
		// body.
		rawProduct := strings.TrimSpace(c.Param("id"))
		if rawProduct == "" {
			rawProduct = strings.TrimSpace(req.Product)
		}
		productID, err := primitive.ObjectIDFromHex(rawProduct)
		if err != nil {
			respondError(c, route, NewValidationError("invalid product"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Err()
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		count, err := db.Collection("reviews").CountDocuments(ctx, bson.M{
			"user":    user.ID,
			"product": productID,
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if count > 0 {
			respondError(c, route, NewValidationError("you already reviewed this product"))
			return
		}

		now := time.Now()
		review := models.Review{
			Rating:    req.Rating,
			Review:    req.Review,
			User:      user.ID,
			Product:   productID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		res, err := db.Collection("reviews").InsertOne(ctx, review)
		if err != nil {
			respondWriteError(c, route, err)
			return
		}
		review.ID = insertedObjectID(res)

		if err := recalcProductRatings(ctx, db, productID); err != nil {
			log.Println("[REVIEW] [ERROR] rating recompute failed:", err)
		}

		respondData(c, http.StatusCreated, gin.H{"review": review})
	}
}

func UpdateReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /reviews/:id"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req reviewUpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Review
		err := db.Collection("reviews").FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("review not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if existing.User != user.ID {
			respondError(c, route, NewForbiddenError("you can only update your own reviews"))
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		ratingChanged := false
		if req.Rating != nil && *req.Rating != existing.Rating {
			updateSet["rating"] = *req.Rating
			ratingChanged = true
		}
		if req.Review != nil {
			updateSet["review"] = *req.Review
		}

		var review models.Review
		err = db.Collection("reviews").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": updateSet},
			findOneAndUpdateReturnAfter(),
		).Decode(&review)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if ratingChanged {
			if err := recalcProductRatings(ctx, db, review.Product); err != nil {
				log.Println("[REVIEW] [ERROR] rating recompute failed:", err)
			}
		}

		respondData(c, http.StatusOK, gin.H{"review": review})
	}
}

func DeleteReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /reviews/:id"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Review
		err := db.Collection("reviews").FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("review not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if existing.User != user.ID && user.Role != models.RoleAdmin {
			respondError(c, route, NewForbiddenError("you can only delete your own reviews"))
			return
		}

		if _, err := db.Collection("reviews").DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if err := recalcProductRatings(ctx, db, existing.Product); err != nil {
			log.Println("[REVIEW] [ERROR] rating recompute failed:", err)
		}

		respondDeleted(c)
	}
}
