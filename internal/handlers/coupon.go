package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type couponCreateRequest struct {
	Code     string    `json:"code" binding:"required,min=3,max=32"`
	Discount float64   `json:"discount" binding:"required,gte=1,lte=100"`
	Expiry   time.Time `json:"expiry" binding:"required"`
}

type couponUpdateRequest struct {
	Code     *string    `json:"code" binding:"omitempty,min=3,max=32"`
	Discount *float64   `json:"discount" binding:"omitempty,gte=1,lte=100"`
	Expiry   *time.Time `json:"expiry"`
}

func GetCoupons(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /coupons"

		query, err := parseListQuery(c, listOptions{SearchFields: []string{"code"}})
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("coupons").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("coupons").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		coupons := make([]models.Coupon, 0)
		if err := cursor.All(ctx, &coupons); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(coupons), paginationMeta(total, query.Page, query.Limit), gin.H{"coupons": coupons})
	}
}

func CreateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /coupons"
		defer handlePanic(c, route)

		var req couponCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		if !req.Expiry.After(time.Now()) {
			respondError(c, route, NewValidationError("expiry must be in the future"))
			return
		}

		now := time.Now()
		coupon := models.Coupon{
			Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
			Discount:  req.Discount,
			Expiry:    req.Expiry,
			CreatedAt: now,
			UpdatedAt: now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("coupons").InsertOne(ctx, coupon)
		if err != nil {
			respondWriteError(c, route, err)
			return
		}
		coupon.ID = insertedObjectID(res)

		log.Println("[COUPON] [INFO] coupon created:", coupon.Code)
		respondData(c, http.StatusCreated, gin.H{"coupon": coupon})
	}
}

func GetCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /coupons/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var coupon models.Coupon
		err := db.Collection("coupons").FindOne(ctx, bson.M{"_id": id}).Decode(&coupon)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("coupon not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"coupon": coupon})
	}
}

func UpdateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /coupons/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req couponUpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		if req.Code != nil {
			updateSet["code"] = strings.ToUpper(strings.TrimSpace(*req.Code))
		}
		if req.Discount != nil {
			updateSet["discount"] = *req.Discount
		}
		if req.Expiry != nil {
			if !req.Expiry.After(time.Now()) {
				respondError(c, route, NewValidationError("expiry must be in the future"))
				return
			}
			updateSet["expiry"] = *req.Expiry
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var coupon models.Coupon
		err := db.Collection("coupons").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": updateSet},
			findOneAndUpdateReturnAfter(),
		).Decode(&coupon)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("coupon not found"))
			return
		}
		if err != nil {
			respondWriteError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, gin.H{"coupon": coupon})
	}
}

func DeleteCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /coupons/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("coupons").DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.DeletedCount == 0 {
			respondError(c, route, NewNotFoundError("coupon not found"))
			return
		}

		respondDeleted(c)
	}
}
