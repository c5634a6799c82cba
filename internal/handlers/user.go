package handlers

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

type userCreateRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=user technician admin"`
}

type userUpdateRequest struct {
	Name  string `json:"name" binding:"omitempty,min=3,max=32"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
	Role  string `json:"role" binding:"omitempty,oneof=user technician admin"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type addressCreateRequest struct {
	Alias       string `json:"alias" binding:"required"`
	Details     string `json:"details" binding:"required"`
	City        string `json:"city" binding:"required"`
	Governorate string `json:"governorate" binding:"required"`
	ZipCode     string `json:"zipCode"`
}

/* =======================
   ADMIN USER CRUD
======================= */

func GetUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users"

		query, err := parseListQuery(c, listOptions{SearchFields: []string{"name", "email"}})
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("users").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("users").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(users), paginationMeta(total, query.Page, query.Limit), gin.H{"users": users})
	}
}

func CreateUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users"
		defer handlePanic(c, route)

		var req userCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		role := req.Role
		if role == "" {
			role = models.RoleUser
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		now := time.Now()
		user := models.User{
			Name:         strings.TrimSpace(req.Name),
			Slug:         Slugify(req.Name),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:        strings.TrimSpace(req.Phone),
			PasswordHash: string(hash),
			Role:         role,
			Active:       true,
			Addresses:    []models.Address{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			respondWriteError(c, route, err)
			return
		}
		user.ID = insertedObjectID(res)

		log.Println("[USER] [INFO] user created:", user.Email)
		respondData(c, http.StatusCreated, gin.H{"user": user})
	}
}

func GetUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("user not found with id %s", id.Hex()))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"user": user})
	}
}

func UpdateUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /users/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req userUpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		set := bson.M{"updatedAt": time.Now()}
		if req.Name != "" {
			set["name"] = strings.TrimSpace(req.Name)
			set["slug"] = Slugify(req.Name)
		}
		if req.Email != "" {
			set["email"] = strings.ToLower(strings.TrimSpace(req.Email))
		}
		if req.Phone != "" {
			set["phone"] = strings.TrimSpace(req.Phone)
		}
		if req.Role != "" {
			set["role"] = req.Role
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": set},
			findOneAndUpdateReturnAfter(),
		).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("user not found with id %s", id.Hex()))
			return
		}
		if err != nil {
			respondWriteError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, gin.H{"user": user})
	}
}

// DeleteUser deactivates the account instead of removing the document, so
// order history stays intact.
func DeleteUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /users/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").UpdateByID(ctx, id, bson.M{
			"$set": bson.M{"active": false, "updatedAt": time.Now()},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, route, NewNotFoundError("user not found with id %s", id.Hex()))
			return
		}

		log.Println("[USER] [INFO] user deactivated:", id.Hex())
		respondDeleted(c)
	}
}

/* =======================
   CURRENT USER
======================= */

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/me"

		current, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": current.ID}).Decode(&user); err != nil {
			respondError(c, route, NewNotFoundError("user not found"))
			return
		}

		respondData(c, http.StatusOK, gin.H{"user": user})
	}
}

// UpdateMyPassword verifies the current password, stores the new hash and
// stamps passwordChangedAt so older tokens stop working. A fresh token comes
// back with the response.
func UpdateMyPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /users/update-my-password"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		var req changePasswordRequest
		if !bindJSON(c, &req) {
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			respondError(c, route, NewAuthError("current password is incorrect"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{
				"passwordHash":      string(hash),
				"passwordChangedAt": now,
				"updatedAt":         now,
			},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		log.Println("[USER] [INFO] password changed:", user.Email)
		respondWithToken(c, http.StatusOK, user)
	}
}

/* =======================
   WISHLIST
======================= */

func GetWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /wishlist"

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		products := make([]models.Product, 0, len(user.Wishlist))
		if len(user.Wishlist) > 0 {
			cursor, err := db.Collection("products").Find(ctx, bson.M{
				"_id": bson.M{"$in": user.Wishlist},
			})
			if err != nil {
				respondError(c, route, NewInternalError(err))
				return
			}
			defer cursor.Close(ctx)

			if err := cursor.All(ctx, &products); err != nil {
				respondError(c, route, NewInternalError(err))
				return
			}
		}

		respondList(c, len(products), nil, gin.H{"wishlist": products})
	}
}

func AddWishlistItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /wishlist"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		var req wishlistRequest
		if !bindJSON(c, &req) {
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondError(c, route, NewValidationError("invalid productId"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				respondError(c, route, NewNotFoundError("product not found with id %s", productID.Hex()))
				return
			}
			respondError(c, route, NewInternalError(err))
			return
		}

		var updated models.User
		err = db.Collection("users").FindOneAndUpdate(
			ctx,
			bson.M{"_id": user.ID},
			bson.M{
				"$addToSet": bson.M{"wishlist": productID},
				"$set":      bson.M{"updatedAt": time.Now()},
			},
			findOneAndUpdateReturnAfter(),
		).Decode(&updated)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"wishlist": updated.Wishlist})
	}
}

func RemoveWishlistItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /wishlist/:productId"

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		productID, ok := objectIDParam(c, "productId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.User
		err := db.Collection("users").FindOneAndUpdate(
			ctx,
			bson.M{"_id": user.ID},
			bson.M{
				"$pull": bson.M{"wishlist": productID},
				"$set":  bson.M{"updatedAt": time.Now()},
			},
			findOneAndUpdateReturnAfter(),
		).Decode(&updated)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"wishlist": updated.Wishlist})
	}
}

/* =======================
   ADDRESSES
======================= */

func newAddressID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}

	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16],
	), nil
}

func GetAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /addresses"

		current, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": current.ID}).Decode(&user); err != nil {
			respondError(c, route, NewNotFoundError("user not found"))
			return
		}

		respondList(c, len(user.Addresses), nil, gin.H{"addresses": user.Addresses})
	}
}

func CreateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /addresses"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		var req addressCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		addressID, err := newAddressID()
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		address := models.Address{
			ID:          addressID,
			Alias:       strings.TrimSpace(req.Alias),
			Details:     strings.TrimSpace(req.Details),
			City:        strings.TrimSpace(req.City),
			Governorate: strings.TrimSpace(req.Governorate),
			ZipCode:     strings.TrimSpace(req.ZipCode),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$push": bson.M{"addresses": address},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID)
		respondData(c, http.StatusCreated, gin.H{"address": address})
	}
}

func UpdateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /addresses/:id"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondError(c, route, NewValidationError("invalid address id"))
			return
		}

		var req addressCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		index := -1
		for i, addr := range user.Addresses {
			if addr.ID == addressID {
				index = i
				break
			}
		}
		if index == -1 {
			respondError(c, route, NewNotFoundError("address not found"))
			return
		}

		user.Addresses[index] = models.Address{
			ID:          addressID,
			Alias:       strings.TrimSpace(req.Alias),
			Details:     strings.TrimSpace(req.Details),
			City:        strings.TrimSpace(req.City),
			Governorate: strings.TrimSpace(req.Governorate),
			ZipCode:     strings.TrimSpace(req.ZipCode),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{
				"addresses": user.Addresses,
				"updatedAt": time.Now(),
			},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"address": user.Addresses[index]})
	}
}

func DeleteAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /addresses/:id"

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondError(c, route, NewValidationError("invalid address id"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$pull": bson.M{"addresses": bson.M{"id": addressID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.ModifiedCount == 0 {
			respondError(c, route, NewNotFoundError("address not found"))
			return
		}

		log.Println("[ADDRESS] [INFO] address deleted:", addressID)
		respondDeleted(c)
	}
}
