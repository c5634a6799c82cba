package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type subCategoryCreateRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=32"`
	Category string `json:"category"`
}

type subCategoryUpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=32"`
	Category *string `json:"category"`
}

// subCategoryInput is the validated form of a create request after the
// nested-route category id (if any) has been resolved.
type subCategoryInput struct {
	Name     string
	Category primitive.ObjectID
}

// resolveCategoryRef parses a category id and verifies the document exists.
func resolveCategoryRef(ctx context.Context, db *mongo.Database, raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, NewValidationError("category is required")
	}

	categoryID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, NewValidationError("invalid category")
	}

	err = db.Collection("categories").FindOne(ctx, bson.M{"_id": categoryID}).Err()
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, NewNotFoundError("category not found")
	}
	if err != nil {
		return primitive.NilObjectID, NewInternalError(err)
	}
	return categoryID, nil
}

// resolveSubCategoryInput prefers the category id from the nested route path
// over the body.
func resolveSubCategoryInput(ctx context.Context, db *mongo.Database, req subCategoryCreateRequest, pathCategoryID string) (subCategoryInput, error) {
	rawCategory := strings.TrimSpace(pathCategoryID)
	if rawCategory == "" {
		rawCategory = req.Category
	}

	categoryID, err := resolveCategoryRef(ctx, db, rawCategory)
	if err != nil {
		return subCategoryInput{}, err
	}
	return subCategoryInput{Name: req.Name, Category: categoryID}, nil
}

func GetSubCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /subCategories"

		query, err := parseListQuery(c, listOptions{SearchFields: []string{"name"}})
		if err != nil {
			respondError(c, route, err)
			return
		}

		// Nested route scopes the list to one category.
		if rawID := strings.TrimSpace(c.Param("id")); rawID != "" {
			categoryID, err := primitive.ObjectIDFromHex(rawID)
			if err != nil {
				respondError(c, route, NewValidationError("invalid id"))
				return
			}
			query.Filter["category"] = categoryID
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("subcategories").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("subcategories").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		subCategories := make([]models.SubCategory, 0)
		if err := cursor.All(ctx, &subCategories); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(subCategories), paginationMeta(total, query.Page, query.Limit), gin.H{"subCategories": subCategories})
	}
}

func CreateSubCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /subCategories"
		defer handlePanic(c, route)

		var req subCategoryCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		input, err := resolveSubCategoryInput(ctx, db, req, c.Param("id"))
		if err != nil {
			respondError(c, route, err)
			return
		}

		now := time.Now()
		subCategory := models.SubCategory{
			Name:      input.Name,
			Slug:      Slugify(input.Name),
			Category:  input.Category,
			CreatedAt: now,
			UpdatedAt: now,
		}

		res, err := db.Collection("subcategories").InsertOne(ctx, subCategory)
		if err != nil {
			respondWriteError(c, route, err)
			return
		}
		subCategory.ID = insertedObjectID(res)

		log.Println("[SUBCATEGORY] [INFO] subcategory created:", subCategory.Slug)
		respondData(c, http.StatusCreated, gin.H{"subCategory": subCategory})
	}
}

func GetSubCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /subCategories/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var subCategory models.SubCategory
		err := db.Collection("subcategories").FindOne(ctx, bson.M{"_id": id}).Decode(&subCategory)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("subcategory not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"subCategory": subCategory})
	}
}

func UpdateSubCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /subCategories/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req subCategoryUpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updateSet := bson.M{"updatedAt": time.Now()}
		if req.Name != nil {
			updateSet["name"] = *req.Name
			updateSet["slug"] = Slugify(*req.Name)
		}
		if req.Category != nil {
			categoryID, err := resolveCategoryRef(ctx, db, *req.Category)
			if err != nil {
				respondError(c, route, err)
				return
			}
			updateSet["category"] = categoryID
		}

		var subCategory models.SubCategory
		err := db.Collection("subcategories").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": updateSet},
			findOneAndUpdateReturnAfter(),
		).Decode(&subCategory)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("subcategory not found"))
			return
		}
		if err != nil {
			respondWriteError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, gin.H{"subCategory": subCategory})
	}
}

func DeleteSubCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /subCategories/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("subcategories").DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.DeletedCount == 0 {
			respondError(c, route, NewNotFoundError("subcategory not found"))
			return
		}

		respondDeleted(c)
	}
}
