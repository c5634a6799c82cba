package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type categoryCreateRequest struct {
	Name string `json:"name" binding:"required,min=3,max=32"`
}

type categoryUpdateRequest struct {
	Name *string `json:"name" binding:"omitempty,min=3,max=32"`
}

func GetCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"

		query, err := parseListQuery(c, listOptions{SearchFields: []string{"name"}})
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("categories").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("categories").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		categories := make([]models.Category, 0)
		if err := cursor.All(ctx, &categories); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(categories), paginationMeta(total, query.Page, query.Limit), gin.H{"categories": categories})
	}
}

func CreateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /categories"
		defer handlePanic(c, route)

		var req categoryCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		now := time.Now()
		category := models.Category{
			Name:      req.Name,
			Slug:      Slugify(req.Name),
			CreatedAt: now,
			UpdatedAt: now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("categories").InsertOne(ctx, category)
		if err != nil {
			respondWriteError(c, route, err)
			return
		}
		category.ID = insertedObjectID(res)

		log.Println("[CATEGORY] [INFO] category created:", category.Slug)
		respondData(c, http.StatusCreated, gin.H{"category": category})
	}
}

func GetCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var category models.Category
		err := db.Collection("categories").FindOne(ctx, bson.M{"_id": id}).Decode(&category)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("category not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"category": category})
	}
}

func UpdateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /categories/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req categoryUpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		if req.Name != nil {
			updateSet["name"] = *req.Name
			updateSet["slug"] = Slugify(*req.Name)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var category models.Category
		err := db.Collection("categories").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": updateSet},
			findOneAndUpdateReturnAfter(),
		).Decode(&category)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("category not found"))
			return
		}
		if err != nil {
			respondWriteError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, gin.H{"category": category})
	}
}

func DeleteCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /categories/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("categories").DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.DeletedCount == 0 {
			respondError(c, route, NewNotFoundError("category not found"))
			return
		}

		log.Println("[CATEGORY] [INFO] category deleted:", id.Hex())
		respondDeleted(c)
	}
}
