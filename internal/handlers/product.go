package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type productCreateRequest struct {
	Title              string   `json:"title" binding:"required,min=3,max=100"`
	Description        string   `json:"description" binding:"required,min=5,max=500"`
	Quantity           int      `json:"quantity" binding:"required,gte=0"`
	Price              float64  `json:"price" binding:"required,gt=0"`
	PriceAfterDiscount float64  `json:"priceAfterDiscount" binding:"omitempty,gt=0"`
	Category           string   `json:"category" binding:"required"`
	SubCategories      []string `json:"subCategories"`
	Images             []string `json:"images"`
}

type productUpdateRequest struct {
	Title              *string   `json:"title" binding:"omitempty,min=3,max=100"`
	Description        *string   `json:"description" binding:"omitempty,min=5,max=500"`
	Quantity           *int      `json:"quantity" binding:"omitempty,gte=0"`
	Price              *float64  `json:"price" binding:"omitempty,gt=0"`
	PriceAfterDiscount *float64  `json:"priceAfterDiscount" binding:"omitempty,gte=0"`
	Category           *string   `json:"category"`
	SubCategories      *[]string `json:"subCategories"`
	Images             *[]string `json:"images"`
}

// resolveSubCategoryRefs parses the ids and verifies each one exists and
// belongs to the product's category.
func resolveSubCategoryRefs(ctx context.Context, db *mongo.Database, raw []string, categoryID primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	seen := map[primitive.ObjectID]struct{}{}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, value := range raw {
		id, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, NewValidationError("invalid subCategory: %s", value)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	count, err := db.Collection("subcategories").CountDocuments(ctx, bson.M{
		"_id":      bson.M{"$in": ids},
		"category": categoryID,
	})
	if err != nil {
		return nil, NewInternalError(err)
	}
	if count != int64(len(ids)) {
		return nil, NewValidationError("subCategories must exist and belong to the product category")
	}

	return ids, nil
}

func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"

		query, err := parseListQuery(c, listOptions{
			SearchFields: []string{"title", "description"},
			FieldAliases: map[string]string{"subCategory": "subCategories"},
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("products").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("products").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(products), paginationMeta(total, query.Page, query.Limit), gin.H{"products": products})
	}
}

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		var req productCreateRequest
		if !bindJSON(c, &req) {
			return
		}

		if req.PriceAfterDiscount > 0 && req.PriceAfterDiscount >= req.Price {
			respondError(c, route, NewValidationError("priceAfterDiscount must be less than price"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		categoryID, err := resolveCategoryRef(ctx, db, req.Category)
		if err != nil {
			respondError(c, route, err)
			return
		}

		subCategoryIDs, err := resolveSubCategoryRefs(ctx, db, req.SubCategories, categoryID)
		if err != nil {
			respondError(c, route, err)
			return
		}

		now := time.Now()
		product := models.Product{
			Title:              req.Title,
			Slug:               Slugify(req.Title),
			Description:        req.Description,
			Quantity:           req.Quantity,
			Price:              req.Price,
			PriceAfterDiscount: req.PriceAfterDiscount,
			Images:             req.Images,
			Category:           categoryID,
			SubCategories:      subCategoryIDs,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			respondWriteError(c, route, err)
			return
		}
		product.ID = insertedObjectID(res)

		log.Println("[PRODUCT] [INFO] product created:", product.Slug)
		respondData(c, http.StatusCreated, gin.H{"product": product})
	}
}

func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"product": product})
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req productUpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		updateUnset := bson.M{}

		if req.Title != nil {
			updateSet["title"] = *req.Title
			updateSet["slug"] = Slugify(*req.Title)
		}
		if req.Description != nil {
			updateSet["description"] = *req.Description
		}
		if req.Quantity != nil {
			updateSet["quantity"] = *req.Quantity
		}

		price := existing.Price
		if req.Price != nil {
			price = *req.Price
			updateSet["price"] = price
		}
		if req.PriceAfterDiscount != nil {
			switch {
			case *req.PriceAfterDiscount == 0:
				updateUnset["priceAfterDiscount"] = ""
			case *req.PriceAfterDiscount >= price:
				respondError(c, route, NewValidationError("priceAfterDiscount must be less than price"))
				return
			default:
				updateSet["priceAfterDiscount"] = *req.PriceAfterDiscount
			}
		}

		categoryID := existing.Category
		if req.Category != nil {
			categoryID, err = resolveCategoryRef(ctx, db, *req.Category)
			if err != nil {
				respondError(c, route, err)
				return
			}
			updateSet["category"] = categoryID
		}
		if req.SubCategories != nil {
			subCategoryIDs, err := resolveSubCategoryRefs(ctx, db, *req.SubCategories, categoryID)
			if err != nil {
				respondError(c, route, err)
				return
			}
			updateSet["subCategories"] = subCategoryIDs
		}
		if req.Images != nil {
			updateSet["images"] = *req.Images
		}

		update := bson.M{"$set": updateSet}
		if len(updateUnset) > 0 {
			update["$unset"] = updateUnset
		}

		var product models.Product
		err = db.Collection("products").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			update,
			findOneAndUpdateReturnAfter(),
		).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondWriteError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, gin.H{"product": product})
	}
}

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /products/:id"

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err := db.Collection("products").FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if err := safeDeleteUpload(existing.ImageCover); err != nil {
			log.Printf("[PRODUCT] [WARN] cover image delete failed: %v", err)
		}

		log.Println("[PRODUCT] [INFO] product deleted:", id.Hex())
		respondDeleted(c)
	}
}
