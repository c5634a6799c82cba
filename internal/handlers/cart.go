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

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

/* =======================
   PRICING
======================= */

// cartTotal computes the cart total from live product prices. Lines whose
// product no longer exists contribute nothing.
func cartTotal(items []models.CartItem, prices map[primitive.ObjectID]float64) float64 {
	total := 0.0
	for _, item := range items {
		total += float64(item.Quantity) * prices[item.Product]
	}
	return total
}

// discountedTotal applies a percentage coupon discount, rounded to 2
// decimals.
func discountedTotal(total, discount float64) float64 {
	return round2(total - total*discount/100)
}

// checkStock validates a requested line quantity against live stock.
func checkStock(requested, available int) error {
	if requested > available {
		return NewValidationError("only %d items available in stock", available)
	}
	return nil
}

// livePrices fetches the current price of every product referenced by the
// cart.
func livePrices(ctx context.Context, db *mongo.Database, items []models.CartItem) (map[primitive.ObjectID]float64, error) {
	if len(items) == 0 {
		return map[primitive.ObjectID]float64{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Product)
	}

	cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}

	prices := make(map[primitive.ObjectID]float64, len(products))
	for _, product := range products {
		prices[product.ID] = product.Price
	}
	return prices, nil
}

// saveCart recomputes the total from live prices and persists the cart.
// Any change to the line items invalidates a previously applied discount, so
// totalAfterDiscount is always cleared here.
func saveCart(ctx context.Context, db *mongo.Database, cart *models.Cart) error {
	prices, err := livePrices(ctx, db, cart.Items)
	if err != nil {
		return err
	}

	cart.Total = cartTotal(cart.Items, prices)
	cart.TotalAfterDiscount = nil
	cart.UpdatedAt = time.Now()

	_, err = db.Collection("carts").UpdateByID(ctx, cart.ID, bson.M{
		"$set": bson.M{
			"items":     cart.Items,
			"total":     cart.Total,
			"updatedAt": cart.UpdatedAt,
		},
		"$unset": bson.M{"totalAfterDiscount": ""},
	})
	return err
}

// openCart loads the user's current (not yet ordered) cart.
func openCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{
		"user":    userID,
		"ordered": false,
	}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return models.Cart{}, NewNotFoundError("cart not found for this user")
	}
	if err != nil {
		return models.Cart{}, NewInternalError(err)
	}
	return cart, nil
}

/* =======================
   HANDLERS
======================= */

func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req addCartItemRequest
		if !bindJSON(c, &req) {
			return
		}
		quantity := req.Quantity
		if quantity == 0 {
			quantity = 1
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondError(c, route, NewValidationError("invalid productId"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cart, err := openCart(ctx, db, userID)
		if appErr, ok := err.(*AppError); ok && appErr.Code == http.StatusNotFound {
			// Lazy creation on first add.
			if err := checkStock(quantity, product.Quantity); err != nil {
				respondError(c, route, err)
				return
			}
			now := time.Now()
			cart = models.Cart{
				User:      userID,
				Items:     []models.CartItem{{Product: productID, Quantity: quantity}},
				CreatedAt: now,
				UpdatedAt: now,
			}
			res, err := db.Collection("carts").InsertOne(ctx, cart)
			if err != nil {
				respondError(c, route, NewInternalError(err))
				return
			}
			cart.ID = insertedObjectID(res)
			if err := saveCart(ctx, db, &cart); err != nil {
				respondError(c, route, NewInternalError(err))
				return
			}

			log.Println("[CART] [INFO] cart created for user:", userID.Hex())
			respondData(c, http.StatusOK, gin.H{"numOfCartItems": len(cart.Items), "cart": cart})
			return
		}
		if err != nil {
			respondError(c, route, err)
			return
		}

		index := -1
		for i, item := range cart.Items {
			if item.Product == productID {
				index = i
				break
			}
		}

		if index >= 0 {
			// Cumulative quantity counts what is already in the cart.
			newQuantity := cart.Items[index].Quantity + quantity
			if err := checkStock(newQuantity, product.Quantity); err != nil {
				respondError(c, route, err)
				return
			}
			cart.Items[index].Quantity = newQuantity
		} else {
			if err := checkStock(quantity, product.Quantity); err != nil {
				respondError(c, route, err)
				return
			}
			cart.Items = append(cart.Items, models.CartItem{Product: productID, Quantity: quantity})
		}

		if err := saveCart(ctx, db, &cart); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"numOfCartItems": len(cart.Items), "cart": cart})
	}
}

func GetMyCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := openCart(ctx, db, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}

		respondData(c, http.StatusOK, gin.H{"numOfCartItems": len(cart.Items), "cart": cart})
	}
}

func UpdateCartItemQuantity(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /cart/:productId"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		productID, ok := objectIDParam(c, "productId")
		if !ok {
			return
		}

		var req updateCartItemRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := openCart(ctx, db, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}

		index := -1
		for i, item := range cart.Items {
			if item.Product == productID {
				index = i
				break
			}
		}
		if index < 0 {
			respondError(c, route, NewNotFoundError("product not found in cart"))
			return
		}

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if err := checkStock(req.Quantity, product.Quantity); err != nil {
			respondError(c, route, err)
			return
		}

		cart.Items[index].Quantity = req.Quantity
		if err := saveCart(ctx, db, &cart); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"numOfCartItems": len(cart.Items), "cart": cart})
	}
}

func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/:productId"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		productID, ok := objectIDParam(c, "productId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := openCart(ctx, db, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}

		items := make([]models.CartItem, 0, len(cart.Items))
		found := false
		for _, item := range cart.Items {
			if item.Product == productID {
				found = true
				continue
			}
			items = append(items, item)
		}
		if !found {
			respondError(c, route, NewNotFoundError("product not found in cart"))
			return
		}

		cart.Items = items
		if err := saveCart(ctx, db, &cart); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"numOfCartItems": len(cart.Items), "cart": cart})
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("carts").DeleteOne(ctx, bson.M{"user": userID, "ordered": false})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.DeletedCount == 0 {
			respondError(c, route, NewNotFoundError("cart not found for this user"))
			return
		}

		respondDeleted(c)
	}
}

func ApplyCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/coupon"
		defer handlePanic(c, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req applyCouponRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var coupon models.Coupon
		err := db.Collection("coupons").FindOne(ctx, bson.M{
			"code":   strings.ToUpper(strings.TrimSpace(req.Code)),
			"expiry": bson.M{"$gt": time.Now()},
		}).Decode(&coupon)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("coupon is invalid or expired"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cart, err := openCart(ctx, db, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}

		total := discountedTotal(cart.Total, coupon.Discount)
		cart.TotalAfterDiscount = &total
		cart.UpdatedAt = time.Now()

		_, err = db.Collection("carts").UpdateByID(ctx, cart.ID, bson.M{
			"$set": bson.M{
				"totalAfterDiscount": total,
				"updatedAt":          cart.UpdatedAt,
			},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		log.Println("[CART] [INFO] coupon applied:", coupon.Code)
		respondData(c, http.StatusOK, gin.H{"numOfCartItems": len(cart.Items), "cart": cart})
	}
}
