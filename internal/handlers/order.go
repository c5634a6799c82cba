package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

// Flat rates until a shipping provider exists.
const (
	orderTaxPrice      = 0.0
	orderShippingPrice = 0.0
)

type outOfStockError struct {
	ProductID primitive.ObjectID
}

func (e outOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID.Hex())
}

/* =======================
   ORDER BUILDING
======================= */

// orderTotal picks the discounted total when a coupon was applied, plus tax
// and shipping.
func orderTotal(cart models.Cart, taxPrice, shippingPrice float64) float64 {
	base := cart.Total
	if cart.TotalAfterDiscount != nil {
		base = *cart.TotalAfterDiscount
	}
	return base + taxPrice + shippingPrice
}

// stockUpdates builds one conditional decrement per line item. Executed as a
// single ordered bulk write inside the checkout transaction, so either every
// product is adjusted or none are.
func stockUpdates(items []models.CartItem) []mongo.WriteModel {
	updates := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		updates = append(updates, mongo.NewUpdateOneModel().
			SetFilter(bson.M{
				"_id":      item.Product,
				"quantity": bson.M{"$gte": item.Quantity},
			}).
			SetUpdate(bson.M{"$inc": bson.M{
				"quantity": -item.Quantity,
				"sold":     item.Quantity,
			}}))
	}
	return updates
}

/* =======================
   HANDLERS
======================= */

// CreateOrder snapshots a cart into an immutable cash order: the cart flips
// to ordered and every product's stock and sold counters move by the line
// quantity, all inside one transaction.
func CreateOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:cartId"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		cartID, ok := objectIDParam(c, "cartId")
		if !ok {
			return
		}

		ctx := c.Request.Context()

		var cart models.Cart
		err := db.Collection("carts").FindOne(ctx, bson.M{"_id": cartID}).Decode(&cart)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("cart not found with id %s", cartID.Hex()))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if cart.User != user.ID {
			respondError(c, route, NewForbiddenError("this cart does not belong to you"))
			return
		}
		if cart.Ordered {
			respondError(c, route, NewValidationError("cart has already been ordered"))
			return
		}
		if len(cart.Items) == 0 {
			respondError(c, route, NewValidationError("cart is empty"))
			return
		}
		if len(user.Addresses) == 0 {
			respondError(c, route, NewValidationError("you must add an address first"))
			return
		}

		order := models.Order{
			User:            user.ID,
			Cart:            cart.ID,
			ShippingAddress: user.Addresses[0],
			TaxPrice:        orderTaxPrice,
			ShippingPrice:   orderShippingPrice,
			TotalPrice:      orderTotal(cart, orderTaxPrice, orderShippingPrice),
			PaymentMethod:   "cash",
			CreatedAt:       time.Now(),
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			order.ID = insertedObjectID(res)

			_, err = db.Collection("carts").UpdateByID(sessCtx, cart.ID, bson.M{
				"$set": bson.M{"ordered": true, "updatedAt": time.Now()},
			})
			if err != nil {
				return nil, err
			}

			bulkRes, err := db.Collection("products").BulkWrite(sessCtx, stockUpdates(cart.Items))
			if err != nil {
				return nil, err
			}
			if bulkRes.MatchedCount != int64(len(cart.Items)) {
				// A missing match means a product vanished or its stock
				// shrank below the line quantity; abort the whole checkout.
				return nil, outOfStockError{ProductID: firstUnmatchedProduct(sessCtx, db, cart.Items)}
			}
			return nil, nil
		})
		if err != nil {
			var stockErr outOfStockError
			if errors.As(err, &stockErr) {
				respondError(c, route, NewValidationError("insufficient stock for product %s", stockErr.ProductID.Hex()))
				return
			}
			respondError(c, route, NewInternalError(err))
			return
		}

		log.Println("[ORDER] [INFO] order created for user:", user.ID.Hex())
		respondData(c, http.StatusCreated, gin.H{"order": order})
	}
}

// firstUnmatchedProduct names a product that could not satisfy its line
// quantity, for the error message only.
func firstUnmatchedProduct(ctx mongo.SessionContext, db *mongo.Database, items []models.CartItem) primitive.ObjectID {
	for _, item := range items {
		var product models.Product
		err := db.Collection("products").FindOne(ctx, bson.M{"_id": item.Product}).Decode(&product)
		if err != nil || product.Quantity < item.Quantity {
			return item.Product
		}
	}
	if len(items) > 0 {
		return items[0].Product
	}
	return primitive.NilObjectID
}

// GetOrders lists the caller's orders; admins see every order.
func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, route, NewAuthError("you are not logged in, please login first"))
			return
		}

		query, err := parseListQuery(c, listOptions{})
		if err != nil {
			respondError(c, route, err)
			return
		}
		if user.Role != models.RoleAdmin {
			query.Filter["user"] = user.ID
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("orders").CountDocuments(ctx, query.Filter)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		cursor, err := db.Collection("orders").Find(ctx, query.Filter, query.Find)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondList(c, len(orders), paginationMeta(total, query.Page, query.Limit), gin.H{"orders": orders})
	}
}

func GetOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"

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

		var order models.Order
		err := db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("order not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if order.User != user.ID && user.Role != models.RoleAdmin {
			respondError(c, route, NewForbiddenError("this order does not belong to you"))
			return
		}

		respondData(c, http.StatusOK, gin.H{"order": order})
	}
}

// MarkOrderPaid and MarkOrderDelivered are the only mutations orders allow.

func MarkOrderPaid(db *mongo.Database) gin.HandlerFunc {
	return markOrderFlag(db, "PATCH /orders/:id/pay", "paid", "paidAt")
}

func MarkOrderDelivered(db *mongo.Database) gin.HandlerFunc {
	return markOrderFlag(db, "PATCH /orders/:id/deliver", "delivered", "deliveredAt")
}

func markOrderFlag(db *mongo.Database, route, flagField, timeField string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err := db.Collection("orders").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{flagField: true, timeField: time.Now()}},
			findOneAndUpdateReturnAfter(),
		).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("order not found"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		respondData(c, http.StatusOK, gin.H{"order": order})
	}
}
