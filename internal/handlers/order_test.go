package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

func TestOrderTotalUsesDiscountedTotalWhenPresent(t *testing.T) {
	discounted := 80.0
	cart := models.Cart{Total: 100, TotalAfterDiscount: &discounted}

	if got := orderTotal(cart, 0, 0); got != 80 {
		t.Fatalf("expected discounted total 80, got %v", got)
	}
}

func TestOrderTotalFallsBackToCartTotal(t *testing.T) {
	cart := models.Cart{Total: 100}

	if got := orderTotal(cart, 0, 0); got != 100 {
		t.Fatalf("expected cart total 100, got %v", got)
	}
}

func TestOrderTotalAddsTaxAndShipping(t *testing.T) {
	cart := models.Cart{Total: 100}

	if got := orderTotal(cart, 14, 30); got != 144 {
		t.Fatalf("expected 144 with tax and shipping, got %v", got)
	}
}

func TestStockUpdatesBuildsOneUpdatePerLine(t *testing.T) {
	phone := primitive.NewObjectID()
	cable := primitive.NewObjectID()

	updates := stockUpdates([]models.CartItem{
		{Product: phone, Quantity: 2},
		{Product: cable, Quantity: 1},
	})
	if len(updates) != 2 {
		t.Fatalf("expected 2 write models, got %d", len(updates))
	}

	first, ok := updates[0].(*mongo.UpdateOneModel)
	if !ok {
		t.Fatalf("expected *mongo.UpdateOneModel, got %T", updates[0])
	}

	filter, ok := first.Filter.(bson.M)
	if !ok {
		t.Fatalf("unexpected filter type %T", first.Filter)
	}
	if filter["_id"] != phone {
		t.Fatalf("expected filter on product id, got %v", filter["_id"])
	}
	stockGuard, ok := filter["quantity"].(bson.M)
	if !ok || stockGuard["$gte"] != 2 {
		t.Fatalf("expected quantity guard $gte 2, got %v", filter["quantity"])
	}

	update, ok := first.Update.(bson.M)
	if !ok {
		t.Fatalf("unexpected update type %T", first.Update)
	}
	inc, ok := update["$inc"].(bson.M)
	if !ok {
		t.Fatalf("expected $inc update, got %v", update)
	}
	if inc["quantity"] != -2 || inc["sold"] != 2 {
		t.Fatalf("expected quantity -2 and sold +2, got %v", inc)
	}
}

func TestStockUpdatesEmptyCart(t *testing.T) {
	if updates := stockUpdates(nil); len(updates) != 0 {
		t.Fatalf("expected no write models for an empty cart, got %d", len(updates))
	}
}
