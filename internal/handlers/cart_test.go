package handlers

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestCartTotal(t *testing.T) {
	phone := primitive.NewObjectID()
	cable := primitive.NewObjectID()

	items := []models.CartItem{
		{Product: phone, Quantity: 2},
		{Product: cable, Quantity: 3},
	}
	prices := map[primitive.ObjectID]float64{
		phone: 500,
		cable: 10.5,
	}

	if got := cartTotal(items, prices); got != 1031.5 {
		t.Fatalf("expected total 1031.5, got %v", got)
	}
}

func TestCartTotalIgnoresMissingProducts(t *testing.T) {
	gone := primitive.NewObjectID()
	kept := primitive.NewObjectID()

	items := []models.CartItem{
		{Product: gone, Quantity: 5},
		{Product: kept, Quantity: 1},
	}
	prices := map[primitive.ObjectID]float64{kept: 20}

	if got := cartTotal(items, prices); got != 20 {
		t.Fatalf("expected deleted product to contribute nothing, got %v", got)
	}
}

func TestDiscountedTotal(t *testing.T) {
	if got := discountedTotal(100, 20); got != 80 {
		t.Fatalf("expected 80 after 20%% off 100, got %v", got)
	}
	if got := discountedTotal(99.99, 10); got != 89.99 {
		t.Fatalf("expected rounding to 2 decimals, got %v", got)
	}
	if got := discountedTotal(50, 0); got != 50 {
		t.Fatalf("expected unchanged total at 0%%, got %v", got)
	}
	if got := discountedTotal(50, 100); got != 0 {
		t.Fatalf("expected 0 at 100%%, got %v", got)
	}
}

func TestCheckStock(t *testing.T) {
	if err := checkStock(3, 3); err != nil {
		t.Fatalf("expected exact stock to pass, got %v", err)
	}
	if err := checkStock(0, 0); err != nil {
		t.Fatalf("expected zero request to pass, got %v", err)
	}

	err := checkStock(4, 3)
	if err == nil {
		t.Fatal("expected error when requesting more than available")
	}
	appErr := &AppError{}
	if !errors.As(err, &appErr) || appErr.Code != 400 {
		t.Fatalf("expected a 400 validation error, got %v", err)
	}
}
