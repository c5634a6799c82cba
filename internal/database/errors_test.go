package database

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKeyError(message string) error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{
			{Code: 11000, Message: message},
		},
	}
}

func TestDuplicateKeyFieldKnownIndex(t *testing.T) {
	err := duplicateKeyError(`E11000 duplicate key error collection: storefront.users index: email_unique dup key: { email: "a@b.com" }`)

	field, ok := DuplicateKeyField(err)
	if !ok {
		t.Fatal("expected a duplicate-key match")
	}
	if field != "email" {
		t.Fatalf("expected field email, got %s", field)
	}
}

func TestDuplicateKeyFieldCompoundIndex(t *testing.T) {
	err := duplicateKeyError(`E11000 duplicate key error collection: storefront.reviews index: user_product_unique dup key: { user: ObjectId('x'), product: ObjectId('y') }`)

	field, ok := DuplicateKeyField(err)
	if !ok || field != "review" {
		t.Fatalf("expected review, got (%s, %v)", field, ok)
	}
}

func TestDuplicateKeyFieldUnknownIndex(t *testing.T) {
	err := duplicateKeyError(`E11000 duplicate key error collection: storefront.things index: something_else dup key: {}`)

	if _, ok := DuplicateKeyField(err); ok {
		t.Fatal("unknown index names must not match")
	}
}

func TestDuplicateKeyFieldNonDuplicateErrors(t *testing.T) {
	if _, ok := DuplicateKeyField(nil); ok {
		t.Fatal("nil error must not match")
	}
	if _, ok := DuplicateKeyField(errors.New("connection reset")); ok {
		t.Fatal("plain errors must not match")
	}
}

func TestViolatedIndexName(t *testing.T) {
	err := duplicateKeyError(`E11000 duplicate key error collection: storefront.coupons index: code_unique dup key: { code: "SAVE20" }`)

	if name := violatedIndexName(err); name != "code_unique" {
		t.Fatalf("expected code_unique, got %q", name)
	}
}
