package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateResetCodeFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateResetCode()
		if err != nil {
			t.Fatalf("generateResetCode returned error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected numeric code, got %q", code)
			}
		}
	}
}

func TestHashResetCodeIsDeterministic(t *testing.T) {
	a := hashResetCode("123456")
	b := hashResetCode("123456")
	if a != b {
		t.Fatal("same code must hash to the same digest")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 digest, got %d chars", len(a))
	}
	if hashResetCode("654321") == a {
		t.Fatal("different codes must not collide")
	}
}

func TestSignTokenClaims(t *testing.T) {
	userID := primitive.NewObjectID()
	secret := "test-secret"

	signed, err := signToken(userID, secret, time.Hour)
	if err != nil {
		t.Fatalf("signToken returned error: %v", err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		t.Fatalf("expected a valid token, got err=%v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type %T", token.Claims)
	}
	if claims["userId"] != userID.Hex() {
		t.Fatalf("expected userId claim %s, got %v", userID.Hex(), claims["userId"])
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		t.Fatal("expected an iat claim")
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		t.Fatal("expected an exp claim")
	}
	if exp-iat != time.Hour.Seconds() {
		t.Fatalf("expected exp-iat of one hour, got %v", exp-iat)
	}
}

func TestSignTokenRejectsWrongSecret(t *testing.T) {
	signed, err := signToken(primitive.NewObjectID(), "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("signToken returned error: %v", err)
	}

	_, err = jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err == nil {
		t.Fatal("expected verification to fail with the wrong secret")
	}
}
