package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/config"
	"storefront/internal/models"
)

const resetCodeTTL = 10 * time.Minute

type signupRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyResetCodeRequest struct {
	Email     string `json:"email" binding:"required,email"`
	ResetCode string `json:"resetCode" binding:"required,len=6"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

/* =======================
   TOKEN ISSUANCE
======================= */

// signToken issues an HS256 token with the issue time embedded so password
// changes can invalidate it.
func signToken(userID primitive.ObjectID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID.Hex(),
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func respondWithToken(c *gin.Context, code int, user models.User) {
	token, err := signToken(user.ID, config.AppEnv.JWTSecret, config.AppEnv.TokenTTL)
	if err != nil {
		respondError(c, c.FullPath(), NewInternalError(err))
		return
	}
	respondData(c, code, gin.H{"token": token, "user": user})
}

/* =======================
   RESET CODES
======================= */

// generateResetCode returns a 6-digit numeric code, zero padded.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashResetCode stores only a digest of the code, never the code itself.
func hashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

/* =======================
   HANDLERS
======================= */

func Signup(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/signup"
		defer handlePanic(c, route)

		var req signupRequest
		if !bindJSON(c, &req) {
			return
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
			Role:         models.RoleUser,
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

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		respondWithToken(c, http.StatusCreated, user)
	}
}

func Login(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewAuthError("incorrect email or password"))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials:", email)
			respondError(c, route, NewAuthError("incorrect email or password"))
			return
		}
		if !user.Active {
			respondError(c, route, NewForbiddenError("this account has been deactivated"))
			return
		}

		log.Println("[AUTH] [INFO] login succeeded:", email)
		respondWithToken(c, http.StatusOK, user)
	}
}

// ForgotPassword issues a short-lived reset code. Without a mail provider the
// code is written to the server log only.
func ForgotPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/forgot-password"
		defer handlePanic(c, route)

		var req forgotPasswordRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("no user found with email %s", email))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		code, err := generateResetCode()
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		expires := time.Now().Add(resetCodeTTL)
		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{
				"resetCodeHash":     hashResetCode(code),
				"resetCodeExpires":  expires,
				"resetCodeVerified": false,
			},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		// TODO: send the code by email once an SMTP provider is configured.
		log.Println("[AUTH] [INFO] password reset code for", email, "is", code)

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "reset code sent to email",
		})
	}
}

func VerifyPasswordResetCode(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/verify-password-reset-code"
		defer handlePanic(c, route)

		var req verifyResetCodeRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		email := strings.ToLower(strings.TrimSpace(req.Email))

		res, err := db.Collection("users").UpdateOne(ctx, bson.M{
			"email":            email,
			"resetCodeHash":    hashResetCode(req.ResetCode),
			"resetCodeExpires": bson.M{"$gt": time.Now()},
		}, bson.M{
			"$set": bson.M{"resetCodeVerified": true},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, route, NewValidationError("reset code is invalid or expired"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// ResetPassword requires a previously verified code. A successful reset stamps
// passwordChangedAt, which invalidates every token issued before it.
func ResetPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /auth/reset-password"
		defer handlePanic(c, route)

		var req resetPasswordRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, NewNotFoundError("no user found with email %s", email))
			return
		}
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if !user.ResetCodeVerified || user.ResetCodeExpires == nil || time.Now().After(*user.ResetCodeExpires) {
			respondError(c, route, NewValidationError("reset code has not been verified"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		now := time.Now()
		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{
				"passwordHash":      string(hash),
				"passwordChangedAt": now,
				"updatedAt":         now,
			},
			"$unset": bson.M{
				"resetCodeHash":     "",
				"resetCodeExpires":  "",
				"resetCodeVerified": "",
			},
		})
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		log.Println("[AUTH] [INFO] password reset for:", email)
		respondWithToken(c, http.StatusOK, user)
	}
}
