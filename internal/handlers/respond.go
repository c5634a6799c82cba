package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/config"
	"storefront/internal/database"
)

/* =======================
   ERROR TAXONOMY
======================= */

// AppError carries an HTTP status alongside a client-safe message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewAuthError(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Message: message}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: "something went wrong", Err: err}
}

/* =======================
   RESPONSE ENVELOPE
======================= */

func respondData(c *gin.Context, code int, data gin.H) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

func respondList(c *gin.Context, results int, pagination gin.H, data gin.H) {
	body := gin.H{
		"status":  "success",
		"results": results,
		"data":    data,
	}
	if pagination != nil {
		body["pagination"] = pagination
	}
	c.JSON(http.StatusOK, body)
}

func respondDeleted(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// respondError renders any error through the envelope. Outside production the
// underlying error is echoed to the client.
func respondError(c *gin.Context, route string, err error) {
	appErr := &AppError{}
	if !errors.As(err, &appErr) {
		appErr = NewInternalError(err)
	}

	status := "fail"
	if appErr.Code >= http.StatusInternalServerError {
		status = "error"
	}

	log.Printf("[%s] returning error %d: %v", route, appErr.Code, err)

	body := gin.H{"status": status, "message": appErr.Message}
	if !config.AppEnv.IsProduction() && appErr.Err != nil {
		body["error"] = appErr.Err.Error()
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}

// respondWriteError translates duplicate-key failures into a field-naming
// validation error; everything else is an internal error.
func respondWriteError(c *gin.Context, route string, err error) {
	if field, ok := database.DuplicateKeyField(err); ok {
		respondError(c, route, NewValidationError("%s already exists", field))
		return
	}
	respondError(c, route, NewInternalError(err))
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "something went wrong",
		})
	}
}

/* =======================
   REQUEST BINDING
======================= */

// bindJSON binds and validates a request body, shaping validator failures
// into per-field messages.
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindWith(out, binding.JSON); err != nil {
		respondValidationError(c, err)
		return false
	}
	return true
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "min", "max", "gte", "lte":
				details = append(details, fmt.Sprintf("%s is out of range", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email", field))
			case "oneof":
				details = append(details, fmt.Sprintf("%s has an unsupported value", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":  "fail",
			"message": strings.Join(details, ", "),
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"status":  "fail",
		"message": "invalid request body",
	})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// objectIDParam parses a path parameter as an ObjectID.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(name)))
	if err != nil {
		respondError(c, c.FullPath(), NewValidationError("invalid %s", name))
		return primitive.NilObjectID, false
	}
	return id, true
}
