package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

func main() {
	config.Load()
	logger.Init(config.AppEnv.Env)
	defer logger.Sync()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Disconnect(ctx); err != nil {
			log.Println("mongo disconnect:", err)
		}
	}()

	db := client.Database(config.AppEnv.DBName)
	log.Println("MongoDB connected to:", db.Name())

	ensureIndexes(db)

	if config.AppEnv.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.Static("/public", "./public")

	r.GET("/health", func(c *gin.Context) {
		if err := database.EnsureConnected(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})

	api := r.Group("/api/v1")

	protect := middleware.Protect(db, config.AppEnv.JWTSecret)
	adminOnly := middleware.AllowedTo(models.RoleAdmin)
	managers := middleware.AllowedTo(models.RoleAdmin, models.RoleTechnician)

	auth := api.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/signup", handlers.Signup(db))
		auth.POST("/login", handlers.Login(db))
		auth.POST("/forgot-password", handlers.ForgotPassword(db))
		auth.POST("/verify-password-reset-code", handlers.VerifyPasswordResetCode(db))
		auth.PATCH("/reset-password", handlers.ResetPassword(db))
	}

	categories := api.Group("/categories")
	{
		categories.GET("", handlers.GetCategories(db))
		categories.GET("/:id", handlers.GetCategory(db))
		categories.GET("/:id/subCategories", handlers.GetSubCategories(db))

		categories.POST("", protect, managers, handlers.CreateCategory(db))
		categories.POST("/:id/subCategories", protect, managers, handlers.CreateSubCategory(db))
		categories.PATCH("/:id", protect, managers, handlers.UpdateCategory(db))
		categories.DELETE("/:id", protect, adminOnly, handlers.DeleteCategory(db))
	}

	subCategories := api.Group("/subCategories")
	{
		subCategories.GET("", handlers.GetSubCategories(db))
		subCategories.GET("/:id", handlers.GetSubCategory(db))

		subCategories.POST("", protect, managers, handlers.CreateSubCategory(db))
		subCategories.PATCH("/:id", protect, managers, handlers.UpdateSubCategory(db))
		subCategories.DELETE("/:id", protect, adminOnly, handlers.DeleteSubCategory(db))
	}

	products := api.Group("/products")
	{
		products.GET("", handlers.GetProducts(db))
		products.GET("/:id", handlers.GetProduct(db))
		products.GET("/:id/reviews", handlers.GetReviews(db))

		products.POST("", protect, managers, handlers.CreateProduct(db))
		products.PATCH("/:id", protect, managers, handlers.UpdateProduct(db))
		products.POST("/:id/image", protect, managers, handlers.UploadProductImage(db))
		products.DELETE("/:id", protect, adminOnly, handlers.DeleteProduct(db))

		products.POST("/:id/reviews", protect, middleware.AllowedTo(models.RoleUser), handlers.CreateReview(db))
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("", handlers.GetReviews(db))
		reviews.GET("/:id", handlers.GetReview(db))

		reviews.POST("", protect, middleware.AllowedTo(models.RoleUser), handlers.CreateReview(db))
		reviews.PATCH("/:id", protect, middleware.AllowedTo(models.RoleUser), handlers.UpdateReview(db))
		reviews.DELETE("/:id", protect, handlers.DeleteReview(db))
	}

	cart := api.Group("/cart")
	cart.Use(protect, middleware.AllowedTo(models.RoleUser))
	{
		cart.GET("", handlers.GetMyCart(db))
		cart.POST("", handlers.AddCartItem(db))
		cart.POST("/coupon", handlers.ApplyCoupon(db))
		cart.PATCH("/:productId", handlers.UpdateCartItemQuantity(db))
		cart.DELETE("/:productId", handlers.RemoveCartItem(db))
		cart.DELETE("", handlers.ClearCart(db))
	}

	coupons := api.Group("/coupons")
	coupons.Use(protect, managers)
	{
		coupons.GET("", handlers.GetCoupons(db))
		coupons.POST("", handlers.CreateCoupon(db))
		coupons.GET("/:id", handlers.GetCoupon(db))
		coupons.PATCH("/:id", handlers.UpdateCoupon(db))
		coupons.DELETE("/:id", handlers.DeleteCoupon(db))
	}

	orders := api.Group("/orders")
	orders.Use(protect)
	{
		orders.POST("/:cartId", middleware.AllowedTo(models.RoleUser), handlers.CreateOrder(db))
		orders.GET("", handlers.GetOrders(db))
		orders.GET("/:id", handlers.GetOrder(db))
		orders.PATCH("/:id/pay", adminOnly, handlers.MarkOrderPaid(db))
		orders.PATCH("/:id/deliver", adminOnly, handlers.MarkOrderDelivered(db))
	}

	users := api.Group("/users")
	users.Use(protect)
	{
		users.GET("/me", handlers.GetMe(db))
		users.PATCH("/update-my-password", handlers.UpdateMyPassword(db))

		users.GET("", adminOnly, handlers.GetUsers(db))
		users.POST("", adminOnly, handlers.CreateUser(db))
		users.GET("/:id", adminOnly, handlers.GetUser(db))
		users.PATCH("/:id", adminOnly, handlers.UpdateUser(db))
		users.DELETE("/:id", adminOnly, handlers.DeleteUser(db))
	}

	wishlist := api.Group("/wishlist")
	wishlist.Use(protect, middleware.AllowedTo(models.RoleUser))
	{
		wishlist.GET("", handlers.GetWishlist(db))
		wishlist.POST("", handlers.AddWishlistItem(db))
		wishlist.DELETE("/:productId", handlers.RemoveWishlistItem(db))
	}

	addresses := api.Group("/addresses")
	addresses.Use(protect, middleware.AllowedTo(models.RoleUser))
	{
		addresses.GET("", handlers.GetAddresses(db))
		addresses.POST("", handlers.CreateAddress(db))
		addresses.PATCH("/:id", handlers.UpdateAddress(db))
		addresses.DELETE("/:id", handlers.DeleteAddress(db))
	}

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}

func ensureIndexes(db *mongo.Database) {
	checks := []struct {
		name string
		fn   func(*mongo.Database) error
	}{
		{"user", database.EnsureUserIndexes},
		{"category", database.EnsureCategoryIndexes},
		{"subCategory", database.EnsureSubCategoryIndexes},
		{"product", database.EnsureProductIndexes},
		{"review", database.EnsureReviewIndexes},
		{"coupon", database.EnsureCouponIndexes},
		{"cart", database.EnsureCartIndexes},
		{"order", database.EnsureOrderIndexes},
	}
	for _, check := range checks {
		if err := check.fn(db); err != nil {
			log.Printf("%s index warning: %v", check.name, err)
		}
	}
}
