package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chaiyarin55/storefront-backend/internal/cart"
	"github.com/chaiyarin55/storefront-backend/internal/config"
	"github.com/chaiyarin55/storefront-backend/internal/database"
	"github.com/chaiyarin55/storefront-backend/internal/order"
	"github.com/chaiyarin55/storefront-backend/internal/product"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.MigrationsPath); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("database migrations completed")

	app := fiber.New()
	setupCORS(app)
	app.Use(checkMiddleware)

	// validate tokens when presented; guests pass through and resolve to a
	// session cart, protected handlers reject missing claims themselves
	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
		Filter: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderAuthorization) == ""
		},
	}))

	productRepo := product.NewPostgresRepository(db)
	productService := product.NewService(productRepo)
	productHandler := product.NewHandler(productService)
	productHandler.RegisterPublicRoutes(app)

	cartRepo := cart.NewPostgresRepository(db)
	cartService := cart.NewService(cartRepo, productRepo, logger)
	cartHandler := cart.NewHandler(cartService)
	cartHandler.RegisterRoutes(app)

	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo, cartRepo, productRepo, cfg.Pricing, cfg.Currency, logger)
	orderHandler := order.NewHandler(orderService, cartHandler)
	orderHandler.RegisterRoutes(app)

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr))
		if err := app.Listen(cfg.Addr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func checkMiddleware(c *fiber.Ctx) error {
	start := time.Now()
	fmt.Printf("URL = %s, Method = %s, Start Time = %v\n", c.OriginalURL(), c.Method(), start)
	return c.Next()
}
