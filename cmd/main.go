package main

import (
	"catalog-service/internal/audit"
	"catalog-service/internal/cache"
	"catalog-service/internal/catalog"
	"catalog-service/internal/handler"
	mid "catalog-service/internal/middleware"
	"catalog-service/pkg/config"
	"catalog-service/pkg/database"
	"catalog-service/pkg/jwtutil"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env when present)
	appConfig, err := config.Load("catalog-service")
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting catalog-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	db := database.GetDB()
	log.Info("Database connection established")

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&appConfig.JWT)

	// External sinks: audit log and cache invalidation
	recorder := audit.NewLogRecorder(log)
	var invalidator cache.Invalidator = cache.NopInvalidator{}
	if appConfig.Redis.Addr != "" {
		redisInvalidator, err := cache.NewRedisInvalidator(&appConfig.Redis, log)
		if err != nil {
			log.Warn("Cache invalidation disabled", zap.Error(err))
		} else {
			invalidator = redisInvalidator
			defer redisInvalidator.Close()
		}
	} else {
		log.Info("REDIS_ADDR not set, cache invalidation disabled")
	}

	// Core catalog engines
	resolver := catalog.NewResolver(db)
	engine := catalog.NewCascadeEngine(db, invalidator, recorder)
	lifecycle := catalog.NewLifecycle(db, invalidator, recorder)
	ingestor := catalog.NewIngestor(db, resolver, invalidator, recorder, appConfig.Bulk)

	// Handlers
	manufacturers := handler.NewManufacturerHandler(db, lifecycle, recorder)
	brands := handler.NewBrandHandler(db, engine, lifecycle, recorder)
	variants := handler.NewVariantHandler(db, engine, lifecycle, recorder)
	packs := handler.NewPackHandler(engine, lifecycle)
	categories := handler.NewCategoryHandler(db, lifecycle, recorder)
	products := handler.NewProductHandler(db, lifecycle, invalidator, recorder)
	bulk := handler.NewBulkHandler(ingestor, appConfig.Bulk)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// All catalog routes require an authenticated actor
	api := e.Group("/api", mid.AuthMiddleware(jwt))
	admin := mid.RequireRoles("admin")

	manufacturerAPI := api.Group("/manufacturers")
	manufacturerAPI.GET("", manufacturers.List)
	manufacturerAPI.GET("/:id", manufacturers.Get)
	manufacturerAPI.POST("", manufacturers.Create)
	manufacturerAPI.PUT("/:id", manufacturers.Update)
	manufacturerAPI.DELETE("/:id", manufacturers.Delete, admin)
	manufacturerAPI.POST("/:id/reactivate", manufacturers.Reactivate, admin)

	brandAPI := api.Group("/brands")
	brandAPI.GET("", brands.List)
	brandAPI.GET("/:id", brands.Get)
	brandAPI.POST("", brands.Create)
	brandAPI.PUT("/:id", brands.Update)
	brandAPI.DELETE("/:id", brands.Delete, admin)
	brandAPI.POST("/:id/reactivate", brands.Reactivate, admin)

	variantAPI := api.Group("/variants")
	variantAPI.GET("", variants.List)
	variantAPI.GET("/:id", variants.Get)
	variantAPI.POST("", variants.Create)
	variantAPI.PUT("/:id", variants.Update)
	variantAPI.DELETE("/:id", variants.Delete, admin)
	variantAPI.POST("/:id/reactivate", variants.Reactivate, admin)

	packSizeAPI := api.Group("/pack-sizes")
	packSizeAPI.PUT("/:id", packs.RenameSize)
	packSizeAPI.DELETE("/:id", packs.DeleteSize, admin)
	packSizeAPI.POST("/:id/reactivate", packs.ReactivateSize, admin)

	packTypeAPI := api.Group("/pack-types")
	packTypeAPI.PUT("/:id", packs.RenameType)
	packTypeAPI.DELETE("/:id", packs.DeleteType, admin)
	packTypeAPI.POST("/:id/reactivate", packs.ReactivateType, admin)

	categoryAPI := api.Group("/categories")
	categoryAPI.GET("", categories.ListCategories)
	categoryAPI.GET("/:id", categories.GetCategory)
	categoryAPI.POST("", categories.CreateCategory)
	categoryAPI.PUT("/:id", categories.UpdateCategory)
	categoryAPI.DELETE("/:id", categories.DeleteCategory, admin)
	categoryAPI.POST("/:id/reactivate", categories.ReactivateCategory, admin)

	subcategoryAPI := api.Group("/subcategories")
	subcategoryAPI.GET("", categories.ListSubcategories)
	subcategoryAPI.GET("/:id", categories.GetSubcategory)
	subcategoryAPI.POST("", categories.CreateSubcategory)
	subcategoryAPI.PUT("/:id", categories.UpdateSubcategory)
	subcategoryAPI.DELETE("/:id", categories.DeleteSubcategory, admin)
	subcategoryAPI.POST("/:id/reactivate", categories.ReactivateSubcategory, admin)

	productAPI := api.Group("/products")
	productAPI.GET("", products.List)
	productAPI.GET("/:id", products.Get)
	productAPI.POST("", products.Create)
	productAPI.PATCH("/:id/publish", products.Publish)
	productAPI.DELETE("/:id", products.Delete, admin)
	productAPI.POST("/:id/reactivate", products.Reactivate, admin)
	productAPI.POST("/bulk-upload", bulk.Upload)
	productAPI.GET("/bulk-upload/template", bulk.Template)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
