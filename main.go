package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-admin/controllers"
	"catalog-admin/logger"
	"catalog-admin/middleware"
	"catalog-admin/repository"
	"catalog-admin/routes"
	"catalog-admin/services"
	"catalog-admin/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err.Error())
	}
	defer log.Sync()

	// --- 1. Infrastructure clients ---

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zap.L().Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
		redisOpts = &redis.Options{Addr: "redis:6379", DB: 0}
	}
	rdb := redis.NewClient(redisOpts)

	zap.L().Info("AWS Configuration",
		zap.String("AWS_ENDPOINT", cfg.AWSEndpoint),
		zap.String("AWS_S3_ENDPOINT", cfg.AWSS3Endpoint),
		zap.String("AWS_REGION", cfg.AWSRegion),
	)

	cfgOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.AWSRegion),
	}
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" || secretKey != "" {
		cfgOpts = append(cfgOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	// Custom endpoint resolver for LocalStack
	if cfg.AWSEndpoint != "" {
		endpoint := cfg.AWSEndpoint
		region := cfg.AWSRegion
		cfgOpts = append(cfgOpts, awscfg.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, reg string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
			}),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(), cfgOpts...)
	if err != nil {
		zap.L().Fatal("Failed to load AWS config", zap.Error(err))
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.AWSS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSS3Endpoint)
		}
	})

	ddbClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})

	// --- 2. Dependency injection ---

	categoryRepo := repository.NewDynamoCategoryAdapter(ddbClient, cfg.DDBCategoriesTable)
	imageStore := storage.NewS3Store(s3Client, cfg.S3Bucket, cfg.AWSS3Endpoint, cfg.CDNDomain)

	categoryService := services.NewCategoryService(categoryRepo)
	importService := services.NewImportService(categoryRepo)
	uploadCoordinator := services.NewUploadCoordinator(imageStore, cfg.MaxImagesPerCategory)
	currencyConverter := services.NewCurrencyConverter(nil)

	cacheManager := controllers.NewCacheManager(rdb)
	requestValidator := controllers.NewRequestValidator()

	categoryController := controllers.NewCategoryController(categoryService, cacheManager, requestValidator)
	importHandler := controllers.NewImportHandler(importService, rdb, cacheManager, requestValidator, cfg.ImportStorageDir)
	uploadHandler := controllers.NewUploadHandler(uploadCoordinator, categoryService, imageStore, requestValidator, cfg.S3Prefix)
	currencyController := controllers.NewCurrencyController(currencyConverter)

	// --- 3. Background worker ---

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	services.StartImportWorker(workerCtx, rdb, importService, cfg.ImportStorageDir)

	// --- 4. HTTP server & middleware ---

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.RateLimitMiddleware())

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, categoryController, importHandler, uploadHandler, currencyController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// --- 5. Graceful shutdown ---

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Catalog Admin Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down Catalog Admin Service...")

	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := rdb.Close(); err != nil {
		zap.L().Error("Failed to close Redis", zap.Error(err))
	}

	zap.L().Info("Catalog Admin Service stopped gracefully")
}
