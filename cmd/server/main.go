package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/config"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/controller"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/logger"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/middleware"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/rabbit"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.L()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("error conectando a MongoDB", zap.Error(err))
	}
	db := client.Database(cfg.MongoDBName)

	// Repositorios e índices
	users := repository.NewMongoUserRepository(db)
	products := repository.NewMongoProductRepository(db)
	orders := repository.NewMongoOrderRepository(db)
	tx := repository.NewMongoTxRunner(client)

	for _, idx := range []interface {
		EnsureIndexes(ctx context.Context) error
	}{users, products, orders} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			log.Warn("no se pudieron crear los índices", zap.Error(err))
		}
	}

	// Conexión a RabbitMQ (opcional: sin broker la API sigue funcionando)
	var publisher *rabbit.Publisher
	if conn, err := amqp091.Dial(cfg.RabbitURL); err != nil {
		log.Warn("RabbitMQ no disponible, eventos deshabilitados", zap.Error(err))
	} else {
		ch, err := conn.Channel()
		if err != nil {
			log.Warn("error creando canal en RabbitMQ", zap.Error(err))
		} else if publisher, err = rabbit.NewPublisher(ch); err != nil {
			log.Warn("error declarando exchanges", zap.Error(err))
			publisher = nil
		}
	}

	// Servicios
	authService := service.NewAuthService(users, service.AuthConfig{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		SessionCap: cfg.SessionCap,
	})
	productService := service.NewProductService(products)
	orderService := service.NewOrderService(orders, products, tx, eventPublisher(publisher), cfg.CancelWindow)
	returnService := service.NewReturnService(orders, products, tx, eventPublisher(publisher), cfg.ReturnWindow())

	// Handlers
	authCtrl := controller.NewAuthController(authService, cfg.RefreshTokenTTL)
	productCtrl := controller.NewProductController(productService)
	orderCtrl := controller.NewOrderController(orderService)
	returnCtrl := controller.NewReturnController(returnService)

	// Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/", func(c *gin.Context) {
		dbStatus := "connected"
		pingCtx, pingCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer pingCancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			dbStatus = "disconnected"
		}
		c.JSON(http.StatusOK, gin.H{
			"service":  "marketplace-artesanal",
			"status":   "ok",
			"database": dbStatus,
		})
	})

	api := r.Group("/api")

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	})

	// Rutas públicas
	authRoutes := api.Group("/auth")
	authRoutes.Use(limiter.Handler())
	authRoutes.POST("/register", authCtrl.Register)
	authRoutes.POST("/login", authCtrl.Login)
	authRoutes.POST("/refresh-token", authCtrl.Refresh)

	productRoutes := api.Group("/products")
	productRoutes.GET("", productCtrl.List)
	productRoutes.GET("/search", productCtrl.Search)
	productRoutes.GET("/categories-available", productCtrl.Categories)
	productRoutes.GET("/artisan/:artisanId", productCtrl.ByArtisan)
	productRoutes.GET("/:id", productCtrl.GetByID)

	// Rutas protegidas (requieren token)
	auth := api.Group("/")
	auth.Use(middleware.AuthMiddleware(authService))

	auth.POST("/auth/logout", authCtrl.Logout)
	auth.POST("/auth/logout-all", authCtrl.LogoutAll)

	auth.POST("/products", productCtrl.Create)
	auth.PUT("/products/:id", productCtrl.Update)
	auth.DELETE("/products/:id", productCtrl.Delete)
	auth.PATCH("/products/:id/stock", productCtrl.AdjustStock)

	auth.POST("/orders", orderCtrl.Create)
	auth.GET("/orders", orderCtrl.ListMine)
	auth.GET("/orders/:id", orderCtrl.Get)
	auth.PATCH("/orders/:id/status", orderCtrl.UpdateStatus)
	auth.POST("/orders/:id/cancel", orderCtrl.Cancel)
	auth.GET("/orders/:id/tracking", orderCtrl.Tracking)
	auth.POST("/orders/:id/return", returnCtrl.Submit)

	auth.GET("/returns", returnCtrl.List)
	auth.GET("/returns/:returnId", returnCtrl.Details)

	auth.GET("/artisans/orders", orderCtrl.ArtisanOrders)

	// Rutas admin
	admin := auth.Group("/")
	admin.Use(middleware.AdminOnly())
	admin.PATCH("/returns/:returnId/order/:id", returnCtrl.Review)

	// Ejecutar servidor
	log.Info("Marketplace Artesanal API ejecutándose", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("servidor detenido", zap.Error(err))
	}
}

// eventPublisher evita un interface no-nil envolviendo un puntero nil.
func eventPublisher(p *rabbit.Publisher) service.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
