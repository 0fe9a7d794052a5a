package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/config"
	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/gogobus/booking-gateway/internal/events"
	"github.com/gogobus/booking-gateway/internal/handlers"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/gogobus/booking-gateway/pkg/jwt"
	"github.com/gogobus/booking-gateway/pkg/mercadopago"
	"github.com/gogobus/booking-gateway/pkg/metrics"
	"github.com/gogobus/booking-gateway/pkg/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting GOGOBUS booking gateway")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Database is optional: it backs audit, rate limits, visit tracking and the postgres session store
	var db database.DB
	if cfg.Database.URL != "" {
		logger.Info("Connecting to database...")
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.EnsureSchema(db); err != nil {
			logger.Fatalf("Failed to prepare database schema: %v", err)
		}
		logger.Info("Database connection established")
	}

	// Session store
	var (
		store        session.Store
		sessionSweep services.ExpiredSessionCleaner
	)
	switch cfg.Session.Store {
	case config.SessionStorePostgres:
		pgStore := session.NewPostgresStore(db, cfg.Session.TTL)
		store, sessionSweep = pgStore, pgStore
	case config.SessionStoreRedis:
		redisClient, err := session.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		// Redis expires session hashes itself
		store = session.NewRedisStore(redisClient, cfg.Redis.KeyPrefix, cfg.Session.TTL)
	default:
		memStore := session.NewMemoryStore(cfg.Session.TTL)
		store, sessionSweep = memStore, memStore
	}
	logger.WithField("store", cfg.Session.Store).Info("Session store initialized")

	// Booking events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:   cfg.Kafka.Brokers,
			Topic:     cfg.Kafka.BookingTopic,
			RetryMax:  cfg.Kafka.RetryMax,
			TimeoutMs: cfg.Kafka.TimeoutMs,
		}, logger)
		if err != nil {
			// Events are best effort, the gateway keeps serving without them
			logger.WithError(err).Warn("Kafka unavailable, booking events disabled")
		} else {
			publisher = kafkaPublisher
			logger.WithField("topic", cfg.Kafka.BookingTopic).Info("Booking events enabled")
		}
	}
	defer publisher.Close()

	// Metrics
	var (
		registry *prometheus.Registry
		m        *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewMetrics(cfg.Metrics.Namespace, registry)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.Session.Secret, cfg.Session.TTL)
	apiClient := busapi.NewClient(busapi.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, logger)
	mpClient := mercadopago.NewClient(mercadopago.Config{
		APIURL:        cfg.MercadoPago.APIURL,
		AccessToken:   cfg.MercadoPago.AccessToken,
		PublicBaseURL: cfg.MercadoPago.PublicBaseURL,
	})

	tripService := services.NewTripService(apiClient, m, logger)
	passengerValidator := validator.NewPassengerValidator()
	selectionService := services.NewSelectionService(tripService, passengerValidator, logger)
	bookingService := services.NewBookingService(apiClient, publisher, m, logger)
	paymentService := services.NewPaymentService(apiClient, mpClient, publisher, m, logger)
	ticketService := services.NewTicketService(logger)
	userService := services.NewUserService(apiClient, logger)

	rateLimitConfig := services.RateLimitConfig{
		MaxRequests: cfg.RateLimit.Requests,
		Window:      time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}

	var (
		auditService *services.AuditService
		rateLimiter  services.RateLimiter
		rateSweep    services.RateLimitCleaner
		visits       middleware.VisitRecorder
		visitSweep   services.VisitCleaner
	)
	if db != nil {
		if cfg.Security.EnableAuditLog {
			auditService = services.NewAuditService(db)
		}
		dbLimiter := services.NewRateLimitService(db, rateLimitConfig)
		rateLimiter, rateSweep = dbLimiter, dbLimiter
		visitRepository := database.NewGatewaySessionRepository(db)
		visits, visitSweep = visitRepository, visitRepository
	} else {
		memLimiter := services.NewMemoryRateLimiter(rateLimitConfig)
		rateLimiter, rateSweep = memLimiter, memLimiter
	}

	// Initialize and start cron service
	cronService := services.NewCronService(sessionSweep, rateSweep, auditService, logger)
	if visitSweep != nil {
		cronService.WithVisitCleaner(visitSweep)
	}
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started")

	logger.Info("Services initialized")

	// Initialize handlers
	tripHandler := handlers.NewTripHandler(tripService, selectionService, logger)
	selectionHandler := handlers.NewSelectionHandler(selectionService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, tripService, ticketService, passengerValidator, auditService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, auditService, logger)
	ticketHandler := handlers.NewTicketHandler(ticketService, logger)
	authHandler := handlers.NewAuthHandler(userService, auditService, logger)
	healthHandler := handlers.NewHealthHandler(db, cfg.Session.Store)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger, m))
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, middleware.SessionHeader),
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthHandler.Health)

	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// Debug endpoint to check headers (only outside production)
	if !cfg.IsProduction() {
		router.GET("/debug/headers", debugHeadersHandler())
	}

	checkoutLimit := middleware.CheckoutRateLimit(rateLimiter, auditService, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.SessionMiddleware(jwtService, store, visits, logger))
	{
		v1.GET("/locations", tripHandler.SearchLocations)

		trips := v1.Group("/trips")
		{
			trips.GET("", tripHandler.SearchTrips)
			trips.GET("/:id", tripHandler.GetTrip)
			trips.GET("/:id/seats", tripHandler.GetSeatMap)

			trips.GET("/:id/selection", selectionHandler.GetSelection)
			trips.POST("/:id/selection/seats", selectionHandler.SelectSeat)
			trips.PUT("/:id/selection/passengers/:seat_id", selectionHandler.SavePassenger)
			trips.POST("/:id/selection/continue", selectionHandler.ContinueToCheckout)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.GET("/passengers", selectionHandler.CheckoutPassengers)
			checkout.GET("/success", ticketHandler.LastBooking)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.POST("", checkoutLimit, bookingHandler.Checkout)
			bookings.GET("", middleware.RequireBackendToken(), bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/cancel", middleware.RequireBackendToken(), bookingHandler.CancelBooking)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/preference", checkoutLimit, paymentHandler.CreatePreference)
			payments.GET("/:booking_id/status", paymentHandler.GetStatus)
		}

		tickets := v1.Group("/tickets")
		{
			tickets.GET("/:booking_id", ticketHandler.GetTicket)
			tickets.GET("/:booking_id/pdf", ticketHandler.DownloadTicket)
		}

		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.GET("/me", authHandler.Me)
			auth.POST("/logout", authHandler.Logout)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop cron service
	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// debugHeadersHandler shows all request headers for debugging IP issues
func debugHeadersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := make(map[string]string)
		for name, values := range c.Request.Header {
			headers[name] = values[0]
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Debug information for IP detection",
			"headers": headers,
			"ip_detection": gin.H{
				"gin_clientip":      c.ClientIP(),
				"remote_addr":       c.Request.RemoteAddr,
				"x_real_ip":         c.Request.Header.Get("X-Real-IP"),
				"x_forwarded_for":   c.Request.Header.Get("X-Forwarded-For"),
				"x_forwarded_proto": c.Request.Header.Get("X-Forwarded-Proto"),
			},
			"user_agent": c.Request.UserAgent(),
			"timestamp":  time.Now().Unix(),
		})
	}
}
