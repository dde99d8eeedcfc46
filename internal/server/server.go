package server

import (
	"fmt"
	"net/http"
	"time"

	"course-fee-gateway/internal/database"
	"course-fee-gateway/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "course-fee-gateway"

type Options struct {
	CORSOrigins []string
	FrontendURL string
}

func NewRouter(
	opts Options,
	logger *zap.Logger,
	db database.Service,
	orders service.OrderService,
	callbacks service.CallbackService,
	records service.RecordService,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	// otelgin goes first so the logger sees the trace id.
	router.Use(otelgin.Middleware(serviceName))
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware())
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", HealthCheck(db))
	router.GET("/metrics", PrometheusHandler())

	orderHandler := NewOrderHandler(orders, records, logger)
	router.POST("/orders", orderHandler.CreateOrder)
	router.POST("/orders/link", orderHandler.CreateLinkOrder)
	router.POST("/orders/:orderId/link", orderHandler.RetryLink)
	router.GET("/orders/:orderId", orderHandler.GetOrder)
	router.GET("/orders/:orderId/callbacks", orderHandler.ListCallbacks)

	callbackHandler := NewCallbackHandler(callbacks, opts.FrontendURL, logger)
	router.POST("/callback", callbackHandler.HandleCallback)

	return router
}

func NewHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
