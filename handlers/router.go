package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/ksuid"

	"mp3nema/config"
	"mp3nema/metrics"
)

const (
	Version = "1.0.0"

	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// NewRouter wires the API routes, CORS and the Prometheus endpoint.
func NewRouter(cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Instrument(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{
		"Content-Disposition", RequestIDHeader,
		"X-Mp3nema-Frames", "X-Mp3nema-Blocks", "X-Mp3nema-Block-Size",
		"X-Mp3nema-OOB-Bytes", "X-Mp3nema-PSNR", "X-Mp3nema-Transparent",
	}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	stegoHandler := NewStegoHandler(cfg, m)

	// API Routes
	api := router.Group("/api/v1")
	{
		api.GET("/health", stegoHandler.HealthCheck)
		api.POST("/analyze", stegoHandler.Analyze)
		api.POST("/inject", stegoHandler.Inject)
		api.POST("/extract", stegoHandler.Extract)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

// RequestID tags every request with a KSUID, reusing the client's
// X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = ksuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Instrument counts requests and logs one line per request.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		m.RecordHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(status))
		log.Printf("[%s] %s %s %d %s", c.GetString(RequestIDKey), c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}
