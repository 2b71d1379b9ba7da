package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"visme-go/internal/handlers"
	"visme-go/internal/models"
)

// Options carries what the router needs from the rest of the application.
type Options struct {
	Service  handlers.DetectionService
	Profiles *models.FilterProfiles
	Health   map[string]handlers.Pinger
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// DetectRateLimit is the number of detection requests per minute a
	// client may make; zero disables limiting.
	DetectRateLimit uint
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
	})
}

func Setup(log *zap.Logger, opts Options) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/health", handlers.NewHealthHandler(opts.Health).Health)

	// Handlers and routes
	trialHandler := handlers.NewTrialHandler(log, opts.Service)
	detectionHandler := handlers.NewDetectionHandler(log, opts.Service, opts.Profiles)
	statisticsHandler := handlers.NewStatisticsHandler(log, opts.Service)

	limiter := func(c *gin.Context) { c.Next() }
	if opts.DetectRateLimit > 0 {
		rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Minute,
			Limit: opts.DetectRateLimit,
		})
		limiter = ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
			ErrorHandler: errorHandler,
			KeyFunc:      keyFunc,
		})
	}

	router.POST("/trials", trialHandler.Create)

	trialRoutes := router.Group("/trials/:id")
	trialRoutes.Use(TrialIDRequired())
	{
		trialRoutes.GET("", trialHandler.Get)
		trialRoutes.POST("/microsaccades", limiter, detectionHandler.DetectMicrosaccades)
		trialRoutes.GET("/microsaccades", detectionHandler.LatestMicrosaccades)
		trialRoutes.POST("/saccades", limiter, detectionHandler.DetectRegularSaccades)
		trialRoutes.GET("/saccades", detectionHandler.LatestSaccades)
		trialRoutes.GET("/statistics", statisticsHandler.Show)
	}

	return router
}
