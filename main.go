package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"visme-go/internal/cache"
	"visme-go/internal/config"
	"visme-go/internal/database"
	"visme-go/internal/handlers"
	logger "visme-go/internal/logging"
	"visme-go/internal/models"
	"visme-go/internal/repository"
	"visme-go/internal/router"
	"visme-go/internal/services"
)

func main() {
	// Load configuration
	v, err := config.Load(".")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	conf := config.Current()

	// Initialize Logger
	log, err := logger.Init(".", conf.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	config.Watch(v, log)
	gin.SetMode(conf.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := database.Open(conf.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	health := map[string]handlers.Pinger{"database": sqlDB.PingContext}

	// Result cache is optional
	var resultCache services.ResultCache
	if conf.Redis.Enabled {
		rc, err := cache.New(ctx, conf.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		resultCache = rc
		health["cache"] = rc.Ping
		log.Info("Result cache enabled", zap.String("addr", conf.Redis.Addr), zap.Duration("ttl", conf.Redis.TTL))
	}

	// Named filter profiles
	var profiles *models.FilterProfiles
	if conf.Detection.ProfilesFile != "" {
		profiles, err = models.LoadFilterProfiles(conf.Detection.ProfilesFile)
		if err != nil {
			log.Fatal("Failed to load filter profiles", zap.Error(err))
		}
		log.Info("Filter profiles loaded", zap.Int("count", len(profiles.Profiles)))
	}

	inst := services.NewInstrumentation(prometheus.DefaultRegisterer)
	detectionService := services.NewDetectionService(log, repository.NewGormStore(db), resultCache, inst)

	scheduler := services.NewScheduler(log, detectionService, conf.Detection.RerunInterval)
	scheduler.Start(ctx)

	r := router.Setup(log, router.Options{
		Service:         detectionService,
		Profiles:        profiles,
		Health:          health,
		DetectRateLimit: conf.Server.DetectRateLimit,
	})

	// Start the Gin server
	port := ":" + conf.Server.Port
	ln, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatal("Failed to listen", zap.String("addr", port), zap.Error(err))
	}
	log.Info("Server listening on http://localhost" + port)
	if err := serve(ctx, log, &http.Server{Handler: r}, ln, shutdownTimeout); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
	log.Info("Server stopped")
}

const shutdownTimeout = 10 * time.Second

// serve runs srv on ln until ctx is done, then shuts it down, giving
// in-flight requests up to timeout to finish.
func serve(ctx context.Context, log *zap.Logger, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
