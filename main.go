package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"portfolio-studio-server/modules/common/config"
	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/imageconv"
	"portfolio-studio-server/modules/common/metrics"
	"portfolio-studio-server/modules/common/middleware"
	redisconn "portfolio-studio-server/modules/common/redis"
	"portfolio-studio-server/modules/common/response"
	"portfolio-studio-server/modules/common/storage"
	"portfolio-studio-server/modules/contact"
	"portfolio-studio-server/modules/hub"
	imagegen "portfolio-studio-server/modules/image"
	"portfolio-studio-server/modules/text"
	"portfolio-studio-server/modules/video"
)

const webpQuality = 80

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	m := metrics.New()

	client, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		TextModel:  cfg.GeminiTextModel,
		ImageModel: cfg.GeminiImageModel,
		VideoModel: cfg.GeminiVideoModel,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini client: %v", err)
	}

	// Redis 연결 (선택)
	var rdb *redis.Client
	var jobStore video.Store = video.NewMemoryStore()
	if cfg.RedisEnabled() {
		rdb, err = redisconn.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		jobStore = video.NewRedisStore(rdb)
	} else {
		log.Println("⚠️  REDIS_HOST not set, video jobs are kept in memory")
	}

	// 결과 영상 저장소
	var blobs storage.BlobStore
	var memoryBlobs *storage.MemoryBlobStore
	if cfg.ArtifactStore == config.ArtifactStoreSupabase {
		blobs = storage.NewSupabaseBlobStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseVideoBucket)
	} else {
		memoryBlobs = storage.NewMemoryBlobStore("/blobs", 32)
		blobs = memoryBlobs
	}

	var contactStore contact.MessageStore = contact.LogStore{}
	if cfg.SupabaseEnabled() {
		supabaseStore, err := contact.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.ContactTable)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		contactStore = supabaseStore
	} else {
		log.Println("⚠️  Supabase not configured, contact messages are only logged")
	}

	// The hub needs the service for snapshots and the service publishes through the hub.
	var videoService *video.Service
	statusHub := hub.New(func(ctx context.Context, jobID string) (interface{}, error) {
		snapshot, err := videoService.Snapshot(ctx, jobID)
		if errors.Is(err, video.ErrJobNotFound) {
			return nil, fmt.Errorf("%w: %s", hub.ErrUnknownTopic, jobID)
		}
		return snapshot, err
	})

	poller := video.NewPoller(client, video.NewFetcher(client.APIKey(), nil), blobs, video.PollerConfig{
		Interval: cfg.VideoPollInterval,
		MaxWait:  cfg.VideoMaxWait,
		Metrics:  m,
	})
	deps := video.Deps{
		Generator:   client,
		Store:       jobStore,
		Poller:      poller,
		Notifier:    statusHub,
		Metrics:     m,
		BaseContext: gctx,
	}
	if rdb != nil {
		deps.Dispatcher = video.NewQueue(rdb)
	}
	videoService = video.NewService(deps)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(gctx)
	statusHub.StartCleanup(gctx)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(middleware.EnableCORS)
	r.Use(m.Middleware)

	r.HandleFunc("/", healthCheck(client, rdb)).Methods("GET")
	r.HandleFunc("/health", healthCheck(client, rdb)).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")
	statusHub.RegisterRoutes(r)
	if memoryBlobs != nil {
		memoryBlobs.RegisterRoutes(r)
	}

	api := r.NewRoute().Subrouter()
	api.Use(limiter.Middleware)
	text.NewHandler(text.NewService(client, m)).RegisterRoutes(api)
	imagegen.NewHandler(imagegen.NewService(client, imageconv.NewWebPConverter(webpQuality), m)).RegisterRoutes(api)
	video.NewHandler(videoService).RegisterRoutes(api)
	contact.NewHandler(contact.NewService(contactStore)).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Printf("🚀 Portfolio Studio Server starting on port %s", cfg.Port)
		log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws?job={jobId}", cfg.Port)
		log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
		log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Redis Queue Worker 시작 (백그라운드)
	if rdb != nil {
		worker := video.NewWorker(rdb, videoService)
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server error: %v", err)
	}

	videoService.Wait()
	statusHub.Close()
	log.Println("👋 Server stopped")
}

// healthCheck - GET /, GET /health
func healthCheck(client *gemini.Client, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				redisStatus = "unreachable"
			}
		}

		response.JSON(w, http.StatusOK, map[string]interface{}{
			"status":            "healthy",
			"service":           "portfolio-studio-server",
			"geminiInitialized": client.Initialized(),
			"redis":             redisStatus,
		})
	}
}
