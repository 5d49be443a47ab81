package main

import (
	"log"
	"os"
	"time"

	"learnassist/internal/api"
	"learnassist/internal/auth"
	"learnassist/internal/cache"
	"learnassist/internal/completion"
	"learnassist/internal/config"
	"learnassist/internal/history"
	"learnassist/internal/platform"
	"learnassist/internal/policy"
	"learnassist/internal/render"
	"learnassist/internal/service/assistant"
	"learnassist/internal/storage"
	"learnassist/internal/trial"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("LEARNING_ASSISTANT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("LEARNING_ASSISTANT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	cacheClient, err := cache.NewClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, continuing without cache: %v", err)
		cacheClient = nil
	} else {
		defer cacheClient.Close()
	}

	directory := platform.NewSQLDirectory(db)
	trials := trial.NewManager(db, dbType, cfg.Trial, trial.DisabledAssigner{})
	engine := policy.NewEngine(trials)
	renderer := render.NewRenderer(
		cfg.Assistant.PromptTemplate,
		directory,
		cacheClient,
		time.Duration(cfg.Assistant.CacheTTLSeconds)*time.Second,
	)
	completionClient := completion.NewClient(cfg.Completion)
	store := history.NewStore(db)

	assistantService := assistant.NewService(db, dbType, cfg, engine, trials, renderer, completionClient, store, directory)
	authService := auth.NewService(db, cacheClient, 24*time.Hour)

	scheduler := cron.New()
	retention := history.NewRetention(db, cfg.Retention)
	if err := retention.Schedule(scheduler, cfg.Retention.CronSpec); err != nil {
		log.Fatalf("schedule retention job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handlers := api.NewHandler(assistantService, authService)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
