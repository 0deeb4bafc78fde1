package main

import (
	"context"
	"log"

	"anoa.com/yogaschool/internal/bootstrap"
	"anoa.com/yogaschool/internal/config"
	"anoa.com/yogaschool/internal/server"
	"anoa.com/yogaschool/pkg/database"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var db *gorm.DB
	if cfg.StoreDriver == config.StoreDriverPostgres {
		db, err = database.Connect(cfg.PostgresDSN(), cfg.IsProduction())
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		if err := bootstrap.Migrate(db); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	} else {
		log.Println("STORE_DRIVER=memory, data is lost on restart")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	if redisClient == nil {
		log.Println("REDIS_URL not set, rate limiting disabled")
	}

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	log.Printf("Server running on port %s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
