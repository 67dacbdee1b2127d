package main

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/detekoi/chatsage-sub000/internal/game"
	"github.com/detekoi/chatsage-sub000/internal/oracle"
	"github.com/detekoi/chatsage-sub000/internal/shared/configs"
	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
	"github.com/detekoi/chatsage-sub000/internal/storage"
	"github.com/detekoi/chatsage-sub000/internal/storage/migrations"
	"github.com/detekoi/chatsage-sub000/internal/transport"
)

func main() {
	godotenv.Load()
	if configs.Envs.LOG_DEBUG == "true" {
		logger.SetDebug()
	}

	if err := migrations.Migrate(configs.Envs.POSTGRES_URL); err != nil {
		logger.Fatalf("Couldn't migrate the trivia schema: %v", err)
	}

	repo, err := storage.NewPostgresRepo(context.Background(), configs.Envs.POSTGRES_URL)
	if err != nil {
		logger.Fatalf("Couldn't connect to postgres: %v", err)
	}
	defer repo.Close()

	oracleClient := oracle.NewClient(configs.Envs.ORACLE_API_KEY, configs.Envs.ORACLE_MODEL)

	var sender transport.Sender
	if configs.Envs.GATEWAY_WS_URL != "" {
		sender = transport.NewGatewaySender(configs.Envs.GATEWAY_WS_URL)
	} else {
		logger.Warning("GATEWAY_WS_URL not set, chat output goes to the log")
		sender = transport.ConsoleSender{}
	}
	queue := transport.NewQueue(sender, 1.5, 3)
	go queue.Run(context.Background())

	engine := game.NewEngine(oracleClient, repo, queue, oracleClient)
	engine.StartTickers()

	if configs.Envs.GIN_MODE == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if configs.Envs.FRONTEND_ORIGIN != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{configs.Envs.FRONTEND_ORIGIN},
			AllowCredentials: true,
			AllowHeaders:     []string{"Content-Type", "Origin"},
		}))
	}

	game.NewHandler(engine).RegisterRoutes(r)

	logger.Info("engine listening on port 5000")
	err = r.Run(":5000")
	logger.Fatalf("Couldn't start server: %v", err)
}
