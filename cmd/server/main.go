package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/datfullstacks/mln3/internal/config"
	"github.com/datfullstacks/mln3/internal/database"
	"github.com/datfullstacks/mln3/internal/handlers"
	"github.com/datfullstacks/mln3/internal/logging"
	"github.com/datfullstacks/mln3/internal/quizbank"
	"github.com/datfullstacks/mln3/internal/realtime"
	"github.com/datfullstacks/mln3/internal/services"
	"github.com/datfullstacks/mln3/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg)

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	st := store.New(db)
	hub := realtime.NewHub()

	// One fan-out backend per deployment: the valkey broadcast channel when
	// an address is configured, the in-process hub otherwise.
	var pub realtime.Publisher = hub
	if cfg.ValkeyAddr != "" {
		backend, err := realtime.NewValkeyBackend(cfg.ValkeyAddr)
		if err != nil {
			log.Error("valkey connect failed", "addr", cfg.ValkeyAddr, "error", err)
			return
		}
		defer backend.Close()
		pub = backend
		log.Info("fan-out backend: valkey", "addr", cfg.ValkeyAddr)
	} else {
		log.Info("fan-out backend: in-process hub")
	}

	rt := realtime.NewBroadcaster(st, pub)
	sessionService := services.NewSessionService(st, rt).
		WithDefaults(cfg.SessionMaxPlayers, cfg.SessionTTLMinutes)
	leaderboardService := services.NewLeaderboardService(st, rt)
	bank := quizbank.NewStore(cfg.QuizBankPath)

	sessionHandler := handlers.NewSessionHandler(sessionService, leaderboardService)
	questionHandler := handlers.NewQuestionHandler(bank)
	wsHandler := handlers.NewWSHandler(hub, st, rt, leaderboardService, log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws/session/:code", wsHandler.HandleSession)

	api := r.Group("/api/v1")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("", sessionHandler.ListSessions)
			sessions.POST("/:code/join", sessionHandler.JoinSession)
			sessions.POST("/:code/start", sessionHandler.StartSession)
			sessions.POST("/:code/end", sessionHandler.EndSession)
			sessions.GET("/:code/state", sessionHandler.GetState)
			sessions.GET("/:code/leaderboard", sessionHandler.GetLeaderboard)
			sessions.POST("/:code/score", sessionHandler.SubmitScore)
		}

		questions := api.Group("/questions")
		{
			questions.GET("", questionHandler.GetQuestions)
			questions.POST("", questionHandler.AppendQuestion)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		return
	}
	log.Info("server stopped")
}
