package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glucomind-ai/assistant/pkg/assistant"
	"github.com/glucomind-ai/assistant/pkg/common/config"
	"github.com/glucomind-ai/assistant/pkg/common/database"
	"github.com/glucomind-ai/assistant/pkg/common/kafka"
	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/knowledge"
	"github.com/glucomind-ai/assistant/pkg/patient"
	"github.com/glucomind-ai/assistant/pkg/prompt"
	"github.com/glucomind-ai/assistant/pkg/reasoning"
	"github.com/glucomind-ai/assistant/pkg/safety"
	"github.com/glucomind-ai/assistant/pkg/statistics"
	"github.com/glucomind-ai/assistant/pkg/terminology"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres(db)

	cache := database.ConnectRedis(cfg)
	if cache != nil {
		defer database.CloseRedis(cache)
	}

	rules, err := safety.LoadRules(cfg.SafetyRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load safety rules")
	}

	index, err := knowledge.LoadIndex(cfg.KnowledgeIndexPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load knowledge index")
	}

	terms, err := terminology.Load(cfg.TerminologyPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load terminology catalog")
	}

	var audit *kafka.AuditProducer
	if cfg.AuditPublishing {
		audit = kafka.NewAuditProducer(cfg.KafkaBrokers, cfg.AuditTopic)
		defer audit.Close()
	}

	repo := patient.NewRepository(db)
	aggregator := patient.NewAggregator(repo)
	statsService := statistics.NewService(statistics.NewSource(cfg.StatisticsFilePath))
	reasoner := reasoning.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.EmbeddingModel, cfg.ReasoningTimeout)
	retriever := knowledge.NewRetriever(index, reasoner, cfg.RelevanceThreshold, cache, cfg.EmbeddingCacheTTL)
	composer := prompt.NewComposer(cfg.ContextBudgetChars)
	validator := safety.NewValidator(rules)

	service := assistant.NewService(
		aggregator, repo, statsService, retriever, terms,
		composer, reasoner, validator, audit,
		assistant.Options{
			RetrievalTopK:  cfg.RetrievalTopK,
			SectionTimeout: cfg.SectionTimeout,
		},
	)

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBody)
			next.ServeHTTP(w, r)
		})
	})
	assistant.NewHandler(service).Register(router)
	patient.NewHandler(aggregator, statsService).Register(router)
	statistics.NewHandler(statsService).Register(router)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Assistant service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start assistant service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down assistant service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Assistant service forced to shutdown")
	}
	logger.Log.Info("Assistant service stopped")
}
