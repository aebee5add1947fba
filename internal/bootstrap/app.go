package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"rulebook-assistant/internal/ai"
	"rulebook-assistant/internal/app"
	"rulebook-assistant/internal/cache"
	"rulebook-assistant/internal/chunker"
	"rulebook-assistant/internal/config"
	"rulebook-assistant/internal/model"
	"rulebook-assistant/internal/pkg/pdfextract"
	mysqlClient "rulebook-assistant/internal/platform/mysql"
	rabbitmqClient "rulebook-assistant/internal/platform/rabbitmq"
	redisClient "rulebook-assistant/internal/platform/redis"
	"rulebook-assistant/internal/repository"
	"rulebook-assistant/internal/worker"
)

type App struct {
	Config      *config.Config
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	QAWorker    *worker.QAPersistWorker
	AnswerCache *cache.AnswerCache

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Rulebook{}, &model.Chunk{}, &model.QARecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	recordRepo := repository.NewQARecordRepository(mysqlDB)
	qaWorker := worker.NewQAPersistWorker(mqConn, recordRepo, cfg.RabbitMQ.QAPersistQueue)
	if err := qaWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start qa persist worker failed: %w", err)
	}

	answerCache := cache.NewAnswerCache(redisCli, time.Duration(cfg.RAG.AnswerTTLSeconds)*time.Second)

	a := &App{
		Config:      cfg,
		MySQL:       mysqlDB,
		Redis:       redisCli,
		MQConn:      mqConn,
		QAWorker:    qaWorker,
		AnswerCache: answerCache,
		StartedAt:   time.Now(),
	}
	a.preloadRulebooks(ctx)
	return a, nil
}

// preloadRulebooks ingests PDFs from the configured library directory as
// shared rulebooks, in the background so startup stays fast.
func (a *App) preloadRulebooks(ctx context.Context) {
	dir := a.Config.Library.PreloadDir
	if dir == "" {
		return
	}

	library := app.NewLibraryService(
		repository.NewRulebookRepository(a.MySQL),
		repository.NewChunkRepository(a.MySQL),
		ai.NewOpenAICompatibleClient(),
		ai.EmbeddingConfig{
			BaseURL: a.Config.RAG.EmbeddingBaseURL,
			APIKey:  a.Config.RAG.EmbeddingAPIKey,
			Model:   a.Config.RAG.EmbeddingModel,
		},
		chunker.New(a.Config.RAG.ChunkSize, a.Config.RAG.ChunkOverlap),
		a.AnswerCache,
	)

	go library.PreloadDir(ctx, dir, func(path string) (string, int, error) {
		f, err := os.Open(path)
		if err != nil {
			return "", 0, err
		}
		defer f.Close()
		res, err := pdfextract.Extract(f)
		if err != nil {
			return "", 0, err
		}
		return res.Text, res.Pages, nil
	})
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.QAWorker != nil {
		a.QAWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
