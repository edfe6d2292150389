package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/judge-dispatch.net/internal/adapter/crypto"
	"gitlab.com/judge-dispatch.net/internal/adapter/filelink"
	"gitlab.com/judge-dispatch.net/internal/adapter/postgres/judgeclientrepo"
	"gitlab.com/judge-dispatch.net/internal/adapter/redis/sessionport"
	"gitlab.com/judge-dispatch.net/internal/adapter/redis/taskjournal"
	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgeclient"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/gateway"
	"gitlab.com/judge-dispatch.net/internal/gateway/connectionmanager"
	logger2 "gitlab.com/judge-dispatch.net/internal/global/logger"
	http2 "gitlab.com/judge-dispatch.net/internal/http"
	"gitlab.com/judge-dispatch.net/internal/schedulerengine"
	"gitlab.com/judge-dispatch.net/internal/tracing"
)

const serviceVersion = "1.0.0"

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sysCfg := config.NewSystemConfig()
	logger2.Reload(sysCfg.DebugMode)
	logger := logger2.Logger
	defer logger.Sync()

	logger2.Info("Starting judge dispatch service", "service", sysCfg.ServiceName)

	if sysCfg.TracingCfg.Enabled {
		if err := tracing.Init(sysCfg.ServiceName, serviceVersion, sysCfg.TracingCfg.Output); err != nil {
			logger.Error("Failed to initialise tracing", "error", err)
		}
	}

	ctxBg := context.Background()

	db, err := setupDatabase(sysCfg.PostgresConfig)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()

	// SECONDARY PORTS
	judgeClientRepo := judgeclientrepo.NewJudgeClientRepository(db, logger, "public")
	if err := judgeClientRepo.EnsureTableExists(ctxBg); err != nil {
		panic(err)
	}
	sessionPort := sessionport.NewSessionRepository(redisClient, logger)
	var journal secondary.TaskJournal
	if sysCfg.JudgeQueueCfg.Durable {
		journal = taskjournal.NewJournal(redisClient, logger)
	}

	//primary ports
	jwtProvider := crypto.NewJWTService(sysCfg.JwtConfig)
	fileService := filelink.NewService(sysCfg.FileLinkCfg, jwtProvider, logger)

	//services
	judgeClientSvc := judgeclient.NewJudgeClientService(judgeClientRepo, sessionPort, crypto.GenerateJudgeClientKey, logger)
	queueSvc := judgequeue.NewJudgeQueueService(sysCfg.JudgeQueueCfg, journal, logger)
	if restored, err := queueSvc.Restore(ctxBg); err != nil {
		logger.Error("Failed to restore journaled tasks", "error", err)
	} else if restored > 0 {
		logger.Info("Restored journaled tasks", "count", restored)
	}

	//server
	connectionMgr := connectionmanager.NewConnectionManager(logger)
	gatewayServer := gateway.NewGatewayServer(sysCfg.GatewayCfg, judgeClientSvc, queueSvc, fileService, connectionMgr, logger)
	judgeClientSvc.SetDisconnectNotifier(gatewayServer.DisconnectJudgeClient)

	serviceProvider := http2.NewServiceProvider(judgeClientSvc, queueSvc, jwtProvider, connectionMgr)
	httpServer := http2.NewServer(sysCfg.HttpCfg.Port, sysCfg.ServiceName, *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	httpServer.Start(ctxBg)
	if err := gatewayServer.Start(); err != nil {
		panic(err)
	}
	reporterCtx, stopReporter := context.WithCancel(ctxBg)
	reporter := schedulerengine.NewQueueReporter(sysCfg.JudgeQueueCfg, queueSvc, connectionMgr.Count, logger)
	reporter.Start(reporterCtx)

	<-quit
	logger.Info("Shutting down server...")
	stopReporter()
	reporter.Wait()

	ctx, cancel := context.WithTimeout(ctxBg, 5*time.Second)
	defer cancel()
	if err := gatewayServer.Stop(ctx); err != nil {
		logger.Error("Failed to stop judge gateway", "error", err)
	}
	if err := httpServer.Stop(ctx); err != nil {
		logger.Error("Failed to stop http server", "error", err)
	}
	queueSvc.Close()
	if err := tracing.Shutdown(ctx); err != nil {
		logger.Error("Failed to flush traces", "error", err)
	}

	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
