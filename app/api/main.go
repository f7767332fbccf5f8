package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/x-xyz/cloutledger/base/amount"
	"github.com/x-xyz/cloutledger/base/config"
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/database/mongoclient"
	"github.com/x-xyz/cloutledger/base/database/redisclient"
	"github.com/x-xyz/cloutledger/base/goroutine"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	bValidator "github.com/x-xyz/cloutledger/base/validator"
	"github.com/x-xyz/cloutledger/domain/keys"
	mmiddleware "github.com/x-xyz/cloutledger/middleware"
	"github.com/x-xyz/cloutledger/service/cache"
	"github.com/x-xyz/cloutledger/service/cache/provider"
	"github.com/x-xyz/cloutledger/service/cache/provider/compound"
	"github.com/x-xyz/cloutledger/service/cache/provider/primitive"
	cacheRedis "github.com/x-xyz/cloutledger/service/cache/provider/redis"
	"github.com/x-xyz/cloutledger/service/executor"
	"github.com/x-xyz/cloutledger/service/query"
	"github.com/x-xyz/cloutledger/service/redis"
	escrow_delivery "github.com/x-xyz/cloutledger/stores/escrow/delivery/http"
	escrow_repository "github.com/x-xyz/cloutledger/stores/escrow/repository"
	escrow_usecase "github.com/x-xyz/cloutledger/stores/escrow/usecase"
	hc_delivery "github.com/x-xyz/cloutledger/stores/healthcheck/delivery/http"
	hc_repo "github.com/x-xyz/cloutledger/stores/healthcheck/repository"
	hc_usecase "github.com/x-xyz/cloutledger/stores/healthcheck/usecase"
	loyalty_delivery "github.com/x-xyz/cloutledger/stores/loyalty/delivery/http"
	loyalty_repository "github.com/x-xyz/cloutledger/stores/loyalty/repository"
	loyalty_usecase "github.com/x-xyz/cloutledger/stores/loyalty/usecase"
	rewards_delivery "github.com/x-xyz/cloutledger/stores/rewards/delivery/http"
	rewards_repository "github.com/x-xyz/cloutledger/stores/rewards/repository"
	rewards_usecase "github.com/x-xyz/cloutledger/stores/rewards/usecase"
	staking_delivery "github.com/x-xyz/cloutledger/stores/staking/delivery/http"
	staking_repository "github.com/x-xyz/cloutledger/stores/staking/repository"
	staking_usecase "github.com/x-xyz/cloutledger/stores/staking/usecase"
	token_delivery "github.com/x-xyz/cloutledger/stores/token/delivery/http"
	token_repository "github.com/x-xyz/cloutledger/stores/token/repository"
	token_usecase "github.com/x-xyz/cloutledger/stores/token/usecase"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Staking, escrow and loyalty ledger",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger http api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default searches ./config.yaml and infra/configs)")

	f := serveCmd.Flags()
	f.String("log-level", "", "log level")
	f.String("address", "", "listen address")
	f.String("storage", "", "storage backend, mongo or memory")
	f.String("mongo-uri", "", "mongo connection uri")
	f.String("redis-uri", "", "redis address, empty keeps the cache in process")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cfg config.Config) error {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.Debug {
		log.Log().Info("Service RUN on DEBUG mode")
	}
	metrics.Setup(metrics.Config{
		Host: cfg.Metrics.Host,
		Port: cfg.Metrics.Port,
		Env:  cfg.Metrics.Env,
		App:  cfg.Metrics.App,
	})

	context := ctx.Background()

	// storage
	var (
		q           query.Mongo
		mongoClient *mongoclient.Client
	)
	switch cfg.Storage {
	case config.StorageMongo:
		context.Info("init mongo")
		mongoClient = mongoclient.MustConnect(mongoclient.Options{
			URI:                cfg.Mongo.URI,
			AuthDBName:         cfg.Mongo.AuthDBName,
			DBName:             cfg.Mongo.DBName,
			TLS:                cfg.Mongo.EnableSSL,
			PoolSizeMultiplier: cfg.Mongo.PoolMultiplier,
		})
		q = query.New(mongoClient, metrics.New("query"))
		if cfg.Mongo.CheckIndex {
			if err := ensureIndexes(context, q); err != nil {
				return err
			}
		}
	default:
		context.Warn("running on in-memory storage, state is lost on exit")
		q = query.NewMemory()
	}

	// cache layers, nearest first
	var cacheProvider provider.Provider = primitive.NewPrimitive("local", cfg.Cache.LocalSizeMB)
	if cfg.Redis.URI != "" {
		context.Info("init redis cache")
		pool := redisclient.MustConnect(redisclient.Options{
			Addr:           cfg.Redis.URI,
			Password:       cfg.Redis.Password,
			PoolMultiplier: cfg.Redis.PoolMultiplier,
			Retry:          true,
		})
		redisCache := redis.New(cfg.Redis.Name, metrics.New(cfg.Redis.Name), &redis.Pools{Src: pool})
		cacheProvider = compound.NewCompound(cacheProvider, cacheRedis.NewRedis(redisCache))
	}
	receipts := cache.New(cache.ServiceConfig{
		Ttl:   cfg.Cache.ReceiptTTL,
		Pfx:   keys.PfxReceipt,
		Cache: cacheProvider,
	})

	// construct repository, usecase and delivery
	ex := executor.New(q, metrics.New("executor"))
	token := token_usecase.New(token_repository.New(q), ex)
	rewards := rewards_usecase.New(&rewards_usecase.RewardsUseCaseCfg{
		Repo:     rewards_repository.New(q),
		TokenUC:  token,
		Executor: ex,
		Metrics:  metrics.New("rewards"),
	})
	loyalty := loyalty_usecase.New(loyalty_repository.New(q), ex, metrics.New("loyalty"))
	staking := staking_usecase.New(&staking_usecase.StakingUseCaseCfg{
		Repo:      staking_repository.New(q),
		TokenUC:   token,
		RewardsUC: rewards,
		Executor:  ex,
		Metrics:   metrics.New("staking"),
	})
	escrow := escrow_usecase.New(&escrow_usecase.EscrowUseCaseCfg{
		Repo:                   escrow_repository.New(q),
		TokenUC:                token,
		RewardsUC:              rewards,
		LoyaltyUC:              loyalty,
		Executor:               ex,
		Metrics:                metrics.New("escrow"),
		ReceiptCache:           receipts,
		TreasuryDestination:    cfg.Escrow.TreasuryDestination.ToLower(),
		MarketplaceDestination: cfg.Escrow.MarketplaceDestination.ToLower(),
	})
	hc := hc_usecase.New(hc_repo.New(mongoClient, cacheProvider))

	// init echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Timeout
	e.Server.WriteTimeout = cfg.Timeout
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middL.CORS)
	e.Validator = bValidator.NewCustomValidator(bValidator.New())

	hc_delivery.New(e, hc)
	token_delivery.New(e, middL, token, amount.NewFormatter(token), cfg.Token.Faucet)
	rewards_delivery.New(e, middL, rewards)
	staking_delivery.New(e, middL, staking)
	escrow_delivery.New(e, middL, escrow)
	loyalty_delivery.New(e, middL, loyalty)

	served := goroutine.Go(func() error {
		return e.Start(cfg.ServerAddress)
	}, goroutine.WithName("http"))

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Log().WithField("signal", sig).Info("received signal")
	case err := <-served:
		if err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
			return err
		}
	}
	c, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(c); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
		return err
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(c); err != nil {
			log.Log().WithField("err", err).Warn("mongo disconnect failed")
		}
	}
	log.Log().Info("shutdown server successfully")
	return nil
}
