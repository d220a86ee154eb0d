package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"dealhub/internal/cache"
	"dealhub/internal/config"
	"dealhub/internal/consumer"
	"dealhub/internal/database"
	"dealhub/internal/handler"
	"dealhub/internal/redis"
	"dealhub/internal/repository"
	"dealhub/internal/service/auth"
	"dealhub/internal/service/order"
	"dealhub/internal/service/seckill"
	"dealhub/internal/service/shop"
	"dealhub/internal/service/voucher"
	"dealhub/internal/utils"
	"dealhub/pkg/idgen"
	"dealhub/pkg/log"
	"dealhub/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("DEALHUB_CONFIG"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	if err := log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.WithError(err).Fatal("Failed to initialize logger")
	}

	config.WatchConfig(nil)

	if err := database.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := database.AutoMigrate(database.GetDB()); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	if err := database.CreateIndexes(database.GetDB()); err != nil {
		log.WithError(err).Warn("Failed to create indexes")
	}

	if err := redis.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	rdb := redis.GetClient()

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := redis.LoadScripts(startCtx, rdb); err != nil {
		startCancel()
		log.WithError(err).Fatal("Failed to load admission script")
	}
	startCancel()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	shopRepo := repository.NewShopRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Cache layer with its background rebuild pool
	rebuildPool := cache.NewRebuildPool(cfg.Cache.RebuildWorkers)
	defer rebuildPool.Stop()

	localTTL := time.Duration(0)
	if cfg.Cache.Local.Enabled {
		localTTL = cfg.Cache.Local.TTL
	}
	cacheClient := cache.NewClient(rdb, rebuildPool, cache.Options{
		NullTTL:      cfg.Cache.NullTTL,
		JitterRatio:  cfg.Cache.TTLJitterRatio,
		RebuildLease: cfg.Cache.RebuildLease,
		LocalTTL:     localTTL,
	})

	if cfg.Cache.Bloom.Enabled {
		cacheClient.EnableBloomFilter(cfg.Cache.Bloom.Capacity, cfg.Cache.Bloom.FPRate)
		seedCacheFilter(cacheClient, shopRepo, voucherRepo)
	}

	idGenerator := idgen.NewGenerator(rdb)

	orderQueue := queue.NewStreamQueue(rdb, queue.StreamQueueConfig{
		Stream:   cfg.Seckill.Stream,
		Group:    cfg.Seckill.Group,
		Consumer: cfg.Seckill.Consumer,
		Block:    cfg.Seckill.BlockTimeout,
	})
	groupCtx, groupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := orderQueue.EnsureGroup(groupCtx); err != nil {
		groupCancel()
		log.WithError(err).Fatal("Failed to create consumer group")
	}
	groupCancel()

	jwtManager := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Expire, cfg.Security.JWT.Issuer)

	authService := auth.NewAuthService(userRepo, jwtManager)
	shopService := shop.NewShopService(shopRepo, cacheClient)
	voucherService := voucher.NewVoucherService(voucherRepo, cacheClient)
	orderService := order.NewOrderService(db, orderRepo, voucherRepo)
	seckillService := seckill.NewSeckillService(voucherRepo, idGenerator, rdb, cfg.Seckill.Stream)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	orderConsumer := consumer.NewOrderConsumer(orderQueue, orderService, rdb, consumer.Config{
		LockLease:   cfg.Seckill.LockLease,
		LockRetries: cfg.Seckill.LockRetries,
		LockBackoff: cfg.Seckill.LockBackoff,
		IdleOnError: cfg.Seckill.IdleOnError,
	})
	orderConsumer.Start(consumerCtx)

	router := setupRouter(cfg, jwtManager,
		handler.NewAuthHandler(authService),
		handler.NewShopHandler(shopService),
		handler.NewVoucherHandler(voucherService),
		handler.NewSeckillHandler(seckillService),
		handler.NewOrderHandler(orderService),
	)

	server := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": cfg.Server.GetAddr(),
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Stop the consumer after the server so in-flight purchases still get
	// their queue entries drained.
	consumerCancel()
	orderConsumer.Stop()

	log.Info("Server exited")
}

// seedCacheFilter registers every existing entity id so the penetration
// filter does not reject ids that are real but were never cached yet. New
// ids reach the filter through cache writes and voucher creation.
func seedCacheFilter(c *cache.Client, shops repository.ShopRepository, vouchers repository.VoucherRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shopIDs, err := shops.ListIDs(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to seed shop ids into the cache filter")
	}
	for _, id := range shopIDs {
		c.AddToFilter(redis.CacheShopKey + strconv.FormatUint(id, 10))
	}

	voucherIDs, err := vouchers.ListIDs(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to seed voucher ids into the cache filter")
	}
	for _, id := range voucherIDs {
		c.AddToFilter(redis.CacheVoucherKey + strconv.FormatUint(id, 10))
	}

	log.Infof("Cache penetration filter seeded with %d shop and %d voucher ids", len(shopIDs), len(voucherIDs))
}
