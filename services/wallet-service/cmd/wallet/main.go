package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/you/hotel-booking/pkg/db"
	"github.com/you/hotel-booking/pkg/logger"
	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/pkg/obs"
	cons "github.com/you/hotel-booking/services/wallet-service/internal/consumer"
	"github.com/you/hotel-booking/services/wallet-service/internal/events"
	"github.com/you/hotel-booking/services/wallet-service/internal/repository"
	"github.com/you/hotel-booking/services/wallet-service/internal/service"
	thttp "github.com/you/hotel-booking/services/wallet-service/internal/transport/http"
)

type Cfg struct {
	PGWalletDSN    string `envconfig:"PG_WALLET_DSN" required:"true"`
	WalletHTTPAddr string `envconfig:"WALLET_HTTP_ADDR" default:":8082"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	RabbitURL      string `envconfig:"RABBIT_URL" required:"true"`
	WalletExchange string `envconfig:"WALLET_EXCHANGE" default:"wallet-events"`
	WalletQueue    string `envconfig:"WALLET_QUEUE" default:"wallet.requests.q"`
	WalletDLX      string `envconfig:"WALLET_DLX" default:"wallet.dlx"`

	// settlement account that receives captured payments
	OwnerUserID string `envconfig:"OWNER_USER_ID" required:"true"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load()
	var cfg Cfg
	must(0, envconfig.Process("", &cfg))

	zlog := logger.New("wallet-service", cfg.LogLevel)
	defer zlog.Sync()

	shutdownTracer := obs.InitTracer("wallet-service")

	gdb := must(db.Open(cfg.PGWalletDSN))
	repo := repository.NewWalletRepo(gdb)
	must(0, repo.Migrate())

	cache := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	walletPub := must(mq.NewPublisher(cfg.RabbitURL, cfg.WalletExchange))
	defer walletPub.Close()

	svc := service.NewWalletSvc(repo, walletPub, cache, cfg.OwnerUserID, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	walletCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.WalletExchange,
		Queue:    cfg.WalletQueue,
		Bindings: []string{events.RKHold, events.RKRelease, events.RKPaymentRequest},
		DLX:      cfg.WalletDLX,
		Tag:      "wallet-service",
	}))
	defer walletCons.Close()

	wc := cons.NewWalletConsumer(svc, walletPub, walletCons, zlog)
	go func() {
		if err := wc.Run(ctx); err != nil {
			zlog.Errorw("consumer stopped", "err", err)
		}
	}()
	zlog.Infow("consumer started", "queue", cfg.WalletQueue)

	r := gin.Default()
	thttp.NewHandler(svc).Register(r)
	go func() {
		zlog.Infow("http listening", "addr", cfg.WalletHTTPAddr)
		if err := r.Run(cfg.WalletHTTPAddr); err != nil {
			zlog.Fatalw("http server", "err", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	_ = shutdownTracer(context.Background())
	zlog.Info("stopped")
}
