package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/you/hotel-booking/pkg/db"
	"github.com/you/hotel-booking/pkg/logger"
	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/pkg/obs"
	cons "github.com/you/hotel-booking/services/booking-service/internal/consumer"
	"github.com/you/hotel-booking/services/booking-service/internal/events"
	"github.com/you/hotel-booking/services/booking-service/internal/integrations/hotelservice"
	"github.com/you/hotel-booking/services/booking-service/internal/integrations/userservice"
	"github.com/you/hotel-booking/services/booking-service/internal/repository"
	"github.com/you/hotel-booking/services/booking-service/internal/service"
	thttp "github.com/you/hotel-booking/services/booking-service/internal/transport/http"
)

type Cfg struct {
	PGBookingDSN    string `envconfig:"PG_BOOKING_DSN" required:"true"`
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8080"`
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	HotelServiceURL string `envconfig:"HOTEL_SERVICE_URL" default:"http://hotel-service:8081"`
	UserServiceURL  string `envconfig:"USER_SERVICE_URL" default:"http://user-service:8083"`

	RabbitURL        string `envconfig:"RABBIT_URL" required:"true"`
	RequestExchange  string `envconfig:"BOOKING_REQUEST_EXCHANGE" default:"booking-requests"`
	WalletExchange   string `envconfig:"WALLET_EXCHANGE" default:"wallet-events"`
	EventExchange    string `envconfig:"BOOKING_EVENTS_EXCHANGE" default:"booking-events"`
	RequestQueue     string `envconfig:"BOOKING_REQUEST_QUEUE" default:"booking.requests.q"`
	WalletEventQueue string `envconfig:"BOOKING_WALLET_QUEUE" default:"booking.wallet-events.q"`
	BookingDLX       string `envconfig:"BOOKING_DLX" default:"booking.dlx"`

	// provisional bookings older than ReapAfter are failed and their holds
	// released
	ReapAfter    time.Duration `envconfig:"REAP_AFTER" default:"10m"`
	ReapInterval time.Duration `envconfig:"REAP_INTERVAL" default:"1m"`
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

	zlog := logger.New("booking-service", cfg.LogLevel)
	defer zlog.Sync()

	shutdownTracer := obs.InitTracer("booking-service")

	gdb := must(db.Open(cfg.PGBookingDSN))
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	cache := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	requestPub := must(mq.NewPublisher(cfg.RabbitURL, cfg.RequestExchange))
	defer requestPub.Close()
	walletPub := must(mq.NewPublisher(cfg.RabbitURL, cfg.WalletExchange))
	defer walletPub.Close()
	eventPub := must(mq.NewPublisher(cfg.RabbitURL, cfg.EventExchange))
	defer eventPub.Close()

	hotels := hotelservice.New(cfg.HotelServiceURL)
	users := userservice.New(cfg.UserServiceURL)

	svc := service.NewBookingSvc(repo, requestPub, walletPub, eventPub, hotels, users, cache, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requestCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.RequestExchange,
		Queue:    cfg.RequestQueue,
		Bindings: []string{events.RKBookingRequest, events.RKBookingCancel},
		DLX:      cfg.BookingDLX,
		Tag:      "booking-service-requests",
	}))
	defer requestCons.Close()
	walletCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.WalletExchange,
		Queue:    cfg.WalletEventQueue,
		Bindings: []string{
			events.RKWalletHoldConfirmed, events.RKWalletHoldFailed,
			events.RKWalletPaymentOK, events.RKWalletPaymentFailed,
		},
		DLX: cfg.BookingDLX,
		Tag: "booking-service-wallet",
	}))
	defer walletCons.Close()

	rc := cons.NewRequestConsumer(svc, requestCons, zlog)
	go func() {
		if err := rc.Run(ctx); err != nil {
			zlog.Errorw("request consumer stopped", "err", err)
		}
	}()
	wc := cons.NewWalletConsumer(svc, walletCons, zlog)
	go func() {
		if err := wc.Run(ctx); err != nil {
			zlog.Errorw("wallet consumer stopped", "err", err)
		}
	}()
	zlog.Infow("consumers started", "requestQueue", cfg.RequestQueue, "walletQueue", cfg.WalletEventQueue)

	reaper := service.NewReaper(repo, walletPub, cfg.ReapAfter, cfg.ReapInterval, zlog)
	go reaper.Run(ctx)

	r := gin.Default()
	thttp.NewHandler(svc).Register(r)
	go func() {
		zlog.Infow("http listening", "addr", cfg.BookingHTTPAddr)
		if err := r.Run(cfg.BookingHTTPAddr); err != nil {
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
