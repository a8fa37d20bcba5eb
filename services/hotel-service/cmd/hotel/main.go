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
	cons "github.com/you/hotel-booking/services/hotel-service/internal/consumer"
	"github.com/you/hotel-booking/services/hotel-service/internal/events"
	"github.com/you/hotel-booking/services/hotel-service/internal/repository"
	"github.com/you/hotel-booking/services/hotel-service/internal/service"
	thttp "github.com/you/hotel-booking/services/hotel-service/internal/transport/http"
)

type Cfg struct {
	PGHotelDSN    string `envconfig:"PG_HOTEL_DSN" required:"true"`
	HotelHTTPAddr string `envconfig:"HOTEL_HTTP_ADDR" default:":8081"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange string `envconfig:"BOOKING_EVENTS_EXCHANGE" default:"booking-events"`
	HotelQueue      string `envconfig:"HOTEL_BOOKING_QUEUE" default:"hotel.booking.q"`
	HotelDLX        string `envconfig:"HOTEL_DLX" default:"hotel.dlx"`
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

	zlog := logger.New("hotel-service", cfg.LogLevel)
	defer zlog.Sync()

	shutdownTracer := obs.InitTracer("hotel-service")

	gdb := must(db.Open(cfg.PGHotelDSN))
	repo := repository.NewHotelRepo(gdb)
	must(0, repo.Migrate())

	cache := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	svc := service.NewHotelSvc(repo, cache, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bookingCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.BookingExchange,
		Queue:    cfg.HotelQueue,
		Bindings: []string{events.RKBookingCreated, events.RKBookingCancelled},
		DLX:      cfg.HotelDLX,
		Tag:      "hotel-service",
	}))
	defer bookingCons.Close()

	bc := cons.NewBookingConsumer(svc, bookingCons, zlog)
	go func() {
		if err := bc.Run(ctx); err != nil {
			zlog.Errorw("consumer stopped", "err", err)
		}
	}()
	zlog.Infow("consumer started", "queue", cfg.HotelQueue)

	r := gin.Default()
	thttp.NewHandler(svc).Register(r)
	go func() {
		zlog.Infow("http listening", "addr", cfg.HotelHTTPAddr)
		if err := r.Run(cfg.HotelHTTPAddr); err != nil {
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
