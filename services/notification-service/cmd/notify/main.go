package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/you/hotel-booking/pkg/logger"
	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/pkg/obs"
	"github.com/you/hotel-booking/services/notification-service/internal/events"
	"github.com/you/hotel-booking/services/notification-service/internal/notifier"
	"github.com/you/hotel-booking/services/notification-service/internal/worker"
)

type Cfg struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	RabbitURL     string `envconfig:"RABBIT_URL" required:"true"`
	EventExchange string `envconfig:"BOOKING_EVENTS_EXCHANGE" default:"booking-events"`
	NotifyQueue   string `envconfig:"NOTIFY_QUEUE" default:"notify.booking-events.q"`
	NotifyDLX     string `envconfig:"NOTIFY_DLX" default:"notify.dlx"`

	// mail stays on the console notifier until an SMTP host is set
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"bookings@example.com"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
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

	zlog := logger.New("notification-service", cfg.LogLevel)
	defer zlog.Sync()

	shutdownTracer := obs.InitTracer("notification-service")

	var out notifier.Notifier = notifier.NewConsole(zlog)
	if cfg.SMTPHost != "" {
		out = notifier.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
		zlog.Infow("smtp delivery enabled", "host", cfg.SMTPHost, "from", cfg.SMTPFrom)
	}

	noticeCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.EventExchange,
		Queue:    cfg.NotifyQueue,
		Bindings: []string{events.RKBookingConfirmed, events.RKBookingCancelled, events.RKBookingPaid},
		DLX:      cfg.NotifyDLX,
		Tag:      "notification-service",
	}))
	defer noticeCons.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.New(noticeCons, out, zlog)
	go func() {
		if err := w.Run(ctx); err != nil {
			zlog.Errorw("worker stopped", "err", err)
		}
	}()
	zlog.Infow("worker started", "queue", cfg.NotifyQueue)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	_ = shutdownTracer(context.Background())
	zlog.Info("stopped")
}
