package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast"
	"github.com/AOSIP-old/platform-frameworks-base/broadcast/executors/parallel"
	"github.com/AOSIP-old/platform-frameworks-base/broadcast/userdispatch"
	"github.com/AOSIP-old/platform-frameworks-base/eventsource"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app := cli.App{
		Name:    "broadcastd",
		Usage:   "broadcast registration multiplexer daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			EnvVars: []string{"BROADCASTD_DEBUG"},
		},
		&cli.StringFlag{
			Name:    "api-listen",
			Value:   ":2580",
			EnvVars: []string{"BROADCASTD_API_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "delivery-workers",
			Usage:   "number of parallel delivery workers",
			Value:   8,
			EnvVars: []string{"BROADCASTD_DELIVERY_WORKERS"},
		},
		&cli.IntFlag{
			Name:    "delivery-queue",
			Usage:   "delivery queue depth",
			Value:   1024,
			EnvVars: []string{"BROADCASTD_DELIVERY_QUEUE"},
		},
	}

	app.Action = Broadcastd

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func Broadcastd(cctx *cli.Context) error {
	logLevel := slog.LevelInfo
	if cctx.Bool("debug") {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Trap SIGINT to trigger a shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	src := eventsource.NewSource()
	go src.Run()

	exec := parallel.NewExecutor(cctx.Int("delivery-workers"), cctx.Int("delivery-queue"), "delivery")

	disp := broadcast.NewDispatcher(userdispatch.Factory(src), exec, nil)
	go disp.Run()

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger.With("system", "http")))
	e.Use(echoprometheus.NewMiddleware("broadcastd"))

	h := NewHandlers(disp, src)

	e.GET("/_health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/*", echo.WrapHandler(http.DefaultServeMux))

	e.GET("/dump", h.Dump)
	e.GET("/subscribe", h.Subscribe)
	e.POST("/broadcast", h.PostBroadcast)

	go func() {
		if err := e.Start(cctx.String("api-listen")); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
		}
	}()

	slog.Info("broadcastd running", "listen", cctx.String("api-listen"), "version", versioninfo.Short())

	<-signals
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}

	disp.Shutdown()
	exec.Shutdown()
	src.Shutdown()

	return nil
}
