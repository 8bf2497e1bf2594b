// Command vent-remote presses the buttons of a ventilation unit's wireless
// remote and reports whether the unit confirmed the command.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/vent-remote/internal/console"
	"github.com/sweeney/vent-remote/internal/gpio"
	"github.com/sweeney/vent-remote/internal/mqtt"
	"github.com/sweeney/vent-remote/internal/remote"
	"github.com/sweeney/vent-remote/internal/status"
	"github.com/sweeney/vent-remote/internal/web"
)

var (
	// Version is set with -ldflags at build time.
	Version = "dev"
	// Commit is set with -ldflags at build time.
	Commit = "unknown"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if e, ok := err.(*flags.Error); ok {
		if e.Type == flags.ErrHelp {
			return
		}
		// go-flags has already printed it.
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Printf("vent-remote %s (commit %s)\n", Version, Commit)
		return
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("fatal")
	}
}

func run(cfg *config) error {
	var con *console.Console
	var stdout io.Writer = os.Stdout
	if !cfg.NoConsole {
		con = console.New(os.Stdin, os.Stdout)
		restore, err := con.MakeRaw(os.Stdin)
		if err != nil {
			return err
		}
		defer restore()
		stdout = con.Writer(os.Stdout)
	}

	logFile := setupLogging(cfg, stdout)
	defer logFile.Close()

	log.Infof("vent-remote %s (commit %s)", Version, Commit)

	// The monitor must exist before the board so no edge is lost.
	monitor := remote.NewMonitor()
	board, err := gpio.NewRealBoard(cfg.Chip, cfg.Pins.pins(), monitor.Observe)
	if err != nil {
		return errors.Wrap(err, "init gpio")
	}
	defer board.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:     cfg.Chip,
		Broker:   cfg.Broker,
		HTTPAddr: cfg.HTTPAddr,
		Console:  con != nil,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	l := &loop{tracker: tracker, console: con, now: time.Now}
	rep := reporter{tracker: tracker}
	var src sources

	if cfg.Broker != "" {
		client, err := mqtt.NewRealClient(cfg.Broker, cfg.ClientID)
		if err != nil {
			return errors.Wrap(err, "init mqtt")
		}
		defer client.Close()
		l.publisher = client
		l.mqttStatus = client
		rep.publisher = client
		src.mqtt = client.Commands()
	}

	l.dispatcher = remote.NewDispatcher(board, monitor, remote.WithObserver(rep))
	l.startup()

	queue := newKeyQueue(8)
	src.http = queue

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, queue)
		g.Go(func() error {
			log.Infof("http status server listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "http server")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	if con != nil {
		con.Banner(Version)
		src.console = con.Keys()
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	src.tick = ticker.C

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	src.sig = sigCh

	log.Infof("started: chip=%s broker=%q http=%q console=%v", cfg.Chip, cfg.Broker, cfg.HTTPAddr, con != nil)

	g.Go(func() error {
		defer cancel()
		return l.run(ctx, src)
	})
	return g.Wait()
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
