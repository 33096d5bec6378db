package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kstaniek/iips-core/internal/config"
	"github.com/kstaniek/iips-core/internal/endpoint"
	"github.com/kstaniek/iips-core/internal/eventbus"
	"github.com/kstaniek/iips-core/internal/metrics"
	"github.com/kstaniek/iips-core/internal/observer"
	"github.com/kstaniek/iips-core/internal/planemit"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("iips-core %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	store := config.NewStore(cfg.settingsPath)
	settings, err := store.Load()
	if err != nil {
		l.Error("settings_load_failed", "error", err)
		return
	}
	if err := store.Save(settings); err != nil {
		l.Warn("settings_save_failed", "error", err)
	}
	l.Info("settings_loaded", "iipsIp", settings.IipsIP, "iipsPort", settings.IipsPort, "qgcPort", settings.QgcPort)

	listenAddr := cfg.listenAddr
	if !cfg.listenExplicit {
		listenAddr = fmt.Sprintf(":%d", settings.QgcPort)
	}
	peerAddr := cfg.peerAddr
	if !cfg.peerExplicit && settings.IipsIP != "" {
		peerAddr = fmt.Sprintf("%s:%d", settings.IipsIP, settings.IipsPort)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	bus := eventbus.Publisher(eventbus.NullPublisher{})
	if cfg.redisAddr != "" {
		rp, err := eventbus.NewRedisPublisher(ctx, cfg.redisAddr, cfg.redisPassword, cfg.redisDB, cfg.redisChannel)
		if err != nil {
			l.Error("eventbus_init_failed", "error", err)
			return
		}
		defer func() { _ = rp.Close() }()
		bus = rp
	}

	reg := observer.New()
	logNotices(ctx, reg, l, &wg)

	r := endpoint.NewReactor(
		endpoint.WithListenAddr(listenAddr),
		endpoint.WithPeerAddr(peerAddr),
		endpoint.WithWatchdogTimeout(cfg.watchdogTO),
		endpoint.WithRegistry(reg),
		endpoint.WithEventBus(bus),
		endpoint.WithEmitter(planemit.NewFileEmitter(cfg.planDir, planNameFor)),
		endpoint.WithLogger(l),
	)

	go func() {
		if err := r.Serve(ctx); err != nil {
			l.Error("udp_reactor_error", "error", err)
			cancel()
		}
	}()

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		select {
		case <-r.Ready():
		case <-ctx.Done():
			return
		}
		_, portStr, splitErr := net.SplitHostPort(listenAddr)
		if splitErr != nil {
			lastColon := strings.LastIndex(listenAddr, ":")
			if lastColon >= 0 {
				portStr = listenAddr[lastColon+1:]
			}
		}
		port, _ := strconv.Atoi(portStr)
		cleanupMDNS, err := startMDNS(ctx, cfg, port)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "port", port)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-r.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		l.Warn("reactor_shutdown_error", "error", err)
	}
	if err := store.Save(settings); err != nil {
		l.Warn("settings_save_failed", "error", err)
	}
	wg.Wait()
}
