package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RobertLeahy/MCPP-sub000/internal/chat"
	"github.com/RobertLeahy/MCPP-sub000/internal/config"
	"github.com/RobertLeahy/MCPP-sub000/internal/handlers"
	"github.com/RobertLeahy/MCPP-sub000/internal/logging"
	"github.com/RobertLeahy/MCPP-sub000/internal/metrics"
	"github.com/RobertLeahy/MCPP-sub000/internal/server"
	"github.com/RobertLeahy/MCPP-sub000/internal/store"
	"github.com/RobertLeahy/MCPP-sub000/internal/telemetry"
	"github.com/RobertLeahy/MCPP-sub000/internal/world"
)

// newChatSink connects the NATS-backed transcript sink used when
// -chat-nats is set.
func newChatSink(addr, subject string) (*chat.NATSSink, error) {
	return chat.NewNATSSink(addr, subject)
}

var version = "dev"

func main() {
	fs := flag.NewFlagSet("mcserverd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mcserverd — Minecraft protocol server daemon\n\nUsage:\n  mcserverd [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to a JSON config file overriding defaults")
	listen := fs.String("listen", "", "client listen address (overrides config binds)")
	metricsAddr := fs.String("metrics", ":9090", "Prometheus metrics HTTP address")
	telemetryAddr := fs.String("telemetry", ":9091", "gRPC telemetry server address")
	chatNATS := fs.String("chat-nats", "", "NATS server address for the chat transcript sink (disabled if empty)")
	chatSubject := fs.String("chat-subject", "mcserver.chat", "NATS subject for the chat transcript sink")
	worldType := fs.String("world-type", "flat", "world generator registered for dimension 0")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("mcserverd %s\n", version)
		return
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatal(err)
	}
	if *listen != "" {
		config.Keys.Binds = []string{*listen}
	}

	if err := run(*metricsAddr, *telemetryAddr, *chatNATS, *chatSubject, *worldType); err != nil {
		log.Fatal(err)
	}
}

func run(metricsAddr, telemetryAddr, chatNATS, chatSubject, worldType string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logs := logging.New()
	logs.SetPanicHook(func(v any) {
		logs.WriteLog(fmt.Sprintf("recovered panic: %v", v), logging.Error)
	})
	met := metrics.New()
	backing := store.NewMemStore()

	gens := world.NewGeneratorRegistry()
	gens.Register(0, worldType, world.FlatGenerator{SurfaceY: 64, GroundType: 1})
	pops := []world.Populator{
		world.BedrockPopulator{BlockType: 7},
		world.SurfaceLightPopulator{SurfaceY: 64},
	}

	srv, err := server.New(config.Keys, logs, met, backing, worldType, gens, pops)
	if err != nil {
		return fmt.Errorf("mcserverd: new server: %w", err)
	}

	statusJSON := func() string {
		return fmt.Sprintf(
			`{"version":{"name":"1.8.9","protocol":47},"players":{"max":%d,"online":0},"description":{"text":"A Minecraft Server"}}`,
			config.Keys.MaxPlayers,
		)
	}
	handlers.Register(srv, statusJSON)

	if chatNATS != "" {
		sink, err := newChatSink(chatNATS, chatSubject)
		if err != nil {
			return fmt.Errorf("mcserverd: chat sink: %w", err)
		}
		srv.Chat().SetSink(sink)
		defer sink.Close()
	}

	var lc net.ListenConfig
	metricsLis, err := lc.Listen(ctx, "tcp", metricsAddr)
	if err != nil {
		return fmt.Errorf("mcserverd: listen metrics %s: %w", metricsAddr, err)
	}
	httpSrv := &http.Server{Handler: met.Handler()}
	go func() {
		logs.WriteLog(fmt.Sprintf("metrics server listening on %s", metricsAddr), logging.Info)
		if err := httpSrv.Serve(metricsLis); err != nil && err != http.ErrServerClosed {
			logs.WriteLog(fmt.Sprintf("metrics serve: %v", err), logging.Warn)
		}
	}()

	telemetryLis, err := lc.Listen(ctx, "tcp", telemetryAddr)
	if err != nil {
		return fmt.Errorf("mcserverd: listen telemetry %s: %w", telemetryAddr, err)
	}
	telemetrySrv := telemetry.NewServer(srv.Telemetry())
	go func() {
		logs.WriteLog(fmt.Sprintf("telemetry server listening on %s", telemetryAddr), logging.Info)
		if err := telemetrySrv.Serve(telemetryLis); err != nil {
			logs.WriteLog(fmt.Sprintf("telemetry serve: %v", err), logging.Warn)
		}
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("mcserverd: start: %w", err)
	}

	<-ctx.Done()
	logs.WriteLog("shutting down", logging.Info)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	telemetrySrv.GracefulStop()
	srv.Stop()

	return nil
}
