// Command classifier ingests a stream of validator events over TCP and
// classifies peer IP addresses into named, time-expiring groups based on
// configurable thresholds over per-peer metrics.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/bji/txingest-classifier/internal/api"
	"github.com/bji/txingest-classifier/internal/classifier"
	"github.com/bji/txingest-classifier/internal/config"
	"github.com/bji/txingest-classifier/internal/wire"
)

const defaultConfigPath = "./config.json"

func main() {
	listenIp, listenPort, configPath := parseArgs(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}

	emit, hub := buildEmitter()

	groups := classifier.NewGroupRegistry(emit)
	stateCfg := cfg.ToStateConfig(emit)
	state := classifier.NewState(stateCfg, groups)

	addr := net.JoinHostPort(listenIp, strconv.Itoa(listenPort))
	listener := wire.Listen(addr)
	go listener.Serve()

	ctx := context.Background()
	go state.Run(ctx, listener.Events)

	if debugAddr := os.Getenv("DEBUG_API_ADDR"); debugAddr != "" {
		router := api.SetupRouter(state, hub)
		go func() {
			if err := router.Run(debugAddr); err != nil {
				fmt.Fprintf(os.Stderr, "[api] debug server stopped: %v\n", err)
			}
		}()
	}

	select {}
}

// parseArgs validates and parses the CLI arguments, exiting 255 on any
// failure (§6).
func parseArgs(args []string) (ip string, port int, configPath string) {
	if len(args) < 2 || len(args) > 3 {
		fatal("usage: classifier <listen_ip> <listen_port> [config_path]")
	}

	ip = args[0]
	if net.ParseIP(ip) == nil {
		fatal(fmt.Sprintf("invalid listen_ip: %s", ip))
	}

	port, err := strconv.Atoi(args[1])
	if err != nil || port < 0 || port > 65535 {
		fatal(fmt.Sprintf("invalid listen_port: %s", args[1]))
	}

	configPath = defaultConfigPath
	if len(args) == 3 {
		configPath = args[2]
	}

	return ip, port, configPath
}

// buildEmitter wires stdout (always present, §6's contract) together with
// the optional websocket hub emitter. The hub is created and its Run
// goroutine started only when DEBUG_API_ADDR is set, so the default binary
// never touches gin or gorilla/websocket. The returned *api.GroupStreamHub
// is nil when the debug API is disabled.
func buildEmitter() (classifier.Emitter, *api.GroupStreamHub) {
	if os.Getenv("DEBUG_API_ADDR") == "" {
		return classifier.StdoutEmitter{}, nil
	}
	hub := api.NewHub()
	go hub.Run()
	emit := classifier.NewBroadcastEmitter(classifier.StdoutEmitter{}, &api.HubEmitter{Hub: hub})
	return emit, hub
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(255)
}
