package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicebridge/agent-e2e/internal/stubagent"
	"github.com/voicebridge/agent-e2e/pkg/agentwire"
)

// newStubCmd serves the local stub backend, the analog of the
// test:proxy:server / openai-proxy scripts: a process the test app can be
// pointed at when no production proxy is running.
func newStubCmd() *cobra.Command {
	var (
		addr        string
		mode        string
		idleTimeout time.Duration
		withWeather bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a local stub voice-agent backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg := stubagent.DefaultConfig()
			cfg.Addr = addr
			cfg.Mode = stubagent.Mode(mode)
			cfg.IdleTimeout = idleTimeout
			cfg.Logger = log
			if withWeather {
				cfg.Functions = []agentwire.FunctionDef{{
					Name:        "get_weather",
					Description: "Look up the current weather for a location",
				}}
			}

			srv, err := stubagent.NewServer(cfg)
			if err != nil {
				return err
			}
			if _, err := srv.Start(); err != nil {
				return err
			}
			fmt.Println("stub agent listening on", srv.WebSocketURL())

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8400", "listen address")
	cmd.Flags().StringVar(&mode, "mode", "deepgram", "protocol flavor: deepgram or openai")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 10*time.Second, "close idle sessions after this long")
	cmd.Flags().BoolVar(&withWeather, "with-weather", true, "advertise the get_weather demo function")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}
