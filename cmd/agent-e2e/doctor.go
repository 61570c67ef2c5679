package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicebridge/agent-e2e/internal/config"
	"github.com/voicebridge/agent-e2e/internal/probe"
)

// newDoctorCmd probes every configured backend and prints a reachability
// table, so "why did everything skip" has a one-command answer.
func newDoctorCmd() *cobra.Command {
	var (
		timeout time.Duration
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check which voice-agent backends are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			backends := cfg.ConfiguredBackends()
			if len(backends) == 0 {
				fmt.Println("no backends configured; every spec will self-skip")
				fmt.Println("set VITE_DEEPGRAM_API_KEY, VITE_DEEPGRAM_PROXY_ENDPOINT or VITE_OPENAI_PROXY_ENDPOINT")
				return nil
			}

			endpoints := make([]string, 0, len(backends))
			byEndpoint := make(map[string]config.Backend, len(backends))
			for _, b := range backends {
				ep, err := cfg.Endpoint(b)
				if err != nil {
					continue
				}
				endpoints = append(endpoints, ep)
				byEndpoint[ep] = b
			}

			results := probe.New(log, timeout).ProbeAll(cmd.Context(), endpoints)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BACKEND\tENDPOINT\tSTATUS\tLATENCY")
			unreachable := 0
			for _, ep := range endpoints {
				res := results[ep]
				status := "ok (" + res.Greeting + ")"
				latency := res.Latency.Round(time.Millisecond).String()
				if !res.Reachable {
					status = "unreachable: " + res.Err.Error()
					latency = "-"
					unreachable++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", byEndpoint[ep], ep, status, latency)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if unreachable > 0 {
				return fmt.Errorf("%d of %d backends unreachable", unreachable, len(endpoints))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-endpoint probe timeout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}
