package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// newRunCmd wraps `go test -tags=e2e ./e2e/...`, pinning the environment
// the specs read. It is the Go analog of the package.json test:e2e scripts:
// a thin wrapper that only sets flags and environment.
func newRunCmd() *cobra.Command {
	var (
		appURL   string
		backend  string
		headless bool
		verbose  bool
		runExpr  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the E2E suite against a configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := os.Environ()
			if appURL != "" {
				env = append(env, "AGENT_E2E_APP_URL="+appURL)
			}
			env = append(env, fmt.Sprintf("AGENT_E2E_HEADLESS=%t", headless))

			switch backend {
			case "", "auto":
				// Leave the ambient VITE_* variables as they are.
			case "deepgram":
				// Direct mode: the key must already be present; refuse to
				// run a suite that will skip everything.
				if os.Getenv("VITE_DEEPGRAM_API_KEY") == "" {
					return fmt.Errorf("backend deepgram needs VITE_DEEPGRAM_API_KEY")
				}
			case "deepgram-proxy":
				env = append(env, "USE_PROXY_MODE=true")
			case "openai":
				if os.Getenv("VITE_OPENAI_PROXY_ENDPOINT") == "" {
					return fmt.Errorf("backend openai needs VITE_OPENAI_PROXY_ENDPOINT")
				}
			default:
				return fmt.Errorf("unknown backend %q", backend)
			}

			goArgs := []string{"test", "-tags=e2e", "-count=1"}
			if verbose {
				goArgs = append(goArgs, "-v")
			}
			if runExpr != "" {
				goArgs = append(goArgs, "-run", runExpr)
			}
			goArgs = append(goArgs, "./e2e/...")

			test := exec.CommandContext(cmd.Context(), "go", goArgs...)
			test.Env = env
			test.Stdout = os.Stdout
			test.Stderr = os.Stderr
			return test.Run()
		},
	}

	cmd.Flags().StringVar(&appURL, "app-url", "", "test app base URL (default from AGENT_E2E_APP_URL)")
	cmd.Flags().StringVar(&backend, "backend", "auto", "backend to target: auto, deepgram, deepgram-proxy, openai")
	cmd.Flags().BoolVar(&headless, "headless", true, "run Chrome headless")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose test output")
	cmd.Flags().StringVar(&runExpr, "run", "", "regexp selecting tests to run")
	return cmd
}
