// Command toolgate runs the tool-call authorization and quota gate in front
// of a JSON-RPC tool backend, and administers the policies it reads.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolgate/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Environ()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	environ []string
	envFile string
}

// environment returns the env file entries, if any, followed by the
// process environment so real variables win.
func (o *rootOptions) environment() ([]string, error) {
	if o.envFile == "" {
		return o.environ, nil
	}
	values, err := godotenv.Read(o.envFile)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	environ := make([]string, 0, len(values)+len(o.environ))
	for k, v := range values {
		environ = append(environ, k+"="+v)
	}
	return append(environ, o.environ...), nil
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	environ, err := o.environment()
	if err != nil {
		return config.Config{}, err
	}
	return config.FromEnv(environ)
}

func (o *rootOptions) loadStoreConfig() (config.StoreConfig, error) {
	environ, err := o.environment()
	if err != nil {
		return config.StoreConfig{}, err
	}
	return config.StoreFromEnv(environ)
}

func newRootCmd(environ []string) *cobra.Command {
	opts := &rootOptions{environ: environ}

	root := &cobra.Command{
		Use:          "toolgate",
		Short:        "Authorization and quota gate for JSON-RPC tool calls",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file with TOOLGATE_* settings")

	root.AddCommand(
		newServeCmd(opts),
		newPolicyCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}
