package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/devicehub/internal/client"
	"github.com/nerrad567/devicehub/internal/infrastructure/config"
	"github.com/nerrad567/devicehub/internal/infrastructure/logging"
)

const defaultServer = "http://localhost:8080"

// globalOptions are shared by every subcommand that talks to the server.
type globalOptions struct {
	server  string
	token   string
	timeout time.Duration
	verbose bool
}

func (o *globalOptions) client() *client.Client {
	opts := []client.Option{client.WithToken(o.token), client.WithTimeout(o.timeout)}
	if o.verbose {
		log := logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "devicectl", os.Stderr)
		opts = append(opts, client.WithLogger(log))
	}
	return client.New(o.server, opts...)
}

var rootLongDescription = `
devicectl manages the device inventory of a devicehub server.

The server address and bearer token default to $DEVICEHUB_URL and
$DEVICEHUB_TOKEN.
`

// newRootCmd builds the command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "devicectl",
		Short:         "Manage devices on a devicehub server",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("DEVICEHUB_URL", defaultServer),
		"base URL of the devicehub API")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("DEVICEHUB_TOKEN"),
		"bearer token sent with every request")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second,
		"per-request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log retries and transport errors to stderr")

	cmd.AddCommand(
		newListCmd(out, opts),
		newGetCmd(out, opts),
		newCreateCmd(out, opts),
		newUpdateCmd(out, opts),
		newDeleteCmd(out, opts),
		newExportCmd(out, opts),
		newTokenCmd(out),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
