// Package cli implements hkictl, a terminal client for the HKI list API.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hkiapp/internal/config"
	"hkiapp/internal/listing"
)

type globalOptions struct {
	server     string
	token      string
	configPath string
}

// session bundles the API client with a list controller over it.
type session struct {
	client *listing.APIClient
	list   *listing.Controller
	env    config.Env
}

func (s *session) close() {
	s.list.Close()
}

var (
	okColor   = color.New(color.FgHiGreen)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
	headColor = color.New(color.Bold)
)

func defaultServer() string {
	if v := strings.TrimSpace(os.Getenv("HKI_SERVER")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func (o *globalOptions) open() (*session, error) {
	path := o.configPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv("HKI_CONFIG"))
	}
	env, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	token := o.token
	if token == "" {
		token = env.CLIToken
	}
	if token == "" {
		return nil, fmt.Errorf("token required: pass --token or set HKI_TOKEN")
	}

	logger, err := config.NewLogger(env.Log)
	if err != nil {
		return nil, err
	}
	client := listing.NewAPIClient(o.server, token)
	list := listing.NewController(client,
		listing.WithCapacity(env.Listing.CacheEntries),
		listing.WithLogger(logger),
	)
	return &session{client: client, list: list, env: env}, nil
}

// NewRootCmd builds hkictl with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "hkictl",
		Short: "Kelola data HKI dari terminal",
		Long: `hkictl talks to the HKI dashboard API. It keeps the same list cache the
dashboard uses, so deletes and status changes apply optimistically and roll
back when the server refuses them.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer(), "API base URL (env HKI_SERVER)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token (env HKI_TOKEN)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (env HKI_CONFIG)")

	root.AddCommand(listCmd(opts))
	root.AddCommand(deleteCmd(opts))
	root.AddCommand(statusCmd(opts))
	root.AddCommand(watchCmd(opts))
	return root
}

// Execute runs hkictl and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		errColor.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
