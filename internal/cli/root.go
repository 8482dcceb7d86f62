// Package cli implements the lsp-repograph command tree. It is thin glue:
// parse arguments, drive the resolver, print formatted results.
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/config"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/format"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/resolver"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/session"
)

var (
	flagWorkspace string
	flagConfig    string
	flagServer    string
)

var rootCmd = &cobra.Command{
	Use:   "lsp-repograph",
	Short: "Resolve symbol definitions and references through a language server",
	Long: `lsp-repograph resolves where a symbol is defined and where it is used
inside a code repository, including standard-library and third-party symbols
that never appear in any workspace file. Analysis is delegated to an external
language server spoken over stdio (jedi-language-server by default).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "language server command (overrides config)")
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		cfg := config.GetDefaultConfig()
		if flagServer != "" {
			cfg.Server.Command = flagServer
		}
		return cfg, nil
	}
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagServer != "" {
		cfg.Server.Command = flagServer
	}
	return cfg, nil
}

// withResolver connects a session for the configured workspace, hands the
// resolver and formatter to fn, and always closes the session afterwards.
func withResolver(ctx context.Context, fn func(r *resolver.Resolver, f *format.Formatter) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(flagWorkspace)
	if err != nil {
		return fmt.Errorf("invalid workspace %q: %w", flagWorkspace, err)
	}

	sess, err := session.Connect(ctx, session.Config{
		Command:               cfg.Server.Command,
		Args:                  cfg.Server.Args,
		WorkspaceRoot:         root,
		RequestTimeout:        cfg.RequestTimeout(),
		InitializationOptions: cfg.Server.InitializationOptions,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	return fn(resolver.New(sess), format.New(root))
}
