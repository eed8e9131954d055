package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/cve-advisor/internal/application/contexts"
	"github.com/bryanwahyu/cve-advisor/internal/bootstrap"
	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/infra/contextclient"
)

func newContextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Read or change the style/mode/language context",
		Long: "Talks to the context service when pipeline.context_url ($MCP_CONTEXT_URL) is set, " +
			"otherwise to the configured context store directly.",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the current context as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContextBackend(cmd, func(b contextBackend) error {
				c, err := b.get(cmd)
				if err != nil {
					return err
				}
				return printContext(cmd, c)
			})
		},
	}

	set := &cobra.Command{
		Use:     "set",
		Short:   "Replace the context",
		Example: `  advisor context set --style sarcastic --mode error --language en`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// all three are required, empty values are allowed
			for _, name := range []string{"style", "mode", "language"} {
				if !cmd.Flags().Changed(name) {
					return fmt.Errorf("missing parameter: %s", name)
				}
			}
			style, _ := cmd.Flags().GetString("style")
			mode, _ := cmd.Flags().GetString("mode")
			lang, _ := cmd.Flags().GetString("language")
			return withContextBackend(cmd, func(b contextBackend) error {
				c, err := b.set(cmd, style, mode, lang)
				if err != nil {
					return err
				}
				return printContext(cmd, c)
			})
		},
	}
	set.Flags().String("style", "", "neutral, sarcastic, friendly, conceited, ...")
	set.Flags().String("mode", "", "default, error, devsecops, alert-only, humor, legal, ...")
	set.Flags().String("language", "", "de, en, ...")
	set.Flags().String("api-key", "", "API key for the context service")

	cmd.AddCommand(get, set)
	return cmd
}

type contextBackend struct {
	remote *contextclient.Client
	local  *contexts.Service
}

func (b contextBackend) get(cmd *cobra.Command) (advisory.Context, error) {
	if b.remote != nil {
		return b.remote.Context(cmd.Context())
	}
	return b.local.Get(), nil
}

func (b contextBackend) set(cmd *cobra.Command, style, mode, lang string) (advisory.Context, error) {
	if b.remote != nil {
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			b.remote.WithAPIKey(key)
		}
		return b.remote.Set(cmd.Context(), style, mode, lang)
	}
	return b.local.Set(cmd.Context(), style, mode, lang)
}

func withContextBackend(cmd *cobra.Command, fn func(contextBackend) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Pipeline.ContextURL != "" {
		return fn(contextBackend{remote: contextclient.New(cfg.Pipeline.ContextURL, nil)})
	}
	store, err := bootstrap.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(contextBackend{local: contexts.NewService(cmd.Context(), store.Persister, logger)})
}

func printContext(cmd *cobra.Command, c advisory.Context) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
