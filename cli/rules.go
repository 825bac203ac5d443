package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/pkg/config"
)

// RulesCmd groups rule-table maintenance commands.
func RulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate chunking rule tables",
	}
	cmd.AddCommand(rulesValidateCmd())
	return cmd
}

func rulesValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a rule table and report every entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			path, _ := cmd.Flags().GetString("rules")
			if path == "" {
				path = cfg.Rules.Path
			}
			if path == "" {
				return fmt.Errorf("no rule table given (use --rules or set rules.path)")
			}
			rules, err := chunk.LoadRuleSet(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, docType := range rules.Types() {
				rule, err := rules.Lookup(docType)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-16s strategy=%s min=%d max=%d overlap=%d\n",
					docType, rule.Strategy, rule.MinTokens, rule.MaxTokens, rule.Overlap)
			}
			fmt.Fprintf(out, "%s: %d rules ok\n", path, rules.Len())
			return nil
		},
	}
	cmd.Flags().String("rules", "", "rule table to validate (defaults to the configured one)")
	return cmd
}
