package commands

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/packgenie/internal/cli"
	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/validation"
	"github.com/spf13/cobra"
)

func newRuleCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Edit a pack's include_if / exclude_if conditions",
	}
	cmd.AddCommand(newRuleAddCmd(opts), newRuleRemoveCmd(opts), newRuleLintCmd(opts))
	return cmd
}

func newRuleAddCmd(opts *globalOptions) *cobra.Command {
	var (
		clause   string
		field    string
		operator string
		value    string
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Append a condition to a pack",
		Long: `Append a condition to a pack. The value is parsed the way the rule
table does it: "true" and "false" become booleans, numeric text becomes a
number, and anything else stays a string.

Examples:
  packgenie rule add cyl-200 --clause include_if --field site.bathrooms_count --operator greater_than --value 1
  packgenie rule add cyl-200 --clause exclude_if --field system.system_type --operator equals --value combi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cond := rules.Condition{
				Field:    field,
				Operator: rules.Operator(operator),
				Value:    rules.ParseLiteral(value),
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			pack, err := st.GetPack(ctx, args[0])
			if err != nil {
				return err
			}

			switch clause {
			case rules.ClauseInclude:
				pack.Rules.IncludeIf = append(pack.Rules.IncludeIf, cond)
			case rules.ClauseExclude:
				pack.Rules.ExcludeIf = append(pack.Rules.ExcludeIf, cond)
			default:
				return fmt.Errorf("unknown clause %q, valid clauses: %s, %s", clause, rules.ClauseInclude, rules.ClauseExclude)
			}

			if err := st.UpsertPack(ctx, *pack); err != nil {
				return fmt.Errorf("failed to save pack: %w", err)
			}
			printWarnings(cmd, validation.ValidateRules(pack.Rules))
			opts.printf(cmd, "Added %s condition to '%s': %s %s %s\n",
				clause, pack.ID, cond.Field, cond.Operator, cli.FormatValue(cond.Value))
			return nil
		},
	}

	cmd.Flags().StringVar(&clause, "clause", rules.ClauseInclude, "Clause to extend (include_if, exclude_if)")
	cmd.Flags().StringVar(&field, "field", "", "Dotted path into the job context")
	cmd.Flags().StringVar(&operator, "operator", string(rules.OpEquals), "Operator (equals, not_equals, greater_than, less_than, contains, not_contains)")
	cmd.Flags().StringVar(&value, "value", "", "Literal to compare against")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func newRuleRemoveCmd(opts *globalOptions) *cobra.Command {
	var (
		clause string
		index  int
	)

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a condition by clause and index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			pack, err := st.GetPack(ctx, args[0])
			if err != nil {
				return err
			}

			var list *[]rules.Condition
			switch clause {
			case rules.ClauseInclude:
				list = &pack.Rules.IncludeIf
			case rules.ClauseExclude:
				list = &pack.Rules.ExcludeIf
			default:
				return fmt.Errorf("unknown clause %q, valid clauses: %s, %s", clause, rules.ClauseInclude, rules.ClauseExclude)
			}
			if index < 0 || index >= len(*list) {
				return fmt.Errorf("%s[%d] does not exist (pack has %d)", clause, index, len(*list))
			}
			*list = append((*list)[:index], (*list)[index+1:]...)

			if err := st.UpsertPack(ctx, *pack); err != nil {
				return fmt.Errorf("failed to save pack: %w", err)
			}
			opts.printf(cmd, "Removed %s[%d] from '%s'\n", clause, index, pack.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&clause, "clause", rules.ClauseInclude, "Clause to edit (include_if, exclude_if)")
	cmd.Flags().IntVar(&index, "index", 0, "Zero-based condition index")
	return cmd
}

func newRuleLintCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [id]",
		Short: "Report suspicious conditions in one pack or the whole catalogue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			packs, err := st.ListPacks(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				pack, err := st.GetPack(ctx, args[0])
				if err != nil {
					return err
				}
				packs = packs[:0]
				packs = append(packs, *pack)
			}

			issues := 0
			for _, p := range packs {
				for _, issue := range rules.Lint(p.Rules) {
					issues++
					opts.printf(cmd, "%s: %s\n", p.ID, issue.Error())
				}
			}
			if issues > 0 {
				return fmt.Errorf("%d rule issue(s) found", issues)
			}
			opts.printf(cmd, "No rule issues found\n")
			return nil
		},
	}
}
