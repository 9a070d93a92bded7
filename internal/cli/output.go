// Package cli holds configuration and rendering for the packgenie command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/selection"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintPacks outputs packs in the specified format
func PrintPacks(w io.Writer, packs []store.Pack, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]store.Pack{"packs": packs})
	case FormatYAML:
		return printYAML(w, packs)
	case FormatTable:
		return printPackTable(w, packs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintPack outputs a single pack; the table form adds its conditions.
func PrintPack(w io.Writer, pack *store.Pack, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, pack)
	case FormatYAML:
		return printYAML(w, pack)
	case FormatTable:
		if err := printPackTable(w, []store.Pack{*pack}); err != nil {
			return err
		}
		return printRuleTable(w, pack.Rules)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintVerdict outputs the per-condition report for one pack.
func PrintVerdict(w io.Writer, verdict engine.Verdict, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, verdict)
	case FormatYAML:
		return printYAML(w, verdict)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Clause", "Field", "Operator", "Value", "Result")
		for _, r := range verdict.IncludeResults {
			table.Append(rules.ClauseInclude, r.Condition.Field, string(r.Condition.Operator), FormatValue(r.Condition.Value), passFail(r.Passed))
		}
		for _, r := range verdict.ExcludeResults {
			table.Append(rules.ClauseExclude, r.Condition.Field, string(r.Condition.Operator), FormatValue(r.Condition.Value), passFail(r.Passed))
		}
		if err := table.Render(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Result: %s\n", includeExclude(verdict.ShouldInclude))
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintSelection outputs a selection run, one row per pack.
func PrintSelection(w io.Writer, result selection.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, result)
	case FormatYAML:
		return printYAML(w, result)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Pack", "Title", "Outcome")
		for _, r := range result.Results {
			outcome := "SKIPPED"
			if r.Verdict != nil {
				outcome = includeExclude(r.Verdict.ShouldInclude)
			}
			table.Append(r.PackID, truncate(r.Title, 40), outcome)
		}
		if err := table.Render(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d of %d packs selected\n", len(result.Selected), len(result.Results))
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatValue renders a condition literal so "15" and 15 read differently.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printPackTable(w io.Writer, packs []store.Pack) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Type", "Title", "Labour", "Materials", "Rules", "Enabled")

	for _, p := range packs {
		table.Append(
			p.ID,
			p.Type,
			truncate(p.DisplayTitle(), 40),
			strconv.FormatFloat(p.Labour.Hours, 'f', -1, 64)+"h",
			strconv.Itoa(len(p.Materials)),
			fmt.Sprintf("%d/%d", len(p.Rules.IncludeIf), len(p.Rules.ExcludeIf)),
			strconv.FormatBool(p.Enabled),
		)
	}

	return table.Render()
}

func printRuleTable(w io.Writer, rs rules.RuleSet) error {
	if rs.Empty() {
		_, err := fmt.Fprintln(w, "No rules: pack always applies")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Clause", "#", "Field", "Operator", "Value")
	for i, c := range rs.IncludeIf {
		table.Append(rules.ClauseInclude, strconv.Itoa(i), c.Field, string(c.Operator), FormatValue(c.Value))
	}
	for i, c := range rs.ExcludeIf {
		table.Append(rules.ClauseExclude, strconv.Itoa(i), c.Field, string(c.Operator), FormatValue(c.Value))
	}
	return table.Render()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

func passFail(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func includeExclude(include bool) string {
	if include {
		return "INCLUDE"
	}
	return "EXCLUDE"
}
