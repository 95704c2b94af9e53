package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goconfigship/internal/client"
	"github.com/TimurManjosov/goconfigship/internal/template"
)

// OutputFormat selects how CLI commands render their results.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintTemplate renders a template.
func PrintTemplate(w io.Writer, tpl *template.Template, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, tpl)
	case FormatYAML:
		return printYAML(w, tpl)
	case FormatTable:
		return templateTable(w, tpl)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintVersions renders version history.
func PrintVersions(w io.Writer, versions []template.Version, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]template.Version{"versions": versions})
	case FormatYAML:
		return printYAML(w, map[string][]template.Version{"versions": versions})
	case FormatTable:
		return versionsTable(w, versions)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvalResult renders a server-side evaluation.
func PrintEvalResult(w io.Writer, result *client.EvalResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, result)
	case FormatYAML:
		return printYAML(w, result)
	case FormatTable:
		return evalTable(w, result)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML round-trips through JSON first so types with custom JSON
// forms (condition trees in particular) keep their wire shape.
func printYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(doc)
}

func templateTable(w io.Writer, tpl *template.Template) error {
	table := tablewriter.NewWriter(w)
	table.Header("Parameter", "Type", "Default", "Conditional Values")

	names := make([]string, 0, len(tpl.Parameters))
	for name := range tpl.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		param := tpl.Parameters[name]
		table.Append(name, string(param.ValueType), defaultCell(param), conditionalCell(param))
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(tpl.Conditions) > 0 {
		fmt.Fprintf(w, "Conditions: %s\n", strings.Join(tpl.ConditionNames(), ", "))
	}
	if tpl.Version.VersionNumber > 0 {
		fmt.Fprintf(w, "Version: %d (%s) updated %s\n",
			tpl.Version.VersionNumber,
			tpl.Version.UpdateType,
			tpl.Version.UpdateTime.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func defaultCell(param template.Parameter) string {
	switch {
	case param.DefaultValue == nil:
		return "-"
	case param.DefaultValue.UseInAppDefault:
		return "(in-app default)"
	case param.DefaultValue.Value != nil:
		return truncate(*param.DefaultValue.Value, 40)
	default:
		return "-"
	}
}

func conditionalCell(param template.Parameter) string {
	if len(param.ConditionalValues) == 0 {
		return "-"
	}
	names := make([]string, 0, len(param.ConditionalValues))
	for name := range param.ConditionalValues {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func versionsTable(w io.Writer, versions []template.Version) error {
	table := tablewriter.NewWriter(w)
	table.Header("Version", "Type", "User", "Description", "Updated At")

	for _, v := range versions {
		table.Append(
			fmt.Sprintf("%d", v.VersionNumber),
			string(v.UpdateType),
			v.UpdateUser,
			truncate(v.Description, 40),
			v.UpdateTime.Format("2006-01-02 15:04"),
		)
	}
	return table.Render()
}

func evalTable(w io.Writer, result *client.EvalResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Parameter", "Value", "Source", "Condition")

	names := make([]string, 0, len(result.Values))
	for name := range result.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := result.Values[name]
		condName := value.Condition
		if condName == "" {
			condName = "-"
		}
		table.Append(name, truncate(value.Raw, 40), string(value.Source), condName)
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(result.Conditions) > 0 {
		satisfied := make([]string, 0, len(result.Conditions))
		for name, ok := range result.Conditions {
			if ok {
				satisfied = append(satisfied, name)
			}
		}
		sort.Strings(satisfied)
		if len(satisfied) == 0 {
			fmt.Fprintln(w, "Satisfied conditions: none")
		} else {
			fmt.Fprintf(w, "Satisfied conditions: %s\n", strings.Join(satisfied, ", "))
		}
	}
	fmt.Fprintf(w, "Template version: %d\n", result.Version)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
