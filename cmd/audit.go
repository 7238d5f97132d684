package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mvn-audit/audit"
	"mvn-audit/mvn"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var errVulnerable = errors.New("vulnerable packages found")

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	summaryStyle = cellStyle.Foreground(lipgloss.Color("6"))
	fixedStyle   = cellStyle.Foreground(lipgloss.Color("5"))
)

func (a *app) auditCmd() *cobra.Command {
	var (
		file     string
		format   string
		fail     bool
		useCache bool
	)

	c := &cobra.Command{
		Use:   "audit",
		Short: "Report known vulnerabilities for the packages of a Maven dependency tree",
		Long: `Reads 'mvn dependency:tree' output from --file or stdin. When neither is
given and a pom.xml exists, runs ./mvnw (or mvn) dependency:tree itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported format %q", format)
			}

			coords, err := readTree(cmd, file)
			if err != nil {
				return err
			}

			auditor := &audit.Auditor{
				API:           a.osvClient(),
				Log:           a.log,
				MaxConcurrent: a.settings.MaxConcurrent,
			}
			if useCache {
				store, closeStore, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore()
				auditor.Store = store
			}

			out := cmd.OutOrStdout()
			if format == "table" {
				fmt.Fprintf(out, "Analysing %d packages...\n", len(coords))
			}

			result, err := auditor.Correlate(cmd.Context(), mvn.Purls(coords))
			if err != nil {
				return err
			}
			report := &audit.Report{Coordinates: coords, Vulnerable: result}

			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report.Summary()); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Found %d packages with advisories.\n", len(result))
				renderReport(out, report)
			}

			if fail && len(result) > 0 {
				return errVulnerable
			}
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "read dependency-tree output from this file")
	c.Flags().StringVar(&format, "format", "table", "output format: table or json")
	c.Flags().BoolVar(&fail, "fail", false, "exit non-zero when any package has advisories")
	c.Flags().BoolVar(&useCache, "cache", false, "reuse vulnerability records cached in the SQLite database")

	return c
}

// renderReport prints one table per vulnerable purl, in tree order.
func renderReport(w io.Writer, report *audit.Report) {
	for _, purl := range report.VulnerablePurls() {
		rows := make([][]string, 0, len(report.Vulnerable[purl]))
		for _, v := range report.Vulnerable[purl] {
			fixed, ok := v.FixedVersion()
			if !ok {
				fixed = "unknown"
			}
			rows = append(rows, []string{v.ID, v.Summary, fixed})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Id", "Summary", "Fixed").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 1:
					return summaryStyle
				case col == 2:
					return fixedStyle
				default:
					return cellStyle
				}
			})

		fmt.Fprintln(w, titleStyle.Render(purl))
		fmt.Fprintln(w, t.Render())
	}
}
