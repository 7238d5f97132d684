package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mvn-audit/depsdev"
	"mvn-audit/mvn"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type packageInsight struct {
	Package    string   `json:"package"`
	Found      bool     `json:"found"`
	Licenses   []string `json:"licenses,omitempty"`
	Advisories []string `json:"advisories,omitempty"`
	SourceRepo string   `json:"sourceRepo,omitempty"`
	Scorecard  *float64 `json:"scorecard,omitempty"`
}

func (a *app) inspectCmd() *cobra.Command {
	var (
		file      string
		format    string
		scorecard bool
	)

	c := &cobra.Command{
		Use:   "inspect",
		Short: "Show deps.dev licenses and advisories for every package of a dependency tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported format %q", format)
			}

			coords, err := readTree(cmd, file)
			if err != nil {
				return err
			}

			client := a.depsdevClient()

			keys := make([]depsdev.VersionKey, len(coords))
			for i, coord := range coords {
				keys[i] = coord.VersionKey()
			}
			a.log.Debugf("Looking up %d versions on deps.dev", len(keys))

			versions, err := client.GetVersionBatch(cmd.Context(), keys)
			if err != nil {
				return err
			}

			insights := make([]packageInsight, len(coords))
			for i, coord := range coords {
				insights[i] = newInsight(coord, versions[i])
			}

			if scorecard {
				g, ctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(a.settings.MaxConcurrent)
				for i, v := range versions {
					if v == nil {
						continue
					}
					g.Go(func() error {
						info := client.GetScorecardData(ctx, v)
						insights[i].SourceRepo = info.SourceRepo
						insights[i].Scorecard = info.OpenSSFScore
						return nil
					})
				}
				_ = g.Wait()
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(insights)
			}
			renderInsights(out, insights)
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "read dependency-tree output from this file")
	c.Flags().StringVar(&format, "format", "table", "output format: table or json")
	c.Flags().BoolVar(&scorecard, "scorecard", false, "also fetch the OpenSSF scorecard of each source repository")

	return c
}

func newInsight(c mvn.PackageCoordinate, v *depsdev.Version) packageInsight {
	insight := packageInsight{Package: c.String()}
	if v == nil {
		return insight
	}
	insight.Found = true
	insight.Licenses = v.Licenses
	for _, adv := range v.AdvisoryKeys {
		insight.Advisories = append(insight.Advisories, adv.ID)
	}
	return insight
}

func renderInsights(w io.Writer, insights []packageInsight) {
	rows := make([][]string, 0, len(insights))
	for _, in := range insights {
		licenses, advisories, score := "-", "-", "-"
		if !in.Found {
			licenses = "not found"
		}
		if len(in.Licenses) > 0 {
			licenses = strings.Join(in.Licenses, ", ")
		}
		if len(in.Advisories) > 0 {
			advisories = strings.Join(in.Advisories, "\n")
		}
		if in.Scorecard != nil {
			score = fmt.Sprintf("%.1f", *in.Scorecard)
		}
		rows = append(rows, []string{in.Package, licenses, advisories, score})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Package", "Licenses", "Advisories", "Scorecard").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.Render())
}
