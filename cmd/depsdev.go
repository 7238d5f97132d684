package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"mvn-audit/depsdev"
	"mvn-audit/mvn"

	"github.com/package-url/packageurl-go"
	"github.com/spf13/cobra"
)

func (a *app) depsdevCmd() *cobra.Command {
	var system string

	c := &cobra.Command{
		Use:   "depsdev",
		Short: "Query the deps.dev API directly",
	}
	c.PersistentFlags().StringVar(&system, "system", mvn.System, "package system (MAVEN, NPM, PYPI, GO, CARGO, NUGET)")

	c.AddCommand(
		&cobra.Command{
			Use:   "package <name>",
			Short: "Show a package and its versions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pkg, err := a.depsdevClient().GetPackage(cmd.Context(), strings.ToUpper(system), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, pkg)
			},
		},
		&cobra.Command{
			Use:   "version <name> [version]",
			Short: "Show one version of a package, the default one when omitted",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				client := a.depsdevClient()
				key := depsdev.VersionKey{System: strings.ToUpper(system), Name: args[0]}
				if len(args) == 2 {
					key.Version = args[1]
				} else {
					pkg, err := client.GetPackage(cmd.Context(), key.System, key.Name)
					if err != nil {
						return err
					}
					var ok bool
					if key.Version, ok = pkg.DefaultVersion(); !ok {
						return fmt.Errorf("%s has no default version", key.Name)
					}
				}

				v, err := client.GetVersion(cmd.Context(), key)
				if err != nil {
					return err
				}
				return printJSON(cmd, v)
			},
		},
		&cobra.Command{
			Use:   "advisory <id>",
			Short: "Show a security advisory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				adv, err := a.depsdevClient().GetAdvisory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, adv)
			},
		},
		&cobra.Command{
			Use:   "purl <purl>",
			Short: "Resolve a package URL",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := packageurl.FromString(args[0]); err != nil {
					return fmt.Errorf("invalid purl %q: %w", args[0], err)
				}
				res, err := a.depsdevClient().PurlLookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			},
		},
		&cobra.Command{
			Use:   "project <id>",
			Short: "Show a source project, e.g. github.com/snakeyaml/snakeyaml",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.depsdevClient().GetProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, p)
			},
		},
	)

	return c
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
