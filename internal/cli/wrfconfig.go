package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crs4/tdm/internal/adapter/yamlfile"
	"github.com/crs4/tdm/internal/wrf"
)

func newWRFConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrf-config",
		Short: "Inspect, edit and render layered WRF run configurations",
	}

	cmd.AddCommand(newShowCommand(a))
	cmd.AddCommand(newGetCommand(a))
	cmd.AddCommand(newSetCommand(a))
	cmd.AddCommand(newNamelistCommand(a))

	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "List domains in grid order with their ids and parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfigurator(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDOMAIN\tPARENT")
			for _, d := range c.Domains() {
				parent := d.Parent
				if d.IsRoot() {
					parent = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.Name, parent)
			}
			return tw.Flush()
		},
	}
}

func newGetCommand(a *app) *cobra.Command {
	var inherit bool
	cmd := &cobra.Command{
		Use:   "get FILE PATH...",
		Short: "Print values by dotted path (@domain.key for domain settings)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfigurator(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range args[1:] {
				v, err := lookup(c, path, inherit)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s = %s\n", path, display(v))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&inherit, "inherit", false, "fall back to ancestor domains and global settings for @domain paths")
	return cmd
}

func newSetCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "set FILE PATH=VALUE...",
		Short: "Apply a bulk update and write the resulting configuration as YAML",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfigurator(args[0])
			if err != nil {
				return err
			}
			updates, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			if err := c.Update(updates); err != nil {
				return err
			}
			a.logger.Debug("configuration updated", "file", args[0], "keys", len(updates))

			tree, err := c.Tree()
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, func(w io.Writer) error {
				return yamlfile.Write(w, tree)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newNamelistCommand(a *app) *cobra.Command {
	var (
		output string
		sets   []string
	)
	cmd := &cobra.Command{
		Use:   "namelist FILE",
		Short: "Render the configuration as a WRF namelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfigurator(args[0])
			if err != nil {
				return err
			}
			if len(sets) > 0 {
				updates, err := parseAssignments(sets)
				if err != nil {
					return err
				}
				if err := c.Update(updates); err != nil {
					return err
				}
			}
			return writeOutput(cmd, output, func(w io.Writer) error {
				return wrf.RenderNamelist(w, c)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override PATH=VALUE before rendering (repeatable)")
	return cmd
}

func (a *app) loadConfigurator(path string) (*wrf.Configurator, error) {
	raw, err := yamlfile.Load(path)
	if err != nil {
		return nil, err
	}
	c, err := wrf.Make(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("configuration loaded", "file", path, "domains", len(c.DomainsSequence()))
	return c, nil
}

func lookup(c *wrf.Configurator, path string, inherit bool) (wrf.Value, error) {
	if !inherit {
		return c.Get(path)
	}
	p, err := wrf.ParsePath(path)
	if err != nil {
		return wrf.Value{}, err
	}
	if !p.IsDomain() {
		return c.Get(path)
	}
	return c.Resolve(p.Domain, p.Key)
}

// parseAssignments turns PATH=VALUE arguments into an update batch. Values
// are read as YAML scalars, so 131 is an integer and "131" a string.
func parseAssignments(args []string) (map[string]wrf.Value, error) {
	updates := make(map[string]wrf.Value, len(args))
	for _, arg := range args {
		path, raw, ok := strings.Cut(arg, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected PATH=VALUE", arg)
		}
		v, err := yamlfile.ParseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		updates[path] = v
	}
	return updates, nil
}

func display(v wrf.Value) string {
	if s, ok := v.AsString(); ok {
		return strconv.Quote(s)
	}
	return v.String()
}

func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
