package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/client"
	"github.com/meikuraledutech/flow/codec"
	"github.com/meikuraledutech/flow/config"
	"github.com/meikuraledutech/flow/session"
)

type app struct {
	configPath string
	baseURL    string
	output     string

	cfg    *config.Config
	logger *slog.Logger
	api    *client.Client
	out    io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Inspect, check and build flow projects",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&a.baseURL, "api", "", "Backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text, json or yaml")

	packagesCmd := &cobra.Command{
		Use:   "packages",
		Short: "List the packages served by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := a.api.ListPackages(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(pkgs, func(w io.Writer) {
				for _, p := range pkgs {
					fmt.Fprintf(w, "%-24s %s\n", p.Name, p.Version)
				}
			})
		},
	}

	var active []string
	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List the catalog types of the active packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := a.api.ListPackages(cmd.Context())
			if err != nil {
				return err
			}
			if len(active) == 0 {
				active = slices.Concat(a.implicit(), a.cfg.Packages.Active)
			}
			cat := catalog.Build(pkgs, active, catalog.WithLogger(a.logger))
			names := cat.Names()
			return a.print(names, func(w io.Writer) {
				for _, name := range names {
					def, _ := cat.Lookup(name)
					kinds := slices.Sorted(maps.Keys(def.Constructors))
					fmt.Fprintf(w, "%-48s %s\n", name, strings.Join(kinds, ","))
				}
			})
		},
	}
	typesCmd.Flags().StringSliceVar(&active, "active", nil, "Active package names (default: implicit + packages.active)")

	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage stored projects",
	}
	projectsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.api.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(projects, func(w io.Writer) {
				for _, p := range projects {
					fmt.Fprintf(w, "%-24s %-10s %d nodes, %d connections\n",
						p.Name, p.Version, len(p.Flow.Nodes), len(p.Flow.Connections))
				}
			})
		},
	}, &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	})

	exportCmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Print a stored project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.api.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: %s", flow.ErrProjectNotFound, args[0])
			}
			if a.output == "text" {
				a.output = "json"
			}
			return a.print(p, nil)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check a project document against the backend's packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readProject(args[0])
			if err != nil {
				return err
			}
			pkgs, err := a.api.ListPackages(cmd.Context())
			if err != nil {
				return err
			}
			if err := codec.Check(doc, catalog.Flatten(pkgs, catalog.WithLogger(a.logger))); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: ok\n", doc.Name)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Open a project document in an editing session and save it to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readProject(args[0])
			if err != nil {
				return err
			}
			s := a.session()
			if err := s.Load(cmd.Context(), doc, a.cfg.Packages.Active); err != nil {
				return err
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s: %d nodes, %d connections\n",
				doc.Name, s.Graph().Len(), s.Graph().ConnectionCount())
			return nil
		},
	}

	var buildType string
	compileCmd := &cobra.Command{
		Use:   "compile NAME",
		Short: "Compile a stored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bt, err := flow.ParseBuildType(buildType)
			if err != nil {
				return err
			}
			logText, err := a.api.Compile(cmd.Context(), args[0], bt)
			var ce *client.CompileError
			if errors.As(err, &ce) {
				return a.print(ce.Diagnostics, func(w io.Writer) {
					for _, d := range ce.Diagnostics {
						fmt.Fprintf(w, "error[%s]: %s\n%s\n\n", d.Code, d.Title, d.Message)
					}
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, logText)
			return nil
		},
	}

	lastCompileCmd := &cobra.Command{
		Use:   "last-compile NAME",
		Short: "Show when a project was last compiled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bt, err := flow.ParseBuildType(buildType)
			if err != nil {
				return err
			}
			lc, err := a.api.LastCompile(cmd.Context(), args[0], bt)
			if err != nil {
				return err
			}
			return a.print(lc, func(w io.Writer) { fmt.Fprintln(w, lc.ModifiedTime) })
		},
	}

	runCmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a compiled project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bt, err := flow.ParseBuildType(buildType)
			if err != nil {
				return err
			}
			p, err := a.api.Run(cmd.Context(), args[0], bt)
			if err != nil {
				return err
			}
			return a.print(p, func(w io.Writer) { fmt.Fprintf(w, "process %d\n", p.ProcessID) })
		},
	}
	for _, c := range []*cobra.Command{compileCmd, lastCompileCmd, runCmd} {
		c.Flags().StringVar(&buildType, "build-type", string(flow.BuildCargo), "Build type: wasm or cargo")
	}

	stopCmd := &cobra.Command{
		Use:   "stop PID",
		Short: "Stop a running process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid process id %q", args[0])
			}
			return a.api.StopProcess(cmd.Context(), pid)
		},
	}

	logsCmd := &cobra.Command{
		Use:   "logs PID",
		Short: "Print the logs of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid process id %q", args[0])
			}
			lines, err := a.api.ProcessLogs(cmd.Context(), pid)
			if err != nil {
				return err
			}
			return a.print(lines, func(w io.Writer) {
				for _, l := range lines {
					fmt.Fprintln(w, l)
				}
			})
		},
	}

	rootCmd.AddCommand(packagesCmd, typesCmd, projectsCmd, exportCmd, checkCmd, importCmd,
		compileCmd, lastCompileCmd, runCmd, stopCmd, logsCmd)
	rootCmd.SetOut(out)
	rootCmd.SetContext(context.Background())
	return rootCmd
}

func (a *app) setup() error {
	switch a.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", a.output)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	a.cfg = cfg
	a.logger = config.NewLogger(os.Stderr, cfg.Log)
	opts := []client.Option{client.WithLogger(a.logger)}
	if cfg.API.Timeout > 0 {
		opts = append(opts, client.WithTimeout(cfg.API.Timeout))
	}
	a.api = client.New(cfg.API.BaseURL, opts...)
	return nil
}

func (a *app) implicit() []string {
	if len(a.cfg.Packages.Implicit) > 0 {
		return a.cfg.Packages.Implicit
	}
	return codec.DefaultImplicitPackages
}

func (a *app) session() *session.Session {
	return session.New(a.api, a.api,
		session.WithLogger(a.logger),
		session.WithImplicitPackages(a.implicit()...),
		session.WithConnectionPolicy(a.cfg.ConnectionPolicy()),
		session.WithConstraintPolicy(a.cfg.ConstraintPolicy()),
	)
}

// print writes v in the selected format; text falls back to JSON when no
// text renderer is given.
func (a *app) print(v any, text func(io.Writer)) error {
	switch {
	case a.output == "yaml":
		return writeYAML(a.out, v)
	case a.output == "json" || text == nil:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		text(a.out)
		return nil
	}
}

// writeYAML renders v through its JSON form so the custom JSON encodings of
// the flow types carry over.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

func readProject(path string) (*flow.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p flow.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}
