package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/doctor"
	"github.com/example/anvil/internal/docs"
	"github.com/example/anvil/internal/ledger"
	"github.com/example/anvil/internal/mcp"
	"github.com/example/anvil/internal/pipeline"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/scaffold"
	"github.com/example/anvil/internal/ux"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "anvil",
		Usage:       "Budget-governed agent pipeline runner",
		Description: "Run 'anvil docs' for documentation on configuration, tiers, gates, and resume.",
		Commands: []*cli.Command{
			initCmd(),
			runCmd(),
			serveCmd(),
			statusCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		var xe *pipeline.ExitError
		if errors.As(err, &xe) {
			os.Exit(xe.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run the pipeline for a ticket",
		ArgsUsage: "<ticket>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tier", Usage: "Override the configured tier (guard|nano|quick|lite|standard|full|auto)"},
			&cli.StringFlag{Name: "resume", Usage: "Resume a previous run directory"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectRoot, err := findProjectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(projectRoot)
			if err != nil {
				return err
			}

			ticket := cmd.Args().First()
			resumeDir := cmd.String("resume")
			tier := cmd.String("tier")
			resumePhase := ""

			var dir runlog.Dir
			if resumeDir != "" {
				dir, err = runlog.Open(resumeDir)
				if err != nil {
					return err
				}
				cp, err := checkpoint.NewManager(dir).Load()
				if err != nil {
					return fmt.Errorf("resume: %w", err)
				}
				resumePhase = cp.CurrentPhase
				if ticket == "" {
					ticket = cp.Ticket
				}
				if tier == "" {
					tier = cp.Tier
				}
			} else {
				if ticket == "" {
					return fmt.Errorf("ticket argument is required")
				}
				dir, err = runlog.New(filepath.Join(projectRoot, cfg.LogBaseDir))
				if err != nil {
					return err
				}
			}

			if err := config.ValidateTicket(cfg.TicketPattern, ticket); err != nil {
				return err
			}
			if kill := filepath.Join(projectRoot, cfg.KillSwitchFile); fileExists(kill) {
				ux.Warn("kill switch file %s exists; the run will abort at the first phase boundary", kill)
			}
			if err := agent.Preflight(cfg.AgentCommand); err != nil {
				return err
			}

			inv := &agent.CLIInvoker{
				Command: cfg.AgentCommand,
				WorkDir: projectRoot,
			}
			ctrl, err := pipeline.New(cfg, dir, ticket, projectRoot, tier, resumePhase, inv)
			if err != nil {
				return err
			}

			label := tier
			if label == "" {
				label = cfg.Tier
			}
			ux.Banner(ticket, label, dir.String())

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			return ctrl.Run(ctx)
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve pipeline tools over MCP (JSON-RPC on stdin/stdout)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectRoot, err := findProjectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(projectRoot)
			if err != nil {
				return err
			}
			// stdout carries the protocol; progress rendering moves aside.
			ux.SetWriter(os.Stderr)

			srv := &mcp.Server{
				Config: cfg,
				Run: func(ctx context.Context, ticket, tier string, maxBudget float64) error {
					runCfg := *cfg
					if maxBudget > 0 {
						runCfg.MaxPipelineCostUSD = maxBudget
					}
					if err := config.ValidateTicket(runCfg.TicketPattern, ticket); err != nil {
						return err
					}
					if err := agent.Preflight(runCfg.AgentCommand); err != nil {
						return err
					}
					dir, err := runlog.New(filepath.Join(projectRoot, runCfg.LogBaseDir))
					if err != nil {
						return err
					}
					inv := &agent.CLIInvoker{Command: runCfg.AgentCommand, WorkDir: projectRoot}
					ctrl, err := pipeline.New(&runCfg, dir, ticket, projectRoot, tier, "", inv)
					if err != nil {
						return err
					}
					return ctrl.Run(ctx)
				},
				In:  os.Stdin,
				Out: os.Stdout,
				Log: os.Stderr,
			}
			return srv.Serve(ctx)
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the state of a run",
		ArgsUsage: "[run-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := resolveRunDir(cmd.Args().First())
			if err != nil {
				return err
			}
			cp, err := checkpoint.NewManager(dir).Load()
			if err != nil {
				return err
			}
			ldg, err := ledger.Load(dir)
			if err != nil {
				return err
			}

			rs := ux.RunStatus{
				Dir:          dir.String(),
				Status:       cp.Status,
				CurrentPhase: cp.CurrentPhase,
				Ticket:       cp.Ticket,
				Tier:         cp.Tier,
				TotalUSD:     ldg.Total,
				Timestamp:    cp.Timestamp.Local().Format("2006-01-02 15:04:05"),
			}
			for _, r := range ldg.Records {
				rs.Phases = append(rs.Phases, ux.PhaseStatus{Name: r.Name, CostUSD: r.Cost, Turns: r.Turns})
			}
			ux.RenderStatus(rs)
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:      "doctor",
		Usage:     "Diagnose a failed run using the agent",
		ArgsUsage: "[run-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectRoot, err := findProjectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(projectRoot)
			if err != nil {
				return err
			}
			dir, err := resolveRunDir(cmd.Args().First())
			if err != nil {
				return err
			}
			inv := &agent.CLIInvoker{Command: cfg.AgentCommand, WorkDir: projectRoot}
			return doctor.Run(ctx, inv, cfg, dir)
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a .anvil/ directory with a starter pipeline config",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(ctx, dir)
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'anvil docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

func loadConfig(projectRoot string) (*config.Config, error) {
	cfg, err := config.Load(filepath.Join(projectRoot, ".anvil", "pipeline.yaml"), projectRoot)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// resolveRunDir opens the named run directory, or the most recent one under
// the log base when no argument is given.
func resolveRunDir(arg string) (runlog.Dir, error) {
	if arg != "" {
		return runlog.Open(arg)
	}
	projectRoot, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	cfg, err := loadConfig(projectRoot)
	if err != nil {
		return "", err
	}
	base := filepath.Join(projectRoot, cfg.LogBaseDir)
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("no runs under %s: %w", base, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no runs under %s", base)
	}
	sort.Strings(names)
	return runlog.Open(filepath.Join(base, names[len(names)-1]))
}

// findProjectRoot walks up from cwd looking for .anvil/pipeline.yaml.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if fileExists(filepath.Join(dir, ".anvil", "pipeline.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .anvil/pipeline.yaml found (searched from cwd to root)")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
