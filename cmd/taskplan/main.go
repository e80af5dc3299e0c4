package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskplan/internal/config"
	"github.com/sandeepkv93/taskplan/internal/mcp"
	"github.com/sandeepkv93/taskplan/internal/tui"
)

const version = "0.1.0"

var (
	configPath string
	ownerFlag  string
	dbFlag     string
)

func main() {
	flag.StringVar(&configPath, "config", "taskplan.yaml", "Path to YAML config file")
	flag.StringVar(&ownerFlag, "owner", "", "Owner id (overrides config)")
	flag.StringVar(&dbFlag, "db-path", "", "Path to database file (overrides config)")
	flag.Usage = printUsage
	flag.Parse()

	command := "tui"
	var args []string
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	switch command {
	case "version":
		fmt.Printf("taskplan %s\n", version)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "taskplan: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "tui":
		program := tea.NewProgram(tui.NewModel(ctx, a.svc, cfg.Owner), tea.WithContext(ctx))
		_, err := program.Run()
		return err
	case "mcp":
		return mcp.Serve(mcp.NewServer(a.planner, a.svc, cfg.Owner))
	case "watch":
		if len(args) != 1 {
			return fmt.Errorf("usage: taskplan watch <input.json>")
		}
		return runWatch(ctx, a, args[0], os.Stdout)
	default:
		return runCommand(ctx, a, cfg.Owner, strings.Join(append([]string{command}, args...), " "), os.Stdout)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if ownerFlag != "" {
		cfg.Owner = ownerFlag
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	return cfg, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: taskplan [-config file] [-owner id] [-db-path file] <command> [args]

commands:
  tui                       browse and replan interactively (default)
  import <file.json>        replace the owner's tasks, events and availability
  export [file.json]        write the owner's planning input
  plan [local]              replan the owner's tasks
  show [blocks|failures|notes|report]
  apply                     commit scheduled blocks as calendar events
  lock|unlock <task> <field>
  watch <file.json>         replan an input file whenever it changes
  mcp                       serve MCP tools on stdio
  version`)
}
