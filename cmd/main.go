package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	cfgPkg "github.com/xhad/litkb/pkg/config"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"ingest", "ingest [-analyze] <articles.json>", runIngest},
	{"fetch", "fetch -query q [-out file.json]", runFetch},
	{"ask", "ask [-k n] [-year y] [-risk-type t] <question>", runAsk},
	{"chat", "chat", runChat},
	{"summarize", "summarize -titles \"a;b\" [-focus q]", runSummarize},
	{"gaps", "gaps [-domain d] [-k n]", runGaps},
	{"graph", "graph [-kind author|keyword|article] [-threshold t] <articles.json>", runGraph},
	{"monitor", "monitor [-once]", runMonitor},
	{"stats", "stats", runStats},
	{"reset", "reset -yes", runReset},
	{"serve", "serve [-addr :8080] [-monitor]", runServe},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: litkb [-config file] [-db-url url] [-log-level level] <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
}

func main() {
	var configPath, dbURL, logLevel string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := findCommand(flag.Arg(0))
	if !ok {
		color.Red("unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		color.Red("%v\n", err)
		os.Exit(1)
	}
	if dbURL != "" {
		config.Database.URL = dbURL
	}
	if logLevel != "" {
		config.Log.Level = logLevel
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v\n", e)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, cmd, flag.Args()[1:]); err != nil {
		color.Red("Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func run(ctx context.Context, config *cfgPkg.Config, cmd command, args []string) error {
	a, err := newApp(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, args)
}
