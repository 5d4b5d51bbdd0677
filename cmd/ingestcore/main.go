package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/lmittmann/tint"

	"github.com/halvardwex/ingestcore/config"
	"github.com/halvardwex/ingestcore/task"
)

type ParseCmd struct {
	Files []string `arg:"" name:"file" help:"Message file(s) to parse." type:"existingfile"`
}

func (p *ParseCmd) Run(cli *CLI, logger *slog.Logger) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	for _, path := range p.Files {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Error("reading file", slog.String("path", path), slog.Any("err", err))
			continue
		}
		tsk, err := task.Process(raw, cfg)
		if err != nil {
			logger.Error("processing message", slog.String("path", path), slog.Any("err", err))
			continue
		}
		printSummary(path, tsk)
		tsk.Close()
	}
	return nil
}

func printSummary(path string, tsk *task.Task) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  message-id: %s\n", tsk.MessageID)
	fmt.Printf("  subject:    %s\n", tsk.Subject)
	fmt.Printf("  from:       %v\n", tsk.FromAddrs)
	fmt.Printf("  recipients: %v\n", tsk.Recipients)
	fmt.Printf("  urls:       %d\n", len(tsk.URLs))
	for _, u := range tsk.URLs {
		fmt.Printf("    - %s://%s%s\n", u.Scheme, u.Host, u.Path)
	}
	fmt.Printf("  text parts: %d\n", len(tsk.TextParts))
	if tsk.HasPartsDistance {
		fmt.Printf("  parts diff: %d (ratio %.3f)\n", tsk.PartsDistance, tsk.PartsRatio)
	}
	if tsk.Flags&task.FlagGtube != 0 {
		fmt.Printf("  verdict:    %s (%s)\n", "reject", tsk.Verdict.Message)
	}
	fmt.Printf("  digest:     %x\n", tsk.Digest)
}

type CLI struct {
	LogLevel   slog.Level `name:"log-level" help:"Log level." env:"INGESTCORE_LOG_LEVEL" default:"INFO" enum:"DEBUG,INFO,WARN,ERROR"`
	ConfigFile string     `name:"config" help:"Path to the YAML configuration file." env:"INGESTCORE_CONFIG" optional:""`

	Parse ParseCmd `cmd:"" help:"Parse one or more message files and print a summary."`
}

func (cli *CLI) loadConfig() (*config.Config, error) {
	if cli.ConfigFile == "" {
		d := config.Default()
		return &d, nil
	}
	return config.Load(cli.ConfigFile)
}

func (cli *CLI) initLogger() *slog.Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{Level: cli.LogLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cli.LogLevel})
	}
	return slog.New(handler)
}

func main() {
	var cli CLI
	kongCtx := kong.Parse(&cli)
	logger := cli.initLogger()
	err := kongCtx.Run(&cli, logger)
	kongCtx.FatalIfErrorf(err)
}
