package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dicklesworthstone/sysmon/internal/config"
	"github.com/Dicklesworthstone/sysmon/internal/export"
	"github.com/Dicklesworthstone/sysmon/internal/logging"
	"github.com/Dicklesworthstone/sysmon/internal/sampler"
	"github.com/Dicklesworthstone/sysmon/internal/source"
	"github.com/Dicklesworthstone/sysmon/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "sysmon:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.FromFlags(args)
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel) // validated by FromFlags

	// The TUI owns the terminal, so it only logs to a file.
	var fallback io.Writer = os.Stderr
	if !cfg.JSON && !cfg.JSONStream {
		fallback = nil
	}
	logger, closeLog, err := logging.New(level, cfg.LogFile, fallback)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sampler.New(source.NewHost(ctx), sampler.Options{
		Interval:      cfg.Interval,
		HistoryLength: cfg.HistoryLength,
		FetchTimeout:  cfg.FetchTimeout,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	h := s.Start(ctx)

	var presentErr error
	switch {
	case cfg.JSON:
		presentErr = export.WriteOnce(ctx, os.Stdout, s.Store())
	case cfg.JSONStream:
		presentErr = export.Stream(ctx, os.Stdout, s.Store())
	default:
		presentErr = ui.Run(cfg, s.Store(), h)
	}

	faultErr := h.Stop()
	if errors.Is(presentErr, context.Canceled) {
		presentErr = nil
	}
	return errors.Join(faultErr, presentErr)
}
