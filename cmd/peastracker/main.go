// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Command peastracker runs the reference tracker server: a small UDP
// service that lets newly joining peers discover an existing room member.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"golang.org/x/sync/errgroup"

	"github.com/stan3984/peas-rf-cp/pkg/peaslog"
	"github.com/stan3984/peas-rf-cp/pkg/trackersrv"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "peastracker",
	Short: "Run the peas reference tracker server",
	RunE:  runTracker,
}

func init() {
	registerFlags(rootCmd.Flags())

	if err := v.BindPFlags(rootCmd.Flags()); err != nil {
		panic(err)
	}
}

// registerFlags takes the *pflag.FlagSet directly (rather than only going
// through cobra's wrapper) since viper's BindPFlags needs the concrete
// pflag type to read defaults and shorthand back out.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("bind", "0.0.0.0:9876", "address to bind the tracker's UDP socket to")
	fs.String("log", "off", "log verbosity: off, error, warn, info, debug, trace, all")
	fs.Bool("log-stderr", false, "log to stderr instead of a file")
}

func runTracker(cmd *cobra.Command, args []string) error {
	level, err := peaslog.ParseLevel(v.GetString("log"))
	if err != nil {
		return errs.Wrap(err)
	}
	logger, err := peaslog.New(level, v.GetBool("log-stderr"))
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { _ = logger.Sync() }()

	sock, err := udptransport.Bind(v.GetString("bind"))
	if err != nil {
		return errs.New("could not bind tracker socket: %+v", err)
	}
	defer func() { _ = sock.Close() }()

	srv := trackersrv.New(sock, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-sigCh:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	fmt.Printf("peastracker listening on %s\n", sock.LocalAddr())
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return errs.New("tracker server stopped: %+v", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
