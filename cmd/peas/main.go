// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Command peas is the peer client: it either stamps out a new room file or
// joins an existing room and runs the chat loop, interactively or as a
// scripted bot.
package main

import (
	"fmt"
	"net"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"

	"github.com/stan3984/peas-rf-cp/pkg/netpeer"
	"github.com/stan3984/peas-rf-cp/pkg/peaslog"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/roomfile"
)

// cliArgs is validated as a whole after cobra parses the raw flags, since
// the constraints between --new-room, --join, --username and --tracker
// cross several fields.
type cliArgs struct {
	NewRoom   string `validate:"omitempty"`
	Join      string `validate:"required_without=NewRoom,omitempty,file"`
	Username  string `validate:"required_without=NewRoom"`
	Tracker   string `validate:"required_without=NewRoom,omitempty,hostname_port"`
	Bot       bool
	LogLevel  string `validate:"oneof=off error warn info debug trace all"`
	LogStderr bool
}

var args cliArgs

var rootCmd = &cobra.Command{
	Use:   "peas",
	Short: "Serverless, room-based peer-to-peer chat",
	RunE:  runPeas,
}

func init() {
	registerFlags(rootCmd.Flags())
}

func registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&args.NewRoom, "new-room", "", "create a new room file named <name>.peas-room and exit")
	fs.StringVar(&args.Join, "join", "", "path to a room file to join")
	fs.StringVar(&args.Username, "username", "", "display name to join as")
	fs.StringVar(&args.Tracker, "tracker", "", "tracker address, host:port")
	fs.BoolVar(&args.Bot, "bot", false, "replace the interactive UI with an auto-chatter")
	fs.StringVar(&args.LogLevel, "log", "off", "log verbosity: off, error, warn, info, debug, trace, all")
	fs.BoolVar(&args.LogStderr, "log-stderr", false, "log to stderr instead of a file")
}

func runPeas(cmd *cobra.Command, cmdArgs []string) error {
	if args.NewRoom != "" {
		if args.Username != "" || args.Join != "" {
			return errs.New("--new-room conflicts with --username and --join")
		}
		return createRoom(args.NewRoom)
	}

	if err := validator.New().Struct(args); err != nil {
		return errs.Wrap(err)
	}

	return joinRoom(args)
}

func createRoom(name string) error {
	id := peerid.NewRandom()
	path := name + roomfile.Ext
	if err := roomfile.Write(path, id); err != nil {
		return errs.New("could not create room file: %+v", err)
	}
	fmt.Printf("created room %s (id %s)\n", path, id)
	return nil
}

func joinRoom(a cliArgs) error {
	room, err := roomfile.Read(a.Join)
	if err != nil {
		return errs.New("could not read room file: %+v", err)
	}

	trackerAddr, err := net.ResolveUDPAddr("udp4", a.Tracker)
	if err != nil {
		return errs.New("invalid tracker address %q: %+v", a.Tracker, err)
	}

	level, err := peaslog.ParseLevel(a.LogLevel)
	if err != nil {
		return errs.Wrap(err)
	}
	logger, err := peaslog.New(level, a.LogStderr)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { _ = logger.Sync() }()

	handle := netpeer.New(netpeer.Config{
		UserID:   peerid.NewRandom(),
		UserName: a.Username,
		RoomID:   room,
		Trackers: []net.Addr{trackerAddr},
		Log:      logger,
	})

	if a.Bot {
		runBot(handle, logger)
		return nil
	}

	p := tea.NewProgram(newChatModel(handle))
	_, err = p.Run()
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
