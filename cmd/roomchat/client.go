package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/client"
	roomlog "github.com/vovakirdan/roomchat-server/internal/log"
)

type clientOptions struct {
	server   string
	room     string
	create   string
	name     string
	token    string
	interval time.Duration
	width    int
	live     bool
	logLevel string
}

func newClientCmd() *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Open a room in the terminal",
		Long: "Creates or opens a room, asks for a display name and polls for new messages.\n" +
			"Lines typed on stdin are sent to the room.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", "http://localhost:8080", "server base URL")
	flags.StringVar(&opts.room, "room", "", "room token to open")
	flags.StringVar(&opts.create, "create", "", "create a room with this name and open it")
	flags.StringVar(&opts.name, "name", "", "display name (asked for when empty)")
	flags.StringVar(&opts.token, "token", "", "optional bearer token")
	flags.DurationVar(&opts.interval, "interval", client.DefaultPollInterval, "poll interval")
	flags.IntVar(&opts.width, "width", client.DefaultWidth, "terminal width for alignment")
	flags.BoolVar(&opts.live, "live", false, "follow the room over the WebSocket instead of polling")
	flags.StringVar(&opts.logLevel, "client-log-level", "warn", "client log level")
	return cmd
}

func runClient(cmd *cobra.Command, opts *clientOptions) error {
	if (opts.room == "") == (opts.create == "") {
		return errors.New("exactly one of --room or --create is required")
	}

	logger := roomlog.NewWithOutput(opts.logLevel, os.Stderr)
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clientOpts []client.Option
	if opts.token != "" {
		clientOpts = append(clientOpts, client.WithToken(opts.token))
	}
	c := client.New(opts.server, clientOpts...)

	roomID := opts.room
	if opts.create != "" {
		created, err := c.CreateRoom(ctx, opts.create)
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		roomID = created.RoomID
		fmt.Fprintf(out, "created room %q, share this token: %s\n", created.Name, roomID)
	}

	room, err := c.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("open room: %w", err)
	}

	stdin := bufio.NewReader(cmd.InOrStdin())
	name := strings.TrimSpace(opts.name)
	for name == "" {
		fmt.Fprint(out, "Your name: ")
		line, err := stdin.ReadString('\n')
		name = strings.TrimSpace(line)
		if err != nil && name == "" {
			if errors.Is(err, io.EOF) {
				return errors.New("a display name is required")
			}
			return err
		}
	}

	render := client.NewRenderer(out, name, opts.width)
	render.Info("room %s (%s) as %s, type a message and press Enter", room.Name, room.RoomID, name)

	if opts.live {
		live, err := client.NewLiveSession(c.BaseURL(), room.RoomID, name, opts.token, render, logger)
		if err != nil {
			return err
		}
		return live.Run(ctx, stdin)
	}
	return client.NewSession(c, room.RoomID, name, opts.interval, render, logger).Run(ctx, stdin)
}
