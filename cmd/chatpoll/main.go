// chatpoll 是一个命令行聊天客户端：通过固定间隔轮询展示房间与消息，并提供各类写操作。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"roomchat/internal/api"
	"roomchat/internal/client"
	clog "roomchat/internal/log"
	"roomchat/internal/poller"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errMissingCredentials = errors.New("username and password are required (--user/--password or CHAT_USER/CHAT_PASSWORD)")

type options struct {
	server   string
	username string
	password string
	interval time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// login 创建客户端并登录，后续请求自动携带会话。
func (o *options) login(ctx context.Context) (*client.Client, error) {
	if o.username == "" || o.password == "" {
		return nil, errMissingCredentials
	}
	c, err := client.New(o.server)
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, o.username, o.password); err != nil {
		return nil, err
	}
	return c, nil
}

func main() {
	_ = godotenv.Load()
	clog.Init("dev", getenv("LOG_LEVEL", "warn"))

	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "chatpoll",
		Short:         "Polling command-line client for roomchat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.server, "server", getenv("CHAT_SERVER", "http://localhost:8080"), "server base URL")
	pf.StringVarP(&opts.username, "user", "u", os.Getenv("CHAT_USER"), "username")
	pf.StringVarP(&opts.password, "password", "p", os.Getenv("CHAT_PASSWORD"), "password")
	pf.DurationVar(&opts.interval, "interval", poller.DefaultInterval, "polling interval")

	rootCmd.AddCommand(
		registerCmd(opts),
		roomsCmd(opts),
		watchCmd(opts),
		sendCmd(opts),
		createRoomCmd(opts),
		deleteRoomCmd(opts),
		deleteMessageCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		// 服务端消息原样展示给用户。
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func registerCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account with --user and --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(opts.server)
			if err != nil {
				return err
			}
			u, err := c.Register(cmd.Context(), opts.username, opts.password)
			if err != nil {
				return err
			}
			role := "user"
			if u.IsRoot {
				role = "root"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %s, %s)\n", u.Username, u.ID, role)
			return nil
		},
	}
}

func roomsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List rooms once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.login(cmd.Context())
			if err != nil {
				return err
			}
			rooms, err := c.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			printRooms(cmd.OutOrStdout(), rooms)
			return nil
		},
	}
}

func watchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [roomId]",
		Short: "Poll the room list and, if a room is given, its messages until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c, err := opts.login(ctx)
			if err != nil {
				return err
			}
			s := poller.New(c, &consoleView{out: cmd.OutOrStdout()}, opts.interval)
			s.SetAuthenticated(ctx, true)
			if len(args) == 1 {
				s.Select(args[0])
			}
			<-ctx.Done()
			s.Close()
			return nil
		},
	}
}

func sendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <roomId> <content...>",
		Short: "Send a message as the logged-in user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.login(cmd.Context())
			if err != nil {
				return err
			}
			return c.SendMessage(cmd.Context(), args[0], opts.username, strings.Join(args[1:], " "))
		},
	}
}

func createRoomCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create-room <name>",
		Short: "Create a room owned by the logged-in user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.login(cmd.Context())
			if err != nil {
				return err
			}
			id, err := c.CreateRoom(cmd.Context(), opts.username, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created room %s (id %s)\n", args[0], id)
			return nil
		},
	}
}

func deleteRoomCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-room <roomId>",
		Short: "Delete a room and all of its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.login(cmd.Context())
			if err != nil {
				return err
			}
			return c.DeleteRoom(cmd.Context(), opts.username, args[0])
		},
	}
}

func deleteMessageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-message <messageId>",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.login(cmd.Context())
			if err != nil {
				return err
			}
			return c.DeleteMessage(cmd.Context(), args[0])
		},
	}
}

// consoleView 把快照打印到终端。轮询失败只记录日志，不打断循环。
type consoleView struct {
	out      io.Writer
	lastSeen string
}

func (v *consoleView) RoomsUpdated(rooms []api.RoomSummary) {
	// 房间列表只在变化时打印。
	key := roomsKey(rooms)
	if key == v.lastSeen {
		return
	}
	v.lastSeen = key
	printRooms(v.out, rooms)
}

func (v *consoleView) MessagesUpdated(roomID string, msgs []api.Message) {
	fmt.Fprintf(v.out, "\x1b[2J\x1b[H-- room %s (%d messages) --\n", roomID, len(msgs))
	for _, m := range msgs {
		ts := time.UnixMilli(m.Time).Format("15:04:05")
		fmt.Fprintf(v.out, "[%s] #%s %s: %s\n", ts, m.MessageID, m.Sender, m.Content)
	}
}

func (v *consoleView) SelectionCleared(roomID string) {
	fmt.Fprintf(v.out, "room %s was deleted\n", roomID)
}

func (v *consoleView) FetchFailed(feed poller.Feed, err error) {
	log.Warn().Err(err).Str("feed", string(feed)).Msg("fetch failed, retrying")
}

func roomsKey(rooms []api.RoomSummary) string {
	var b strings.Builder
	for _, r := range rooms {
		b.WriteString(r.RoomID)
		b.WriteByte(':')
		if r.LastMessage != nil {
			b.WriteString(r.LastMessage.MessageID)
		}
		b.WriteByte(',')
	}
	return b.String()
}

func printRooms(w io.Writer, rooms []api.RoomSummary) {
	fmt.Fprintf(w, "%d rooms\n", len(rooms))
	for _, r := range rooms {
		last := "-"
		if r.LastMessage != nil {
			last = r.LastMessage.Sender + ": " + r.LastMessage.Content
		}
		fmt.Fprintf(w, "  %-6s %-24s by %-12s %s\n", r.RoomID, r.RoomName, r.CreatedBy, last)
	}
}
