package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/scheduler"
	"github.com/hupe1980/roundtable/server"
	"github.com/hupe1980/roundtable/stream"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "roundtable",
		Short:        "Three AI speakers take turns on a topic",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newChatCmd(a), newConversationsCmd(a), newServeCmd(a))
	return root
}

// chatArgs is the parsed invocation of the chat command.
type chatArgs struct {
	topic          string
	turns          int
	conversationID string
	continuation   bool
}

// parseChatArgs reads `<topic> [turns] [conversation_id] [is_continuation]`.
// Only the literal "true" enables continuation.
func parseChatArgs(args []string, defaultTurns int) (chatArgs, error) {
	ca := chatArgs{turns: defaultTurns}
	if len(args) > 0 {
		ca.topic = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return ca, fmt.Errorf("invalid turns %q: %w", args[1], err)
		}
		ca.turns = n
	}
	if len(args) > 2 {
		ca.conversationID = args[2]
	}
	if len(args) > 3 {
		ca.continuation = args[3] == "true"
	}
	return ca, nil
}

func newChatCmd(a *app) *cobra.Command {
	var (
		turns        int
		id           string
		continuation bool
	)

	cmd := &cobra.Command{
		Use:   "chat <topic> [turns] [conversation_id] [is_continuation]",
		Short: "Run a conversation and stream its events as JSON lines",
		Args:  cobra.MaximumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			ca, err := parseChatArgs(args, a.cfg.Chat.Turns)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("turns") {
				ca.turns = turns
			}
			if cmd.Flags().Changed("id") {
				ca.conversationID = id
			}
			if cmd.Flags().Changed("continue") {
				ca.continuation = continuation
			}

			em := stream.NewWriterEmitter(a.stdout)
			if strings.TrimSpace(ca.topic) == "" {
				_ = em.Emit(core.NewErrorEvent("Topic required"))
				return scheduler.ErrTopicRequired
			}

			rt, err := a.roundtable(cmd.Context())
			if err != nil {
				return err
			}

			_, err = rt.Run(cmd.Context(), roundtable.Request{
				Topic:          ca.topic,
				Turns:          ca.turns,
				ConversationID: ca.conversationID,
				Continuation:   ca.continuation,
			}, em)
			return err
		},
	}

	cmd.Flags().IntVar(&turns, "turns", 0, "number of turns to produce")
	cmd.Flags().StringVar(&id, "id", "", "stored conversation id to continue")
	cmd.Flags().BoolVar(&continuation, "continue", false, "resume the stored conversation given by --id")
	return cmd
}

func newConversationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect stored conversations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if list == nil {
				list = []core.ConversationSummary{}
			}
			return a.printJSON(list)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(rec)
		},
	})

	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API with server-sent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			rt, err := a.roundtable(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv := server.New(rt, func(o *server.Options) {
				o.Logger = a.logger
				o.Metrics = a.metrics
				o.ShutdownTimeout = a.cfg.Server.ShutdownTimeout
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
