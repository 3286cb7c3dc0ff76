package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/lavajato/backend/internal/analysis/keyword"
	"github.com/zhouzirui/lavajato/backend/internal/config"
	"github.com/zhouzirui/lavajato/backend/internal/model/chat"
	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
	"github.com/zhouzirui/lavajato/backend/internal/observability"
	"github.com/zhouzirui/lavajato/backend/internal/service/notify"
	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	rulesFile string
	logLevel  string
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "chattester",
		Short:         "手动验证关键词规则与小组件对话流程",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.rulesFile, "rules", "", "规则 YAML 路径，留空则使用 CHAT_RULES_FILE 或内置规则")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "日志级别")

	root.AddCommand(newResolveCmd(opts), newChatCmd(opts))
	return root
}

func loadTable(opts *options) (*rulebook.Table, error) {
	path := opts.rulesFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.Chat.RulesFile
	}
	return rulebook.Load(path)
}

func newResolveCmd(opts *options) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "打印一条消息对应的脚本回复",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(opts)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			resolver := keyword.NewResolver(table)
			out := cmd.OutOrStdout()

			if explain {
				if rule, ok := resolver.Match(text); ok {
					fmt.Fprintf(out, "keyword: %s\n", rule.Keyword)
				} else {
					fmt.Fprintln(out, "keyword: <fallback>")
				}
			}
			fmt.Fprintln(out, resolver.Resolve(text))
			return nil
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "同时打印命中的关键词")
	return cmd
}

func newChatCmd(opts *options) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "在终端里模拟一次小组件会话（/name <姓名> 留下姓名，/quit 退出）",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(opts)
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(opts.logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), table, delay, logger)
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", widget.DefaultReplyDelay, "模拟输入延迟")
	return cmd
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, table *rulebook.Table, delay time.Duration, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	replies := make(chan chat.Message, 4)
	ctrl := widget.New(keyword.NewResolver(table), widget.Options{
		SessionID:  "terminal",
		ReplyDelay: delay,
		Notifier: notify.Multi{
			notify.NewLogNotifier(logger),
			notify.Func(func(_ context.Context, _ string, toast notify.Toast) {
				fmt.Fprintf(out, "[%s] %s\n", toast.Title, toast.Description)
			}),
		},
		Logger: logger,
	})
	defer ctrl.Close()

	ctrl.Subscribe(func(ev widget.Event) {
		if ev.Type == widget.EventMessage && ev.Message.FromBot() {
			replies <- *ev.Message
		}
	})
	ctrl.ToggleOpen()

	for _, msg := range ctrl.Messages() {
		printMessage(out, msg)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.TrimSpace(line) == "/quit":
			return nil
		case strings.HasPrefix(line, "/name "):
			if ctrl.SubmitName(ctx, strings.TrimPrefix(line, "/name ")) {
				printMessage(out, <-replies)
			}
		default:
			if !ctrl.Submit(line) {
				continue
			}
			fmt.Fprintln(out, "...")
			select {
			case msg := <-replies:
				printMessage(out, msg)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return scanner.Err()
}

func printMessage(out io.Writer, msg chat.Message) {
	who := "você"
	if msg.FromBot() {
		who = "LavaJato"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", msg.Clock(), who, msg.Text)
}
