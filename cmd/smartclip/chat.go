package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/chat"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/documents"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/session"
)

const banner = `欢迎使用灵辑 (SmartClip)！输入 '帮助' 查看可用指令，输入 '退出' 结束。`

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, _, err := build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s, _ := a.Sessions().GetOrCreate("")
			return runConsole(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.Dispatcher(), s)
		},
	}
}

// runConsole reads one message per line until EOF, an EXIT intent or ctx is
// cancelled.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, d *chat.Dispatcher, s *session.Session) error {
	fmt.Fprintln(out, banner)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		r, err := d.Handle(ctx, s, sc.Text())
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			continue
		case err != nil:
			fmt.Fprintf(out, "出错了：%v\n", err)
			continue
		}

		switch r.Type {
		case chat.Document:
			fmt.Fprintln(out, documents.Display(r.Title, r.Lines))
		default:
			fmt.Fprintln(out, r.Content)
		}
		if r.Intent == intent.Exit {
			return nil
		}
	}
}
