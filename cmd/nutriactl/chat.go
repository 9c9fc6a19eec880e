package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"nutria-assistant-be/internal/dto"
	"nutria-assistant-be/internal/service"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	cmdQuit    = "/sair"
	cmdHistory = "/historico"
	cmdReset   = "/limpar"
)

func newChatCmd(load containerLoader) *cobra.Command {
	var (
		userFlag  string
		chatIndex int
		ephemeral bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive conversation with the assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userId := uuid.New()
			if userFlag != "" {
				parsed, err := uuid.Parse(userFlag)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				userId = parsed
			}

			c, err := load(ephemeral)
			if err != nil {
				return err
			}
			defer c.Close()

			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), c.ChatbotService, userId, chatIndex)
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id (random when empty)")
	cmd.Flags().IntVar(&chatIndex, "chat", 0, "chat index of the conversation")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep the conversation memory in process only")
	return cmd
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, chatbot service.IChatbotService, userId uuid.UUID, chatIndex int) error {
	prompt := color.New(color.FgCyan, color.Bold)
	answer := color.New(color.FgGreen)
	meta := color.New(color.FgHiBlack)
	failure := color.New(color.FgRed)

	_, _ = fmt.Fprintf(out, "Conversa %s:%d. Digite %s para sair, %s para ver o histórico, %s para apagá-lo.\n",
		userId, chatIndex, cmdQuit, cmdHistory, cmdReset)

	scanner := bufio.NewScanner(in)
	for {
		_, _ = prompt.Fprint(out, "você> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case cmdQuit:
			return nil
		case cmdHistory:
			items, err := chatbot.GetChatHistory(ctx, userId, chatIndex)
			if err != nil {
				_, _ = failure.Fprintf(out, "erro: %v\n", err)
				continue
			}
			for _, item := range items {
				_, _ = meta.Fprintf(out, "[%s] %s\n", item.Role, item.Chat)
			}
			continue
		case cmdReset:
			if err := chatbot.DeleteSession(ctx, userId, chatIndex); err != nil {
				_, _ = failure.Fprintf(out, "erro: %v\n", err)
				continue
			}
			_, _ = meta.Fprintln(out, "histórico apagado")
			continue
		}

		res, err := chatbot.SendChat(ctx, userId, &dto.SendChatRequest{ChatIndex: chatIndex, Chat: line})
		if err != nil {
			_, _ = failure.Fprintf(out, "erro: %v\n", err)
			continue
		}
		_, _ = answer.Fprintf(out, "nutria> %s\n", res.Answer)
		if res.Route != "" {
			_, _ = meta.Fprintf(out, "(rota %s)\n", res.Route)
		}
		if !res.Persisted {
			_, _ = failure.Fprintln(out, "aviso: esta troca não foi salva")
		}
	}
}
