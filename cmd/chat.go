package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvidal-dev/schoolscout/internal/chat"
	"github.com/mvidal-dev/schoolscout/internal/session"
	"github.com/mvidal-dev/schoolscout/internal/travel"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "resume an existing session by id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	var sess *session.Session
	if chatSessionID != "" {
		sess, err = app.sessions.Load(chatSessionID)
		if err != nil {
			return fmt.Errorf("resuming session: %w", err)
		}
	} else {
		sess = app.sessions.Create()
	}

	orchCfg := chat.Config{
		LLM:      app.model,
		Logger:   app.logger,
		Retrieve: app.router,
		Memory:   app.memory,
		Schools:  app.cfg.SchoolNames(),
		Area:     app.cfg.Area,
	}
	if app.travel != nil {
		orchCfg.Tools = app.travel
		orchCfg.ToolDefs = travel.Definitions()
	}
	if len(sess.Messages) > 0 {
		orchCfg.History = chat.Resume(sess.Messages)
	}
	orchestrator, err := chat.New(orchCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("schoolscout — private school search for %s\n", app.cfg.Area)
	fmt.Printf("session %s — /exit to quit\n\n", sess.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		_, err := orchestrator.Turn(ctx, line, func(token string) error {
			fmt.Print(token)
			return nil
		})
		fmt.Println()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			app.logger.Error("turn failed", "error", err)
			continue
		}

		sess.Messages = orchestrator.History()
		if err := app.sessions.Save(sess); err != nil {
			app.logger.Warn("saving session", "error", err)
		}
	}
	return scanner.Err()
}
