package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lazypower/bitrot/internal/chat"
	"github.com/lazypower/bitrot/internal/llm"
)

var (
	chatProvider string
	chatModel    string
	chatQuiet    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a model whose memory is rotting",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	llmCfg := cfg.LLM
	if chatProvider != "" {
		llmCfg.Provider = chatProvider
	}
	if chatModel != "" {
		llmCfg.Model = chatModel
		llmCfg.OllamaModel = chatModel
	}
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	sessionID := uuid.NewString()
	opts := openOpts{sessionID: sessionID}
	if cfg.Chat.Sounds && !chatQuiet {
		opts.sounds = cmd.OutOrStdout()
	}
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := chat.NewSession(sessionID, a.eng, client, a.cfg.Chat)
	sess.Log = logger
	sess.Out = cmd.OutOrStdout()
	if a.db != nil {
		if _, err := a.db.InitChatSession(sessionID, llmCfg.Provider); err != nil {
			return err
		}
		sess.Journal = a.db
	}
	logger.Info("chat session started", "session", sessionID, "provider", llmCfg.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return sess.Run(ctx, cmd.InOrStdin())
}

func init() {
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "ollama, anthropic, claude-cli or mock (default from config)")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model name for the provider")
	chatCmd.Flags().BoolVarP(&chatQuiet, "quiet", "q", false, "Silence the floppy drive noises")
}
