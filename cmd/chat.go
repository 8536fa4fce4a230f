package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the HiveMind assistant in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := runChat(cmd); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("role", "", "client or freelancer (asked when empty)")
}

func runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger(true)
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	role, err := chatRole(cmd)
	if err != nil {
		return err
	}

	gen, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return fmt.Errorf("building gemini client: %w", err)
	}

	manager := newChatManager(newAssistant(gen, logger), config.Chat, logger)
	session := manager.Open("", role)
	defer manager.Close(session.ID())

	out := cmd.OutOrStdout()
	for _, msg := range session.Transcript() {
		fmt.Fprintf(out, "HiveMind: %s\n", msg.Text)
	}

	input := promptui.Prompt{Label: "You"}
	for {
		text, err := input.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		reply, err := manager.Send(ctx, session.ID(), text)
		if err != nil {
			logger.Warn("sending chat message", zap.Error(err))
			continue
		}
		fmt.Fprintf(out, "HiveMind: %s\n", reply.Text)
	}
}

func chatRole(cmd *cobra.Command) (marketplace.Role, error) {
	if raw, _ := cmd.Flags().GetString("role"); raw != "" {
		return marketplace.ParseRole(raw)
	}

	pick := promptui.Select{
		Label: "Chat as",
		Items: []string{string(marketplace.RoleClient), string(marketplace.RoleFreelancer)},
	}
	_, selected, err := pick.Run()
	if err != nil {
		return "", err
	}
	return marketplace.ParseRole(selected)
}
