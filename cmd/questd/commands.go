package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vkotenko/questd/internal/config"
)

// --- play ---

type turnResponse struct {
	Message  string   `json:"message"`
	Choices  []string `json:"choices"`
	ImageURL string   `json:"image_url"`
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game interactively in the terminal",
	Long: `Play a game interactively in the terminal.

The server must be running. Each prompt is one turn; type the number of
a choice or free-form text. Type /create to restart with a fresh
session, or quit to leave.

Examples:
  questd play
  questd play --player alice --genre "space opera" --turns 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		player, _ := cmd.Flags().GetString("player")
		genre, _ := cmd.Flags().GetString("genre")
		language, _ := cmd.Flags().GetString("language")
		turns, _ := cmd.Flags().GetInt("turns")

		if player == "" {
			player = uuid.NewString()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		start := func() (string, error) {
			sessionID := uuid.NewString()
			printStep("Starting new game (session %s)...", sessionID[:8])
			req := map[string]any{
				"player_id":  player,
				"session_id": sessionID,
			}
			if genre != "" {
				req["genre"] = genre
			}
			if language != "" {
				req["language"] = language
			}
			if turns > 0 {
				req["turns"] = turns
			}

			resp, err := client.post(ctx, "/start", req)
			if err != nil {
				return "", err
			}
			var turn turnResponse
			if err := decodeJSON(resp, &turn); err != nil {
				return "", err
			}
			printTurn(turn)
			return sessionID, nil
		}

		sessionID, err := start()
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, colorize(colorBold, "> "))
			if !scanner.Scan() {
				return scanner.Err()
			}
			input := strings.TrimSpace(scanner.Text())
			switch input {
			case "":
				continue
			case "quit", "exit":
				return nil
			case "/create":
				if sessionID, err = start(); err != nil {
					return err
				}
				continue
			}

			resp, err := client.post(ctx, "/continue", map[string]any{
				"player_id":  player,
				"session_id": sessionID,
				"input":      input,
			})
			if err != nil {
				return err
			}
			var turn turnResponse
			if err := decodeJSON(resp, &turn); err != nil {
				return err
			}
			printTurn(turn)
		}
	},
}

func printTurn(turn turnResponse) {
	fmt.Println()
	fmt.Println(turn.Message)
	for i, choice := range turn.Choices {
		fmt.Printf("  %s %s\n", colorize(colorCyan, fmt.Sprintf("%d.", i+1)), choice)
	}
	if turn.ImageURL != "" {
		fmt.Printf("\n  %s %s\n", colorize(colorBold, "Scene:"), turn.ImageURL)
	}
	fmt.Println()
}

func init() {
	playCmd.Flags().String("player", "", "player identifier (default: random)")
	playCmd.Flags().String("genre", "", "story genre")
	playCmd.Flags().String("language", "", "narrative language")
	playCmd.Flags().Int("turns", 0, "turn budget for the quest")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
