package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkempf/voicedesk/internal/assistant"
	"github.com/mkempf/voicedesk/internal/calendar"
	"github.com/mkempf/voicedesk/internal/metrics"
	"github.com/mkempf/voicedesk/internal/transcript"
	"github.com/mkempf/voicedesk/internal/weather"
)

var chatStats bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive text conversation. One line is one turn; the
conversation context carries across turns until you exit.

Examples:
  voicedesk chat
  voicedesk chat --stats
  VOICEDESK_TRANSCRIPT=~/.voicedesk/turns.db voicedesk chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatStats, "stats", false, "print engine statistics on exit")
}

// exitWords end the session, mirroring spoken-assistant conventions.
var exitWords = map[string]bool{"exit": true, "quit": true, "goodbye": true, "bye": true}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var turnLog assistant.TurnLog
	if cfg.TranscriptPath != "" {
		store, err := transcript.Open(cfg.TranscriptPath)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer store.Close()
		turnLog = store
	}

	collector := metrics.NewCollector()

	bot := assistant.New(assistant.Config{
		Weather:    weather.NewClient(cfg.WeatherURL),
		Calendar:   calendar.NewClient(cfg.CalendarURL, cfg.CalendarID),
		Transcript: turnLog,
		Metrics:    collector,
		Logger:     logger,
	})

	logger.Info("session started", "session", bot.Context().SessionID)
	fmt.Printf("Assistant: %s\n", bot.Greeting())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if exitWords[strings.ToLower(input)] {
			fmt.Println("Assistant: Goodbye! Have a great day!")
			break
		}

		result := bot.ProcessTurn(ctx, input)
		fmt.Printf("Assistant: %s\n", result.Response)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	if chatStats {
		printStats(collector.Snapshot())
	}
	return nil
}

func printStats(snap metrics.Snapshot) {
	fmt.Printf("\n%d turns in %.0fs\n", snap.Turns, snap.UptimeSeconds)
	for intent, count := range snap.TurnsByIntent {
		fmt.Printf("  %-20s %d\n", intent, count)
	}
	if len(snap.FailuresByKind) > 0 {
		fmt.Println("failures:")
		for kind, count := range snap.FailuresByKind {
			fmt.Printf("  %-20s %d\n", kind, count)
		}
	}
}
