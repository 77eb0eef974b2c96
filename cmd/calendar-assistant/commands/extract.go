package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/benvon/smart-calendar/internal/extractor"
	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		input    string
		response string
		today    string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extractor on an assistant reply without contacting the backend",
		Long:  "Reads an assistant reply from --response or stdin and prints the extracted events, plan and response as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if response == "" {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
				if err != nil {
					return fmt.Errorf("failed to read response: %w", err)
				}
				response = string(data)
			}

			now := time.Now
			if today != "" {
				day, err := time.ParseInLocation("2006-01-02", today, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --today: %w", err)
				}
				now = func() time.Time { return day }
			}

			res := extractor.New(extractor.WithClock(now), extractor.WithLogger(a.logger)).Extract(response, input)
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "The user prompt that produced the reply")
	cmd.Flags().StringVar(&response, "response", "", "The assistant reply (default: read stdin)")
	cmd.Flags().StringVar(&today, "today", "", "Resolve dates relative to this day (YYYY-MM-DD)")

	return cmd
}
