package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benvon/smart-calendar/internal/icsexport"
	"github.com/benvon/smart-calendar/internal/lifecycle"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, delete and export calendar events",
	}
	cmd.AddCommand(newEventsListCmd(a))
	cmd.AddCommand(newEventsDeleteCmd(a))
	cmd.AddCommand(newEventsExportCmd(a))
	return cmd
}

// loadEvents builds a manager and loads the current list
func (a *app) loadEvents(ctx context.Context) (*lifecycle.Manager, error) {
	c, err := a.client(ctx)
	if err != nil {
		return nil, err
	}
	m := a.manager(c)
	if err := m.Refresh(ctx); err != nil {
		m.Stop()
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return m, nil
}

func newEventsListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.loadEvents(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Stop()

			events := m.Events()
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(a.out, "No events")
				return nil
			}
			for _, ev := range events {
				line := fmt.Sprintf("%s  %-10s  %s", ev.StartDate.Format("Mon 2006-01-02"), ev.ColorTag, ev.Title)
				if ev.PlanTitle != "" {
					line += "  [" + ev.PlanTitle + "]"
				}
				fmt.Fprintf(a.out, "%s  (%s)\n", line, ev.DisplayID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON")

	return cmd
}

func newEventsDeleteCmd(a *app) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "delete <display-id|title>",
		Short: "Delete an event, with a short window to undo",
		Long: "Hides the event immediately and deletes it from the backend once the grace window has passed. " +
			"Press Ctrl+C during the window to undo. --undo deletes and restores at once, which is useful for testing.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadEvents(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Stop()

			target, ok := findEvent(m.Events(), joinArgs(args))
			if !ok {
				return fmt.Errorf("no event matches %q", joinArgs(args))
			}
			if err := m.Select(target.DisplayID); err != nil {
				return err
			}
			pd, err := m.Delete()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %q. Undo until %s (Ctrl+C).\n", pd.Event.Title, pd.GraceDeadline.Format(time.Kitchen))

			if !undo {
				undo = waitOrInterrupt(cmd.Context(), time.Until(pd.GraceDeadline))
			}
			if !undo {
				return nil
			}
			restored, err := m.Undo(context.WithoutCancel(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Restored %q on %s.\n", restored.Title, restored.StartDate.Format(models.DateLayout))
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Undo the delete immediately")

	return cmd
}

// waitOrInterrupt waits for d and reports whether the user interrupted first
func waitOrInterrupt(ctx context.Context, d time.Duration) bool {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-sigCtx.Done():
		return true
	}
}

// findEvent matches a display id exactly, then a title case-insensitively
func findEvent(events []models.CalendarEvent, query string) (models.CalendarEvent, bool) {
	for _, ev := range events {
		if ev.DisplayID == query {
			return ev, true
		}
	}
	for _, ev := range events {
		if strings.EqualFold(strings.TrimSpace(ev.Title), query) {
			return ev, true
		}
	}
	return models.CalendarEvent{}, false
}

func newEventsExportCmd(a *app) *cobra.Command {
	var (
		output string
		name   string
		ics    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events as iCalendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !ics {
				return fmt.Errorf("only --ics export is supported")
			}
			m, err := a.loadEvents(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Stop()

			w := a.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer func() {
					if err := f.Close(); err != nil {
						fmt.Fprintf(a.errOut, "Warning: failed to close %s: %v\n", output, err)
					}
				}()
				w = f
			}
			events := m.Events()
			if err := icsexport.Write(w, events, icsexport.Options{Name: name}); err != nil {
				return fmt.Errorf("failed to write calendar: %w", err)
			}
			if w != a.out {
				fmt.Fprintf(a.errOut, "Exported %d events to %s\n", len(events), output)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ics, "ics", true, "Write an iCalendar (.ics) file")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVar(&name, "name", "Smart Calendar", "Calendar name")

	return cmd
}
