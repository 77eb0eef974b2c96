package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-calendar/internal/assistant"
	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/plan"
	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var agree bool

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask the assistant and add the events it finds",
		Long: "Sends the prompt to the assistant, shows the reply, adds extracted events that are not " +
			"already on your calendar and shows any proposed plan. Use --agree to add the plan's steps too.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			gen, err := a.generator(c)
			if err != nil {
				return fmt.Errorf("failed to create AI provider: %w", err)
			}

			m := a.manager(c)
			defer m.Stop()
			if err := m.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to load events: %w", err)
			}

			editor := plan.NewEditor(a.logger)
			s := assistant.New(gen, m, assistant.WithPlanSink(editor), assistant.WithLogger(a.logger))

			turn, err := s.Submit(ctx, joinArgs(args))
			if err != nil && turn.Reply == "" {
				return err
			}
			if turn.Result.Response != "" {
				fmt.Fprintln(a.out, turn.Result.Response)
			}
			for _, ev := range turn.Added {
				fmt.Fprintf(a.out, "+ %s  %s\n", ev.StartDate.Format("Mon 2006-01-02"), ev.Title)
			}
			if err != nil {
				fmt.Fprintf(a.errOut, "Some events could not be added: %v\n", err)
			}

			draft, ok := editor.Draft()
			if !ok {
				return nil
			}
			today := dates.Today(time.Now())
			fmt.Fprintf(a.out, "\nPlan: %s\n", draft.Title)
			for i, step := range draft.Steps {
				fmt.Fprintf(a.out, "  %d. %s  %s", i+1, dates.Resolve(today, step.DayOffset).Format("Mon 2006-01-02"), step.Title)
				if step.Time != "" {
					fmt.Fprintf(a.out, " (%s)", step.Time)
				}
				fmt.Fprintln(a.out)
				if step.Description != "" {
					fmt.Fprintf(a.out, "     %s\n", step.Description)
				}
				if step.CompletionCriterion != "" {
					fmt.Fprintf(a.out, "     Done when: %s\n", step.CompletionCriterion)
				}
			}
			if !agree {
				fmt.Fprintln(a.out, "\nRun again with --agree to add this plan to your calendar.")
				return nil
			}

			res, err := editor.Agree(ctx, m, today)
			if errors.Is(err, plan.ErrNoPlan) {
				return nil
			}
			fmt.Fprintf(a.out, "\nAdded %d of %d plan events to your calendar.\n", len(res.Added), len(draft.Steps))
			return err
		},
	}
	cmd.Flags().BoolVar(&agree, "agree", false, "Add the proposed plan to the calendar")

	return cmd
}
