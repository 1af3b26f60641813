package commands

import (
	"fmt"

	"github.com/klokku/workout-planner/internal/app"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/workout"
	"github.com/spf13/cobra"
)

func addMove(topLevel *cobra.Command, ro *RootOptions) {
	cmd := &cobra.Command{
		Use:   "move <id> <date> [morning|afternoon|evening|anytime]",
		Short: "Move a workout to another day, optionally into a time of day.",
		Example: `
workout-planner move 12 2026-01-20
workout-planner move c3 2026-01-20 evening
`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := workout.ParseKey(args[0])
			if err != nil {
				return err
			}
			day, err := calendar_date.Parse(args[1])
			if err != nil {
				return err
			}
			target := drag_drop.DropTarget{Day: day}
			if len(args) == 3 {
				bucket, err := parseBucket(args[2])
				if err != nil {
					return err
				}
				target.TimeOfDay = &bucket
			}
			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				intent, err := deps.Session.Move(cmd.Context(), key, target)
				if err != nil {
					return err
				}
				printer(cmd, ro).Intent(key, intent)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func parseBucket(value string) (workout.TimeOfDay, error) {
	if value == "anytime" {
		return workout.Unscheduled, nil
	}
	bucket, ok := workout.ParseTimeOfDay(value)
	if !ok {
		return "", fmt.Errorf("unknown time of day %q", value)
	}
	return bucket, nil
}
