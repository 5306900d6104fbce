package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/worker"
	"github.com/markerlab/markerlab/pkg/core"
)

func newShotsCommand(ctx *commandContext) *cobra.Command {
	shotsCmd := &cobra.Command{
		Use:   "shots",
		Short: "Inspect and edit shot boundaries",
	}

	shotsCmd.AddCommand(&cobra.Command{
		Use:   "list <sceneID>",
		Short: "List a scene's shot boundaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				bs, err := a.manager.ShotBoundaries(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printBoundaries(cmd.OutOrStdout(), bs)
				return nil
			})
		},
	})
	shotsCmd.AddCommand(newShotEditCommand(ctx, "add", "Add a shot boundary at the playhead",
		func(a *app) shotFunc { return a.manager.AddShotBoundary }))
	shotsCmd.AddCommand(newShotEditCommand(ctx, "remove", "Remove the shot boundary at the playhead",
		func(a *app) shotFunc { return a.manager.RemoveShotBoundary }))

	return shotsCmd
}

type shotFunc = func(ctx context.Context, sceneID string, t float64, duration *float64) (worker.ShotResult, error)

func newShotEditCommand(ctx *commandContext, use, short string, pick func(*app) shotFunc) *cobra.Command {
	var duration float64

	cmd := &cobra.Command{
		Use:   use + " <sceneID> <seconds>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[1], err)
			}
			var dur *float64
			if duration > 0 {
				dur = core.Float(duration)
			}
			return ctx.withApp(cmd.Context(), func(a *app) error {
				res, err := pick(a)(cmd.Context(), args[0], t, dur)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Outcome: %s\n", res.Plan.Outcome)
				for _, line := range res.Plan.Log {
					fmt.Fprintf(out, "  %s\n", line)
				}
				printBoundaries(out, res.Boundaries)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&duration, "duration", 0, "Scene duration in seconds (read from Stash when omitted)")
	return cmd
}

func printBoundaries(out io.Writer, bs []core.ShotBoundary) {
	if len(bs) == 0 {
		fmt.Fprintln(out, "Shot boundaries: none")
		return
	}
	rows := make([][]string, len(bs))
	for i, b := range bs {
		rows[i] = []string{strconv.Itoa(i + 1), derive.FormatMarkerTime(b.StartTime), formatEnd(b.EndTime), string(b.Source), b.ID}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Start", "End", "Source", "ID"},
		rows,
		right, right, right,
	))
}
