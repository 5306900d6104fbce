package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/worker"
)

func newSwimlanesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "swimlanes <sceneID>",
		Short: "Show a scene's markers grouped into swimlanes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				lanes, err := a.manager.SceneSwimlanes(cmd.Context(), args[0], nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSwimlanes(lanes))
				return nil
			})
		},
	}
}

func renderSwimlanes(lanes worker.Swimlanes) string {
	var rows [][]string
	for _, lane := range lanes.Lanes {
		for _, m := range lane.Markers {
			rows = append(rows, []string{
				lane.Name,
				strconv.Itoa(m.Track),
				derive.FormatMarkerTime(m.Seconds),
				formatEnd(m.EndSeconds),
				m.Title,
				m.Status,
				m.ID,
			})
		}
	}
	return renderTable(
		[]string{"Lane", "Track", "Start", "End", "Title", "Status", "ID"},
		rows,
		left, right, right, right,
	)
}

func formatEnd(end *float64) string {
	if end == nil {
		return "-"
	}
	return derive.FormatMarkerTime(*end)
}
