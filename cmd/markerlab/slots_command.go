package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSlotsCommand(ctx *commandContext) *cobra.Command {
	slotsCmd := &cobra.Command{
		Use:   "slots",
		Short: "Performer slot assignment",
	}

	slotsCmd.AddCommand(&cobra.Command{
		Use:   "suggest <sceneID> <markerID>",
		Short: "List performer combinations for a marker's slots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				s, err := a.manager.SuggestSlots(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(s.Slots) == 0 {
					fmt.Fprintln(out, "No slots defined for this marker's tag")
					return nil
				}
				rows := make([][]string, len(s.Combinations))
				for i, c := range s.Combinations {
					rows[i] = []string{strconv.Itoa(i + 1), c.Description}
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Assignment"}, rows, right))
				return nil
			})
		},
	})

	return slotsCmd
}
