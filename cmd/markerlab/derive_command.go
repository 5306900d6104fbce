package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markerlab/markerlab/internal/derive"
)

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Analyze and materialize derived markers",
	}

	deriveCmd.AddCommand(&cobra.Command{
		Use:   "analyze <sceneID>",
		Short: "Show which markers would produce derived markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				analysis, err := a.manager.AnalyzeScene(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAnalysis(cmd.OutOrStdout(), analysis)
				return nil
			})
		},
	})

	deriveCmd.AddCommand(&cobra.Command{
		Use:   "apply <sceneID>",
		Short: "Create every pending derived marker in Stash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				res, err := a.manager.MaterializeScene(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAnalysis(cmd.OutOrStdout(), res.Analysis)
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d markers\n", len(res.Created))
				return nil
			})
		},
	})

	return deriveCmd
}

func printAnalysis(out io.Writer, a derive.Analysis) {
	rows := make([][]string, 0, len(a.Materializable)+len(a.AlreadyMaterialized)+len(a.Skipped))
	for _, m := range a.Materializable {
		rows = append(rows, []string{
			m.TimeLabel, m.Marker.PrimaryTag.Name, "pending",
			strconv.Itoa(m.NewDerivationsCount) + "/" + strconv.Itoa(m.TotalDerivationsCount),
			strings.Join(m.DerivedTagNames, ", "),
		})
	}
	for _, m := range a.AlreadyMaterialized {
		rows = append(rows, []string{
			m.TimeLabel, m.Marker.PrimaryTag.Name, "done",
			strconv.Itoa(m.DerivationsCount), "",
		})
	}
	for _, m := range a.Skipped {
		rows = append(rows, []string{m.TimeLabel, m.Marker.PrimaryTag.Name, "skipped", "", m.Reason})
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No markers with derivation rules")
		return
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Time", "Tag", "State", "Derivations", "Details"},
		rows,
		right, left, left, right,
	))
}
