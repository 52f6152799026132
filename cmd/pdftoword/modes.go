package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saad688/pdftoword/internal/config"
	"github.com/saad688/pdftoword/internal/services"
)

var modesCommand = &cobra.Command{
	Use:   "modes",
	Short: "List processing modes and their remaining daily quota",
	Args:  cobra.NoArgs,
	RunE:  runModes,
}

func init() {
	rootCmd.AddCommand(modesCommand)
}

func runModes(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := services.NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tMODEL\tRPM\tRPD\tREMAINING\t$/PAGE\t")
	for _, m := range rt.Converter.AvailableModes() {
		usage, err := rt.Converter.Usage(ctx, m.Name)
		if err != nil {
			return err
		}
		name := m.Name
		if m.Default {
			name += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.4f\t\n", name, m.Model, m.RPM, m.RPD, usage.DailyRequestsRemaining, m.CostPerPage)
	}
	return tw.Flush()
}
