package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saad688/pdftoword/internal/config"
	"github.com/saad688/pdftoword/internal/export"
	"github.com/saad688/pdftoword/internal/models"
	"github.com/saad688/pdftoword/internal/services"
)

var convertCommand = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert one PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var (
	convertMode    string
	convertNoCache bool
	convertFormat  string
	convertOut     string
)

func init() {
	convertCommand.Flags().StringVarP(&convertMode, "mode", "m", "", "Processing mode (fast, balanced, accurate); defaults to DEFAULT_MODE")
	convertCommand.Flags().BoolVar(&convertNoCache, "no-cache", false, "Ignore and do not update the structured document cache")
	convertCommand.Flags().StringVarP(&convertFormat, "format", "f", "docx", "Output format: docx, txt, md or html")
	convertCommand.Flags().StringVarP(&convertOut, "out", "o", "", "Output file (default: input name with the format's extension)")

	rootCmd.AddCommand(convertCommand)
}

func runConvert(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(convertFormat)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := services.NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	rec, err := rt.Converter.Convert(ctx, models.SourceDocument{Name: filepath.Base(args[0]), Content: content}, services.SubmitOptions{
		Mode:        convertMode,
		BypassCache: convertNoCache,
	})
	if err != nil {
		return err
	}
	defer rt.Converter.Delete(rec.ID)

	rendered, err := rt.Converter.Render(rec.ID, format)
	if err != nil {
		return err
	}
	out := convertOut
	if out == "" {
		base := args[0][:len(args[0])-len(filepath.Ext(args[0]))]
		out = base + "." + string(format)
	}
	data, err := os.ReadFile(rendered)
	if err != nil {
		return fmt.Errorf("failed to read rendered output: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Wrote %s (%d pages, mode %s", out, rec.PageCount, rec.Mode)
	if rec.FromCache {
		fmt.Fprint(w, ", from cache")
	}
	fmt.Fprintln(w, ")")
	if rec.Message != "Completed!" {
		fmt.Fprintln(w, rec.Message)
	}
	return nil
}
