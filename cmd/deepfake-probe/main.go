// Command deepfake-probe checks the calibration of the prediction generator,
// either locally or against a running server.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	appName = "deepfake-probe"

	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorWhite  = color.New(color.FgWhite)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Calibration checks for the deepfake detection generator",
		Long: `Draws predictions and reports how their label balance, confidence
and evidence compare with the per-kind calibration.

Examples:
  # sample the generator in-process
  deepfake-probe sample --count 5000 --kind image

  # sample a running server through /api/demo/predict
  deepfake-probe probe --url http://localhost:5000 --count 200`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSampleCmd(), newProbeCmd())
	return root
}
