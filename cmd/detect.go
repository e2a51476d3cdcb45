package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/milady-ai/streamnode/internal/capture"
)

// CreateDetectCmd creates the detect command, which prints the capture mode
// the pipeline would choose right now and the environment that led to it.
func CreateDetectCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the detected capture mode",
		Long: `Evaluates the capture mode detection rules against the current platform ` +
			`and environment and prints the mode a stream start would use.`,
		Run: func(_ *cobra.Command, _ []string) {
			mode := capture.Detect()
			fmt.Println(mode)

			if !verbose {
				return
			}
			fmt.Println()
			fmt.Printf("platform:               %s\n", runtime.GOOS)
			for _, key := range []string{
				capture.EnvCaptureMode,
				capture.EnvCaptureModeLegacy,
				capture.EnvUIHost,
				capture.EnvDisplay,
			} {
				value := os.Getenv(key)
				if value == "" {
					value = "(unset)"
				}
				fmt.Printf("%-23s %s\n", key+":", value)
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print the inputs the detection used")
	return cmd
}
