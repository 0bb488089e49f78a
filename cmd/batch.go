package cmd

import (
	"fmt"
	"os"

	"facelabel/processing/batch"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var batchOutput string

var batchCmd = &cobra.Command{
	Use:   "batch <file|folder>...",
	Short: "Annotate images without the GUI",
	Long: `Annotate every given image, and every jpg/jpeg/png inside the given folders.
Each result is written as <name>_result.png into the result folder.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := batch.Expand(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return errors.New("no images to process")
		}

		p, err := loadPipeline(configPath)
		if err != nil {
			return err
		}
		defer p.Close()

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Labelling faces"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		report, err := p.runner(batchOutput).Run(cmd.Context(), files, func(batch.Result) {
			bar.Add(1)
		})
		bar.Finish()

		if report != nil {
			printReport(cmd, report)
		}
		return err
	},
}

func printReport(cmd *cobra.Command, report *batch.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nProcessed %d of %d images, results in %s\n",
		report.Succeeded(), len(report.Results), report.OutputDir)

	for _, res := range report.Failed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "  failed %s: %v\n", res.Input, res.Err)
	}
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "out", "o", "", "Result folder (default: resultFolder from the settings file)")
	rootCmd.AddCommand(batchCmd)
}
