package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/marinedk/mdk/file"
	"github.com/spf13/cobra"
)

// ReportMain is wrapped by NewReportCommand and only exported for testing
// purposes.
var ReportMain *file.ReportMain

// NewReportCommand returns a new cobra command wrapping ReportMain.
func NewReportCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	ReportMain = file.NewReportMain()
	reportCommand := &cobra.Command{
		Use:   "report",
		Short: "print the deployment readiness report by cutoff date",
		Long: `Extracts the asset graph and prints the platform/node/instrument
readiness report for assets deployed by the cutoff date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ReportMain.Run()
		},
	}
	flags := reportCommand.Flags()
	err = commandeer.Flags(flags, ReportMain)
	if err != nil {
		panic(err)
	}
	return reportCommand
}

func init() {
	subcommandFns["report"] = NewReportCommand
}
