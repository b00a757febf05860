package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/marinedk/mdk/file"
	"github.com/spf13/cobra"
)

// ExtractMain is wrapped by NewExtractCommand and only exported for testing
// purposes.
var ExtractMain *file.Main

// NewExtractCommand returns a new cobra command wrapping ExtractMain.
func NewExtractCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	ExtractMain = file.NewMain()
	extractCommand := &cobra.Command{
		Use:   "extract",
		Short: "extract the asset graph from a local catalog directory",
		Long: `Parses every asset category from a directory of export CSVs plus a
mapping/ subdirectory of workbook tabs, post-processes and validates the
graph, and optionally dumps it into a registry database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = ExtractMain.Run()
			if err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := extractCommand.Flags()
	err = commandeer.Flags(flags, ExtractMain)
	if err != nil {
		panic(err)
	}
	return extractCommand
}

func init() {
	subcommandFns["extract"] = NewExtractCommand
}
