package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/marinedk/mdk/s3"
	"github.com/spf13/cobra"
)

// S3Main is wrapped by NewS3Command and only exported for testing purposes.
var S3Main *s3.Main

// NewS3Command returns a new cobra command wrapping S3Main.
func NewS3Command(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	S3Main = s3.NewMain()
	s3Command := &cobra.Command{
		Use:   "s3",
		Short: "sync an asset catalog from s3 and extract it",
		Long: `Downloads the asset export files under an S3 bucket prefix into a
local directory and runs an extraction over them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return S3Main.Run()
		},
	}
	flags := s3Command.Flags()
	err = commandeer.Flags(flags, S3Main)
	if err != nil {
		panic(err)
	}
	return s3Command
}

func init() {
	subcommandFns["s3"] = NewS3Command
}
