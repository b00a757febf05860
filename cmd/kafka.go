package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/marinedk/mdk/kafka"
	"github.com/spf13/cobra"
)

// KafkaMain is wrapped by NewKafkaCommand and only exported for testing
// purposes.
var KafkaMain *kafka.Main

// NewKafkaCommand returns a new cobra command wrapping KafkaMain.
func NewKafkaCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	KafkaMain = kafka.NewMain()
	kafkaCommand := &cobra.Command{
		Use:   "kafka",
		Short: "spool asset rows from kafka into a local catalog",
		Long: `Consumes JSON-encoded asset rows from a Kafka topic and spools them
into the CSV catalog layout, optionally running an extraction afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return KafkaMain.Run()
		},
	}
	flags := kafkaCommand.Flags()
	err = commandeer.Flags(flags, KafkaMain)
	if err != nil {
		panic(err)
	}
	return kafkaCommand
}

func init() {
	subcommandFns["kafka"] = NewKafkaCommand
}
