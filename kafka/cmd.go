package kafka

import (
	"io"

	"github.com/marinedk/mdk/file"
	"github.com/pkg/errors"
)

// Main contains the configuration for spooling asset rows from Kafka into a
// local catalog and extracting it.
type Main struct {
	Hosts   []string `help:"Comma separated list of Kafka hosts and ports."`
	Topics  []string `help:"Comma separated list of topics to consume asset rows from."`
	Group   string   `help:"Kafka consumer group id."`
	MaxMsgs int      `help:"Stop after this many messages. 0 consumes until the channel closes."`
	Dir     string   `help:"Local directory to spool the catalog into."`
	Extract bool     `help:"Run an extraction over the spooled catalog when consumption ends."`
	Store   string   `help:"Registry database file to dump the extracted assets into. Empty skips the dump."`
	Backend string   `help:"Registry backend: bolt or leveldb."`
	Debug   bool     `help:"Enable debug logging."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Hosts:   []string{"localhost:9092"},
		Topics:  []string{"mdk-assets"},
		Group:   "mdk",
		Dir:     "assets",
		Backend: "bolt",
	}
}

// Run consumes row messages until EOF and spools them; with Extract set it
// then runs a file extraction over the spool directory.
func (m *Main) Run() error {
	src := NewSource()
	src.Hosts = m.Hosts
	src.Topics = m.Topics
	src.Group = m.Group
	src.MaxMsgs = m.MaxMsgs
	if err := src.Open(); err != nil {
		return errors.Wrap(err, "opening kafka source")
	}
	defer src.Close()

	spool := NewSpool(m.Dir)
	for {
		msg, err := src.Message()
		if err == io.EOF {
			break
		}
		if err != nil {
			spool.Close()
			return errors.Wrap(err, "consuming row message")
		}
		if err := spool.Add(msg.Category, msg.Row); err != nil {
			spool.Close()
			return err
		}
	}
	if err := spool.Close(); err != nil {
		return err
	}

	if !m.Extract {
		return nil
	}
	fm := file.Main{Path: m.Dir, Store: m.Store, Backend: m.Backend, Debug: m.Debug}
	return fm.Run()
}
