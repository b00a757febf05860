// Package kafka consumes asset rows published to a Kafka topic and spools
// them into the CSV catalog layout the file package serves. Producers send
// one JSON message per row: {"category": "...", "row": {"Col": "val", ...}}.
package kafka

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"log"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/pkg/errors"

	"github.com/marinedk/mdk"
)

// RowMessage is the wire format of one asset row.
type RowMessage struct {
	Category string  `json:"category"`
	Row      mdk.Row `json:"row"`
}

// Source reads RowMessages from Kafka. It is not an mdk.Source - rows arrive
// interleaved across categories and must be spooled into a catalog before
// extraction.
type Source struct {
	Hosts   []string
	Topics  []string
	Group   string
	MaxMsgs int
	numMsgs int

	consumer *cluster.Consumer
}

// NewSource gets a new Source with the default configuration.
func NewSource() *Source {
	return &Source{
		Hosts:  []string{"localhost:9092"},
		Topics: []string{"mdk-assets"},
		Group:  "mdk",
	}
}

// Open initializes the kafka consumer.
func (s *Source) Open() error {
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	config := cluster.NewConfig()
	config.Config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Group.Return.Notifications = true

	var err error
	s.consumer, err = cluster.NewConsumer(s.Hosts, s.Group, s.Topics, config)
	if err != nil {
		return errors.Wrap(err, "getting new consumer")
	}

	go func() {
		for err := range s.consumer.Errors() {
			log.Printf("Error: %s\n", err.Error())
		}
	}()
	go func() {
		for ntf := range s.consumer.Notifications() {
			log.Printf("Rebalanced: %+v\n", ntf)
		}
	}()
	return nil
}

// Message returns the next decoded row message, or io.EOF once MaxMsgs
// messages have been consumed.
func (s *Source) Message() (*RowMessage, error) {
	if s.MaxMsgs > 0 {
		s.numMsgs++
		if s.numMsgs > s.MaxMsgs {
			return nil, io.EOF
		}
	}
	msg, ok := <-s.consumer.Messages()
	if !ok {
		return nil, errors.New("messages channel closed")
	}
	rm := &RowMessage{}
	if err := json.Unmarshal(msg.Value, rm); err != nil {
		return nil, errors.Wrap(err, "unmarshaling row message")
	}
	if rm.Category == "" {
		return nil, errors.Errorf("row message without category: %s", msg.Value)
	}
	s.consumer.MarkOffset(msg, "")
	return rm, nil
}

// Close closes the underlying kafka consumer.
func (s *Source) Close() error {
	if s.consumer == nil {
		return nil
	}
	return errors.Wrap(s.consumer.Close(), "closing kafka consumer")
}
