package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event BookingEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.BookingID != "BK-1" || event.Source != "fallback" {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	publisher := NewKafkaPublisherWithProducer(producer, "gogobus.bookings", quietLogger())

	event := NewBookingEvent(EventBookingCreated, uuid.New(), "BK-1")
	event.Source = "fallback"
	event.Seats = []string{"1A", "1B"}

	require.NoError(t, publisher.Publish(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisherWithProducer(producer, "gogobus.bookings", quietLogger())

	err := publisher.Publish(context.Background(), NewBookingEvent(EventBookingCreated, uuid.New(), "BK-2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, publisher.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewBookingEvent(EventBookingCreated, uuid.New(), "x")))
	assert.NoError(t, p.Close())
}
