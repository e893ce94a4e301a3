package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"udm-tms-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestHandleMessageRoutesInspectionRecorded(t *testing.T) {
	eh := NewEventHandler()

	var got *models.InspectionRecordedEvent
	eh.OnInspectionRecorded(func(_ context.Context, e *models.InspectionRecordedEvent) error {
		got = e
		return nil
	})
	eh.OnReceiptProcessed(func(context.Context, *models.ReceiptProcessedEvent) error {
		t.Fatal("receipt handler must not run")
		return nil
	})

	event := &models.InspectionRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeInspectionRecorded,
			Timestamp: time.Now().UTC(),
		},
		InspectionID: "INS-1",
		AssetID:      "ASSET-44523",
		Reads: []models.InspectionReadData{
			{InspectionID: "INS-1-RID-1", RID: "RID-1", Status: models.InspectionStatusDefective, Confidence: 0.8},
		},
	}

	require.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EventID)
	require.Len(t, got.Reads, 1)
	assert.Equal(t, models.InspectionStatusDefective, got.Reads[0].Status)
}

func TestHandleMessageWithoutRegisteredHandler(t *testing.T) {
	eh := NewEventHandler()

	event := &models.ComponentFittedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2", EventType: models.EventTypeComponentFitted},
		AssetID:   "ASSET-44523",
	}
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))

	unknown := models.BaseEvent{EventID: "evt-3", EventType: "SOMETHING_ELSE"}
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, unknown)))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")}))
}
