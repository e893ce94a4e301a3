package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing traceability events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishReceiptProcessed publishes ReceiptProcessed event keyed by batch
func (ep *EventPublisher) PublishReceiptProcessed(ctx context.Context, event *models.ReceiptProcessedEvent) error {
	return ep.producer.PublishEvent(ctx, "batch-"+event.BatchID, event)
}

// PublishComponentFitted publishes ComponentFitted event keyed by asset
func (ep *EventPublisher) PublishComponentFitted(ctx context.Context, event *models.ComponentFittedEvent) error {
	return ep.producer.PublishEvent(ctx, "asset-"+event.AssetID, event)
}

// PublishInspectionRecorded publishes InspectionRecorded event keyed by asset
func (ep *EventPublisher) PublishInspectionRecorded(ctx context.Context, event *models.InspectionRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, "asset-"+event.AssetID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onReceiptProcessed   func(context.Context, *models.ReceiptProcessedEvent) error
	onComponentFitted    func(context.Context, *models.ComponentFittedEvent) error
	onInspectionRecorded func(context.Context, *models.InspectionRecordedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnReceiptProcessed registers a handler for ReceiptProcessed events
func (eh *EventHandler) OnReceiptProcessed(handler func(context.Context, *models.ReceiptProcessedEvent) error) {
	eh.onReceiptProcessed = handler
}

// OnComponentFitted registers a handler for ComponentFitted events
func (eh *EventHandler) OnComponentFitted(handler func(context.Context, *models.ComponentFittedEvent) error) {
	eh.onComponentFitted = handler
}

// OnInspectionRecorded registers a handler for InspectionRecorded events
func (eh *EventHandler) OnInspectionRecorded(handler func(context.Context, *models.InspectionRecordedEvent) error) {
	eh.onInspectionRecorded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.GetLogger().Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeReceiptProcessed:
		if eh.onReceiptProcessed != nil {
			var event models.ReceiptProcessedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReceiptProcessed event: %w", err)
			}
			return eh.onReceiptProcessed(ctx, &event)
		}

	case models.EventTypeComponentFitted:
		if eh.onComponentFitted != nil {
			var event models.ComponentFittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ComponentFitted event: %w", err)
			}
			return eh.onComponentFitted(ctx, &event)
		}

	case models.EventTypeInspectionRecorded:
		if eh.onInspectionRecorded != nil {
			var event models.InspectionRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal InspectionRecorded event: %w", err)
			}
			return eh.onInspectionRecorded(ctx, &event)
		}

	default:
		util.GetLogger().Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
