package worker

import (
	"context"

	"udm-tms-service/internal/broker"
	"udm-tms-service/internal/service"
	"udm-tms-service/internal/util"

	"go.uber.org/zap"
)

// InspectionWorker consumes traceability events and feeds the defect monitor
type InspectionWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewInspectionWorker creates a new inspection worker
func NewInspectionWorker(consumer *broker.Consumer, monitor *service.DefectMonitor) *InspectionWorker {
	return &InspectionWorker{
		consumer:     consumer,
		eventHandler: NewEventHandler(monitor),
		logger:       util.GetLogger(),
	}
}

// NewEventHandler routes every traceability event to the defect monitor
func NewEventHandler(monitor *service.DefectMonitor) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnReceiptProcessed(monitor.HandleReceiptProcessed)
	eventHandler.OnComponentFitted(monitor.HandleComponentFitted)
	eventHandler.OnInspectionRecorded(monitor.HandleInspectionRecorded)
	return eventHandler
}

// Start starts the worker
func (w *InspectionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting inspection worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InspectionWorker) Stop() error {
	w.logger.Info("Stopping inspection worker")
	return w.consumer.Close()
}
