package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const EventPriceRecorded = "PriceRecorded"

// PriceListener records supplier price updates arriving on the price feed.
type PriceListener struct {
	consumer *broker.KafkaConsumer
	uc       product.UseCase
	logger   logger.ZapLogger
}

func NewPriceListener(consumer *broker.KafkaConsumer, uc product.UseCase, logger logger.ZapLogger) *PriceListener {
	return &PriceListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *PriceListener) Start(ctx context.Context) {
	l.logger.Info("Starting Price Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Price Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				// Don't log context canceled error as error
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type PriceRecordedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   PricePayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type PricePayload struct {
	VariantID int64           `json:"variant_id"`
	Price     decimal.Decimal `json:"price"`
	PriceDate *time.Time      `json:"price_date"`
}

// processMessage reports whether the event was applied.
func (l *PriceListener) processMessage(ctx context.Context, value []byte) bool {
	var event PriceRecordedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return false
	}

	if event.EventType != EventPriceRecorded {
		return false
	}

	log := l.logger.With(
		zap.String("event_id", event.EventID),
		zap.Int64("variant_id", event.Payload.VariantID),
	)
	log.Info("Processing PriceRecorded event")

	input := &dto.RecordPriceInput{
		VariantID: event.Payload.VariantID,
		Price:     event.Payload.Price,
		PriceDate: event.Payload.PriceDate,
	}
	if _, err := l.uc.RecordPrice(ctx, input); err != nil {
		// Bad payloads will not get better on redelivery; the offset is already committed.
		if apperror.Is(err, apperror.CodeInvalidRequest) || apperror.Is(err, apperror.CodeNotFound) {
			log.Warn("Dropping invalid price event", zap.Error(err))
		} else {
			log.Error("Failed to record price", zap.Error(err))
		}
		return false
	}
	return true
}
