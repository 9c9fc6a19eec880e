package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nutria-assistant-be/internal/dto"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/internal/repository/specification"
	"nutria-assistant-be/internal/repository/unitofwork"
	"nutria-assistant-be/pkg/embedding"
	"nutria-assistant-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.EmbedProductMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Embedding", "Dropping malformed job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // a malformed payload never succeeds
		return
	}

	if err := cs.embedProduct(ctx, payload.ProductId); err != nil {
		cs.logger.Error("Embedding", "Product embedding failed", map[string]interface{}{
			"product_id": payload.ProductId,
			"error":      err.Error(),
		})
		if llm.IsQuota(err) {
			msg.Ack() // retried by the next backfill instead of hot-looping
			return
		}
		msg.Nack()
		return
	}

	cs.logger.Info("Embedding", "Product embedded", map[string]interface{}{"product_id": payload.ProductId})
	msg.Ack()
}

func (cs *consumerService) embedProduct(ctx context.Context, productId int64) error {
	repo := cs.uowFactory.NewUnitOfWork(ctx).ProductRepository()

	product, err := repo.FindOne(ctx, specification.ByID{ID: productId})
	if err != nil {
		return fmt.Errorf("find product: %w", err)
	}
	if product == nil {
		return nil // deleted since the job was queued
	}

	res, err := cs.embeddingProvider.Generate(ctx, ProductDocument(product.Name, product.Description), embedding.TaskRetrievalDocument)
	if err != nil {
		return err
	}
	if n := len(res.Embedding.Values); n != embedding.Dimensions {
		return fmt.Errorf("embedding has %d dimensions, want %d", n, embedding.Dimensions)
	}
	return repo.UpdateEmbedding(ctx, product.Id, res.Embedding.Values)
}

// ProductDocument is the text embedded for a product.
func ProductDocument(name, description string) string {
	doc := "Produto: " + strings.TrimSpace(name)
	if d := strings.TrimSpace(description); d != "" {
		doc += "\n" + d
	}
	return doc
}
