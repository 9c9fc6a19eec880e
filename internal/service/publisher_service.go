package service

import (
	"context"
	"encoding/json"

	"nutria-assistant-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService enqueues product embedding jobs.
type IPublisherService interface {
	RequestProductEmbedding(ctx context.Context, productId int64) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) RequestProductEmbedding(ctx context.Context, productId int64) error {
	payload, err := json.Marshal(dto.EmbedProductMessage{ProductId: productId})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}
