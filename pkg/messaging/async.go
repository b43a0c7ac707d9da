package messaging

import (
	"context"
	"errors"
	"log"

	"github.com/matst80/slask-audience/pkg/common"
)

var ErrPublisherClosed = errors.New("publisher is closed")

// AsyncPublisher queues messages and publishes them in the background.
type AsyncPublisher struct {
	queue *common.QueueHandler[CampaignSavedMessage]
}

func NewAsyncPublisher(p Publisher) *AsyncPublisher {
	return &AsyncPublisher{
		queue: common.NewQueueHandler(func(items []CampaignSavedMessage) {
			for _, msg := range items {
				if err := p.PublishCampaignSaved(context.Background(), msg); err != nil {
					log.Printf("failed to publish campaign %d: %v", msg.ID, err)
				}
			}
		}, 16),
	}
}

func (a *AsyncPublisher) PublishCampaignSaved(ctx context.Context, msg CampaignSavedMessage) error {
	if !a.queue.Add(msg) {
		return ErrPublisherClosed
	}
	return nil
}

// Close flushes queued messages.
func (a *AsyncPublisher) Close(ctx context.Context) error {
	return a.queue.Close(ctx)
}
