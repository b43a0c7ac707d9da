package messaging

import (
	"context"
	"fmt"
	"log"

	"github.com/matst80/slask-audience/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher announces saved campaigns.
type Publisher interface {
	PublishCampaignSaved(ctx context.Context, msg CampaignSavedMessage) error
}

type RabbitTransport struct {
	RabbitConfig
	conn *amqp.Connection
}

func NewRabbitTransport(config RabbitConfig) *RabbitTransport {
	return &RabbitTransport{RabbitConfig: config}
}

func (t *RabbitTransport) exchange(topic ChangeTopic) Exchange {
	return Exchange{Prefix: t.Prefix, Topic: topic}
}

// Connect dials the broker and declares both topics.
func (t *RabbitTransport) Connect() error {
	conn, err := amqp.Dial(t.Url)
	if err != nil {
		return fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	for _, topic := range []ChangeTopic{CampaignSaved, OptionsChanged} {
		if err := t.exchange(topic).Declare(ch); err != nil {
			_ = conn.Close()
			return err
		}
	}
	t.conn = conn
	log.Printf("connected to rabbit, prefix %s", t.Prefix)
	return nil
}

func (t *RabbitTransport) PublishCampaignSaved(ctx context.Context, msg CampaignSavedMessage) error {
	if t.conn == nil {
		return fmt.Errorf("rabbit is not connected")
	}
	return t.exchange(CampaignSaved).Publish(ctx, t.conn, msg.RoutingKey(), msg)
}

// OnOptionsChanged calls fn with every options payload published on the
// options_changed topic.
func (t *RabbitTransport) OnOptionsChanged(fn func(*types.CampaignOptions) error) error {
	if t.conn == nil {
		return fmt.Errorf("rabbit is not connected")
	}
	ch, err := t.conn.Channel()
	if err != nil {
		return err
	}
	return t.exchange(OptionsChanged).Subscribe(ch, func(d amqp.Delivery) error {
		opts, err := decodeOptions(d.Body)
		if err != nil {
			return fmt.Errorf("decode options: %w", err)
		}
		return fn(opts)
	})
}

func (t *RabbitTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
