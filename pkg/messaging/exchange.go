package messaging

import (
	"context"
	"fmt"
	"log"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	amqp "github.com/rabbitmq/amqp091-go"
)

const matchAll = "#"

// Exchange is the durable topic exchange <prefix>_<topic>.
type Exchange struct {
	Prefix string
	Topic  ChangeTopic
}

func (e Exchange) Name() string {
	return fmt.Sprintf("%s_%s", e.Prefix, e.Topic)
}

// Declare creates the exchange plus a durable queue of the same name that
// receives every routing key, so messages outlive a restarting consumer.
func (e Exchange) Declare(ch *amqp.Channel) error {
	name := e.Name()
	if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := ch.QueueBind(name, matchAll, name, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	return nil
}

func encodeMessage(data any) (amqp.Publishing, error) {
	body, err := jsoncompat.Marshal(data)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}, nil
}

// Publish sends data as JSON with the given routing key on a short-lived
// channel.
func (e Exchange) Publish(ctx context.Context, conn *amqp.Connection, routingKey string, data any) error {
	msg, err := encodeMessage(data)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return ch.PublishWithContext(ctx, e.Name(), routingKey, false, false, msg)
}

// Subscribe binds an exclusive queue to the exchange and hands every
// delivery to handler until the channel closes. Failed deliveries are
// rejected without requeue.
func (e Exchange) Subscribe(ch *amqp.Channel, handler func(amqp.Delivery) error) error {
	q, err := ch.QueueDeclare("", false, false, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, matchAll, e.Name(), false, nil); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		defer ch.Close()
		for d := range deliveries {
			if err := handler(d); err != nil {
				log.Printf("error processing %s message: %v", e.Topic, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
		log.Printf("listener for %s stopped", e.Topic)
	}()
	return nil
}
