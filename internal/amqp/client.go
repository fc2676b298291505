package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fishbox/internal/core"
	applog "fishbox/internal/log"
)

const publishTimeout = 5 * time.Second

// Client publishes catch exports and notifications to a direct exchange and
// consumes the export queue. Each queue is bound with its own name as routing
// key.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	exportQueue  string
	notifyQueue  string

	// amqp091 channels must not be used for concurrent publishes.
	publishMu sync.Mutex
}

func NewClient(url, exchangeName, exportQueue, notifyQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		exportQueue:  exportQueue,
		notifyQueue:  notifyQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.exportQueue, c.notifyQueue} {
		if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// EnqueueExport publishes a CatchExportMessage for c.
func (c *Client) EnqueueExport(ctx context.Context, catch core.Catch) error {
	body, err := NewCatchExportMessage(catch).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal export message: %w", err)
	}
	if err := c.publish(ctx, c.exportQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published catch export message",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldCatchID, catch.ID,
		"queue", c.exportQueue)
	return nil
}

// Notify publishes n to the notification queue.
func (c *Client) Notify(ctx context.Context, n core.Notification) error {
	body, err := NewNotificationMessage(n).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := c.publish(ctx, c.notifyQueue, body); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Published notification",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldUserID, n.UserID,
		applog.FieldKind, string(n.Kind))
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", routingKey, err)
	}
	return nil
}

// ExportHandler processes one export message. Returning an error requeues the
// message.
type ExportHandler func(context.Context, *CatchExportMessage) error

// ConsumeExports blocks delivering export messages to handler until ctx is
// done or the broker closes the channel.
func (c *Client) ConsumeExports(ctx context.Context, handler ExportHandler) error {
	msgs, err := c.channel.Consume(
		c.exportQueue, // queue
		"",            // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming catch export messages", "queue", c.exportQueue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

// ErrChannelClosed is returned by ConsumeExports when the broker side goes
// away. Callers reconnect.
var ErrChannelClosed = errors.New("message channel closed")

type deliveryOutcome int

const (
	outcomeAck deliveryOutcome = iota
	outcomeDrop
	outcomeRequeue
)

// handleDelivery acks processed messages, drops malformed ones and requeues
// messages whose handler failed.
func handleDelivery(ctx context.Context, d amqp091.Delivery, handler ExportHandler) deliveryOutcome {
	msg, err := CatchExportMessageFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err)
		_ = d.Nack(false, false)
		return outcomeDrop
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			applog.FieldError, err,
			applog.FieldCatchID, msg.ID)
		_ = d.Nack(false, true)
		return outcomeRequeue
	}

	_ = d.Ack(false)
	slog.InfoContext(ctx, "Processed catch export message", applog.FieldCatchID, msg.ID)
	return outcomeAck
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
