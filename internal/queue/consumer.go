package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ActivityQueueName is the durable queue bound to every routing key of
// ExchangeName by the activity consumer.
const ActivityQueueName = "building.activity"

// StartActivityConsumer connects to RabbitMQ, declares the exchange and the
// activity queue (both durable) and appends one line per event to the file
// at logPath.  It runs a reconnect loop with exponential backoff and only
// returns once ctx is cancelled.  A message that cannot be handled is
// rejected without requeue so one bad payload cannot stall the queue.
func StartActivityConsumer(ctx context.Context, url, logPath string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("activity-consumer")

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, logPath, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if err := declareExchange(ch); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(ActivityQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(ActivityQueueName, "#", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(ActivityQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(logPath, d.RoutingKey, d.Body); err != nil {
				log.Error("handle message failed", zap.String("routing_key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logPath, routingKey string, body []byte) error {
	line, err := FormatActivity(routingKey, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatActivity renders an event body as a single human-friendly line
// ending in a newline.
func FormatActivity(routingKey string, body []byte) (string, error) {
	switch routingKey {
	case KeyOccupancyTransferred:
		var ev OccupancyTransferredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Occupancy transferred | from_room=%d | to_room=%d | count=%d | from_now=%d | to_now=%d\n",
			ev.OccurredAt, ev.SourceRoomID, ev.DestinationRoomID, ev.Count, ev.SourcePeopleCount, ev.DestinationPeopleCount), nil
	case KeyOccupancyAdjusted:
		var ev OccupancyAdjustedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Occupancy adjusted | room=%d | delta=%+d | now=%d\n",
			ev.OccurredAt, ev.RoomID, ev.Delta, ev.PeopleCount), nil
	case KeyReservationBooked, KeyReservationCancelled:
		var ev ReservationEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		verb := "booked"
		if ev.Cancelled {
			verb = "cancelled"
		}
		return fmt.Sprintf("[%s] Reservation %s | reservation_id=%d | room=%d | date=%s | user_id=%q\n",
			ev.OccurredAt, verb, ev.ReservationID, ev.RoomID, ev.Date, ev.UserID), nil
	case KeyRoomCreated, KeyRoomDeleted:
		var ev RoomEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Deleted {
			return fmt.Sprintf("[%s] Room deleted | room=%d\n", ev.OccurredAt, ev.RoomID), nil
		}
		return fmt.Sprintf("[%s] Room created | room=%d | name=%q | capacity=%d\n",
			ev.OccurredAt, ev.RoomID, ev.Name, ev.MaxPeopleCount), nil
	}
	return "", fmt.Errorf("unknown routing key %q", routingKey)
}
