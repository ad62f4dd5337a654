// Package queue contains the background consumers that listen to the
// booking queues and write structured logs to logs/booking.log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	bookingConfirmedQueue = "booking.confirmed"
	bookingCancelledQueue = "booking.cancelled"
)

// StartBookingConsumer connects to RabbitMQ, declares the booking
// queues (durable), and starts consuming messages. Each message is
// appended to logs/booking.log in a single-line, human-friendly
// format. The function runs a reconnect loop; it keeps running and
// logs any processing errors while rejecting the offending message so
// the server continues operating.
func StartBookingConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
			// Sleep briefly before reconnect
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{bookingConfirmedQueue, bookingCancelledQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	confirmed, err := ch.Consume(bookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", bookingConfirmedQueue, err)
	}
	cancelled, err := ch.Consume(bookingCancelledQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", bookingCancelledQueue, err)
	}

	for {
		select {
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ackOrReject(d, handleConfirmed(d.Body))
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ackOrReject(d, handleCancelled(d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("booking-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | ref=%s | user_id=%d | trip_id=%d | route=\"%s -> %s\" | date=%s %s | status=%s | total=%d cents | seats=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.BookingRef, ev.UserID, ev.TripID, ev.StartPoint, ev.Destination, ev.TripDate, ev.DepartureTime, ev.PaymentStatus, ev.TotalAmountCents, formatSeats(ev.SeatNumbers))
	return appendBookingLog(line)
}

func handleCancelled(body []byte) error {
	var ev BookingCancelledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | ref=%s | user_id=%d | trip_id=%d | seats=%s\n",
		ev.CancelledAt, ev.BookingID, ev.BookingRef, ev.UserID, ev.TripID, formatSeats(ev.SeatNumbers))
	return appendBookingLog(line)
}

func formatSeats(seats []uint32) string {
	if len(seats) == 0 {
		return "[]"
	}
	parts := make([]string, len(seats))
	for i, n := range seats {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ","))
}

func appendBookingLog(line string) error {
	// Ensure logs directory exists
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
