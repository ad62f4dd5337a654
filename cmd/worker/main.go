package main // Booking event consumer entry point

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
)

// The worker runs separately from the API server so broker outages and
// log processing never share a process with request handling.
func main() {
	_ = godotenv.Load()

	log.Println("booking consumer starting")
	if err := queue.StartBookingConsumer(); err != nil {
		log.Fatalf("booking consumer stopped: %v", err)
	}
}
