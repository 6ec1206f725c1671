package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

func parseAgencyID(raw string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(raw))
}

// WorkerIntakeRoutingKey is the binding for agency-published worker intake batches.
const WorkerIntakeRoutingKey = "worker.intake"

// workerIntakeEvent is the broker payload agencies publish to register workers.
type workerIntakeEvent struct {
	FullName        string `json:"full_name"`
	Nationality     string `json:"nationality"`
	Profession      string `json:"profession"`
	AgencyID        string `json:"agency_id"`
	ExperienceYears int    `json:"experience_years"`
}

// WorkerIntakeConsumer registers workers arriving from agency intake messages.
type WorkerIntakeConsumer struct {
	service *Service
}

func NewWorkerIntakeConsumer(service *Service) *WorkerIntakeConsumer {
	return &WorkerIntakeConsumer{service: service}
}

// HandleMessage processes one intake message. Malformed payloads are acknowledged
// and dropped; infrastructure failures are re-queued.
func (c *WorkerIntakeConsumer) HandleMessage(body []byte) bool {
	var event workerIntakeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("intake-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	agencyID, err := parseAgencyID(event.AgencyID)
	if err != nil {
		log.Printf("intake-consumer: invalid agency id %q: %v", event.AgencyID, err)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	payload := domain.WorkerIntakePayload{
		FullName:        event.FullName,
		Nationality:     event.Nationality,
		Profession:      event.Profession,
		AgencyID:        agencyID,
		ExperienceYears: event.ExperienceYears,
	}
	if _, err := c.service.RegisterWorker(ctx, agencyID, payload); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			log.Printf("intake-consumer: rejecting malformed intake for agency %s: %v", agencyID, err)
			return true
		}
		log.Printf("intake-consumer: processing error for agency %s: %v", agencyID, err)
		return false
	}

	return true
}
