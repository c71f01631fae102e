package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
)

// SuspicionEvent notifies other instances about suspicious activity.
type SuspicionEvent struct {
	Subject   string `json:"subject"`
	ContentID string `json:"content_id"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

// LicenseIssuedEvent notifies other instances about license grants.
type LicenseIssuedEvent struct {
	Subject   string `json:"subject"`
	ContentID string `json:"content_id"`
	Provider  string `json:"provider"`
	Outcome   string `json:"outcome"`
}

// WatermillPublisher implements the EventPublisher interface using
// Watermill.
type WatermillPublisher struct {
	publisher      message.Publisher
	suspicionTopic string
	licenseTopic   string
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher:      publisher,
		suspicionTopic: "drm.suspicion",
		licenseTopic:   "drm.license",
	}
}

// PublishSuspicion publishes a suspicion event.
func (p *WatermillPublisher) PublishSuspicion(ctx context.Context, rec *core.SuspicionRecord) error {
	event := SuspicionEvent{
		Subject:   rec.Subject,
		ContentID: rec.ContentID,
		Reason:    rec.Reason,
		Detail:    rec.Detail,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(rec.ID, payload)

	if err := p.publisher.Publish(p.suspicionTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLicenseIssued publishes a license issuance event.
func (p *WatermillPublisher) PublishLicenseIssued(ctx context.Context, rec *core.LicenseRequestRecord) error {
	event := LicenseIssuedEvent{
		Subject:   rec.Subject,
		ContentID: rec.ContentID,
		Provider:  rec.Provider,
		Outcome:   rec.Outcome,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(rec.ID, payload)

	if err := p.publisher.Publish(p.licenseTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards all events. Useful for tests and deployments
// without an event stream.
type NopPublisher struct{}

// PublishSuspicion discards the event.
func (NopPublisher) PublishSuspicion(ctx context.Context, rec *core.SuspicionRecord) error {
	return nil
}

// PublishLicenseIssued discards the event.
func (NopPublisher) PublishLicenseIssued(ctx context.Context, rec *core.LicenseRequestRecord) error {
	return nil
}
