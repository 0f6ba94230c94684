package services

import (
	"github.com/sirupsen/logrus"
)

// Routing keys for domain events.
const (
	EventPurchaseCreated = "purchase.created"
	EventListingCreated  = "listing.created"
	EventListingDeleted  = "listing.deleted"
)

// EventPublisher announces domain events. It is optional: services skip
// publication when none is configured.
type EventPublisher interface {
	Publish(routingKey string, payload interface{}) error
}

// publish sends an event and only logs failures; events never fail an operation.
func publish(p EventPublisher, routingKey string, payload interface{}, fields logrus.Fields) {
	if p == nil {
		return
	}
	if err := p.Publish(routingKey, payload); err != nil {
		logrus.WithFields(fields).WithError(err).WithField("event", routingKey).Warn("Failed to publish event")
		return
	}
	logrus.WithFields(fields).WithField("event", routingKey).Debug("Published event")
}
