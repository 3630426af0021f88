package ports

import (
	"context"

	"aip/internal/verification/models"
)

// EventPublisher fans verification events out to external subscribers.
// Publishing happens after commit and never fails the caller's operation.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.Event) error
}
