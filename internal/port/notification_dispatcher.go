package port

import (
	"context"

	"github.com/driftndash/storefront/internal/core/domain"
)

// NotificationDispatcher hands a rendered message to the external mail
// channel. Best-effort: a failure here never unwinds a committed order.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, msg domain.EmailMessage) error
}
