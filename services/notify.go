package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// Intent is a request to inform a user of a lifecycle event. It is decoupled
// from the operation that produced it: delivery happens after the primary
// write has committed and its outcome never affects that write.
type Intent struct {
	TargetID     string
	Kind         models.NotificationKind
	Title        string
	Message      string
	ComplaintRef string
}

// Notifier delivers a notification intent through whatever channel the
// deployment wires in (in-app row, push, email).
type Notifier interface {
	Notify(ctx context.Context, intent Intent) error
}

// emit dispatches an intent on its own goroutine with a detached context.
// Failures are logged and swallowed; the caller has already returned.
func emit(notifier Notifier, intent Intent) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := notifier.Notify(ctx, intent); err != nil {
			log.Error().
				Err(err).
				Str("target", intent.TargetID).
				Str("kind", string(intent.Kind)).
				Str("complaint", intent.ComplaintRef).
				Msg("notification delivery failed")
		}
	}()
}
