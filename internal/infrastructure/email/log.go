package email

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
)

var _ notification.EmailGateway = LogGateway{}

// LogGateway logs emails instead of sending them. It backs dry runs and
// local development without provider credentials.
type LogGateway struct{}

// Send logs the email and returns a generated message id.
func (LogGateway) Send(ctx context.Context, email domain.Email) (string, error) {
	id := "dryrun-" + uuid.Must(uuid.NewV7()).String()
	slog.InfoContext(ctx, "email not sent (log provider)",
		"message_id", id,
		"to", email.To,
		"subject", email.Subject,
		"html_bytes", len(email.HTML))
	return id, nil
}
