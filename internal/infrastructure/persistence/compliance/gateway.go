package compliance

import (
	"context"
	"sync"

	"github.com/rezkam/hsewatch/internal/domain"
)

// countingGateway accepts every email and counts them.
type countingGateway struct {
	mu   sync.Mutex
	sent []domain.Email
}

func (g *countingGateway) Send(_ context.Context, email domain.Email) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, email)
	return "compliance-" + email.To, nil
}

func (g *countingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}
