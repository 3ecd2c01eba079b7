package websocket

import (
	"context"
	"sync"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// Notifier fans out out-of-band messages to every open favorites stream.
// It implements domain.AuthPrompter: a sign-in request reaches all connected UIs.
type Notifier struct {
	mu      sync.Mutex
	streams map[chan BaseMessage]struct{}
	logger  domain.Logger
}

// NewNotifier creates a Notifier with no streams.
func NewNotifier(logger domain.Logger) *Notifier {
	if logger == nil {
		panic("logger is nil in NewNotifier")
	}
	return &Notifier{streams: make(map[chan BaseMessage]struct{}), logger: logger}
}

func (n *Notifier) register(ch chan BaseMessage) func() {
	n.mu.Lock()
	n.streams[ch] = struct{}{}
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.streams, ch)
		n.mu.Unlock()
	}
}

// Len returns the number of open streams.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.streams)
}

// RequestAuth implements domain.AuthPrompter
func (n *Notifier) RequestAuth(ctx context.Context, reason string) {
	n.broadcast(ctx, NewAuthRequiredMessage(reason))
}

func (n *Notifier) broadcast(ctx context.Context, msg BaseMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.streams) == 0 {
		n.logger.Info(ctx, "No open stream to deliver message", "type", msg.Type)
		return
	}
	for ch := range n.streams {
		select {
		case ch <- msg:
		default:
			n.logger.Warn(ctx, "Favorites stream buffer full, dropping message", "type", msg.Type)
		}
	}
}
