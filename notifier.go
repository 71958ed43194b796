package provision

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Notification templates and the flow-specific link paths they carry.
const (
	TemplateUserRegistration = "user_registration"
	TemplateResetPassword    = "reset_password"

	confirmRegistrationPath = "/users/confirmRegistration"
	resetPasswordPath       = "/users/resetPassword"
)

// Email is a fully rendered notification. Delivery belongs to the Mailer.
type Email struct {
	To       string
	Subject  string
	Template string
	Params   map[string]any
}

// Mailer delivers rendered notifications. Implementations own transport
// and content templating.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Notifier queues notifications emitted after committed state
// transitions. A bounded queue drained by a fixed set of workers keeps
// slow or failing delivery off the request path: enqueueing never blocks,
// and when the queue is saturated the message is dropped with a log line.
type Notifier struct {
	mailer     Mailer
	gatewayURL string
	logger     Logger

	queue   chan Email
	workers int
	timeout time.Duration

	mu        sync.Mutex
	closed    bool
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

var _ Notifications = (*Notifier)(nil)

// NotifierOption tweaks queue and worker sizing.
type NotifierOption func(*Notifier)

// WithQueueSize caps how many notifications may be pending at once.
func WithQueueSize(n int) NotifierOption {
	return func(d *Notifier) {
		if n > 0 {
			d.queue = make(chan Email, n)
		}
	}
}

// WithWorkers sets how many goroutines drain the queue.
func WithWorkers(n int) NotifierOption {
	return func(d *Notifier) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(t time.Duration) NotifierOption {
	return func(d *Notifier) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewNotifier creates a notifier delivering through mailer, building
// redirect links against the configured gateway URL.
func NewNotifier(mailer Mailer, cfg Config, logger Logger, opts ...NotifierOption) *Notifier {
	if logger == nil {
		logger = defLogger{}
	}

	n := &Notifier{
		mailer:     mailer,
		gatewayURL: strings.TrimSuffix(cfg.GetGatewayURL(), "/"),
		logger:     logger,
		queue:      make(chan Email, 64),
		workers:    2,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Start launches the delivery workers. Safe to call once.
func (n *Notifier) Start() {
	n.startOnce.Do(func() {
		for i := 0; i < n.workers; i++ {
			n.wg.Add(1)
			go n.worker()
		}
	})
}

// Stop closes the queue and waits for in-flight deliveries to finish.
// Notifications queued after Stop are dropped.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		close(n.queue)
	})
	n.wg.Wait()
}

// QueueRegistration enqueues the registration confirmation email.
func (n *Notifier) QueueRegistration(user *User, token string) {
	url := n.redirectURL(user.Domain, confirmRegistrationPath, token)
	n.enqueue(Email{
		To:       user.Email,
		Subject:  "User registration - " + user.FullName(),
		Template: TemplateUserRegistration,
		Params: map[string]any{
			"user":            user,
			"token":           token,
			"registrationUrl": url,
		},
	})
}

// QueueResetPassword enqueues the password reset email.
func (n *Notifier) QueueResetPassword(user *User, token string) {
	url := n.redirectURL(user.Domain, resetPasswordPath, token)
	n.enqueue(Email{
		To:       user.Email,
		Subject:  "Forgot Password - " + user.FullName(),
		Template: TemplateResetPassword,
		Params: map[string]any{
			"user":             user,
			"token":            token,
			"resetPasswordUrl": url,
		},
	})
}

func (n *Notifier) enqueue(email Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		n.logger.Error("notifier stopped, dropping %s for %s", email.Template, email.To)
		return
	}
	select {
	case n.queue <- email:
	default:
		n.logger.Error("notification queue saturated, dropping %s for %s", email.Template, email.To)
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for email := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		if err := n.mailer.Send(ctx, email); err != nil {
			n.logger.Error("notification send failed for %s: %v", email.To, err)
		}
		cancel()
	}
}

func (n *Notifier) redirectURL(domain, path, token string) string {
	return n.gatewayURL + "/" + domain + path + "?token=" + token
}
