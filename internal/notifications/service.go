package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/sendgrid"
	"go.uber.org/multierr"
)

// Sender delivers a single rendered email.
type Sender interface {
	Send(ctx context.Context, msg sendgrid.Message) error
}

// Service dispatches the message category tied to a booking transition.
type Service interface {
	Notify(ctx context.Context, event enums.NotificationEvent, msg Message) error
}

// Message carries the booking facts that templates may reference.
type Message struct {
	BookingID            uint
	CustomerName         string
	CustomerEmail        string
	ServiceType          enums.ServiceType
	ScheduledAt          time.Time
	TimeWindow           string
	PickupAddress        string
	QuoteTotal           string
	QuoteNote            string
	Currency             string
	BookingURL           string
	CancellationDeadline time.Time
	CancellationFee      string
}

type messageView struct {
	Message
	ServiceLabel              string
	ScheduledLabel            string
	CancellationDeadlineLabel string
}

type service struct {
	sender     Sender
	adminEmail string
	templates  map[enums.NotificationEvent]eventTemplate
	logg       *logger.Logger
	location   *time.Location
}

// NewService builds the notification dispatcher. adminEmail may be empty, in
// which case admin copies are skipped.
func NewService(sender Sender, adminEmail string, logg *logger.Logger) (Service, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	templates, err := compileTemplates()
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation("America/Vancouver")
	if err != nil {
		location = time.UTC
	}
	return &service{
		sender:     sender,
		adminEmail: strings.TrimSpace(adminEmail),
		templates:  templates,
		logg:       logg,
		location:   location,
	}, nil
}

// Notify renders the event and sends it to every recipient in its audience.
// The returned error combines every failed delivery.
func (s *service) Notify(ctx context.Context, event enums.NotificationEvent, msg Message) error {
	tmpl, ok := s.templates[event]
	if !ok {
		return fmt.Errorf("no template for notification %q", event)
	}

	out, err := tmpl.render(s.view(msg))
	if err != nil {
		return fmt.Errorf("%s: %w", event, err)
	}

	var errs error
	if tmpl.audience&audienceCustomer != 0 {
		errs = multierr.Append(errs, s.send(ctx, event, "customer", sendgrid.Message{
			ToName:    msg.CustomerName,
			ToEmail:   msg.CustomerEmail,
			Subject:   out.Subject,
			PlainText: out.PlainText,
			HTML:      out.HTML,
		}))
	}
	if tmpl.audience&audienceAdmin != 0 && s.adminEmail != "" {
		errs = multierr.Append(errs, s.send(ctx, event, "admin", sendgrid.Message{
			ToEmail:   s.adminEmail,
			Subject:   "[admin] " + out.Subject,
			PlainText: out.PlainText,
			HTML:      out.HTML,
		}))
	}
	return errs
}

func (s *service) send(ctx context.Context, event enums.NotificationEvent, recipient string, msg sendgrid.Message) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s to %s: %w", event, recipient, err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"event": string(event), "recipient": recipient}), "notification.sent")
	}
	return nil
}

func (s *service) view(msg Message) messageView {
	view := messageView{
		Message:        msg,
		ServiceLabel:   serviceLabel(msg.ServiceType),
		ScheduledLabel: msg.ScheduledAt.In(s.location).Format("Mon Jan 2, 2006 3:04 PM"),
	}
	if msg.TimeWindow != "" {
		view.ScheduledLabel += " (" + msg.TimeWindow + ")"
	}
	if !msg.CancellationDeadline.IsZero() {
		view.CancellationDeadlineLabel = msg.CancellationDeadline.In(s.location).Format("Mon Jan 2, 2006 3:04 PM")
	}
	return view
}

func serviceLabel(kind enums.ServiceType) string {
	switch kind {
	case enums.ServiceTypeMoving:
		return "moving"
	case enums.ServiceTypeJunkRemoval:
		return "junk removal"
	}
	return string(kind)
}

// LogSender writes emails to the structured log instead of sending them.
type LogSender struct {
	Logg *logger.Logger
}

func (l LogSender) Send(ctx context.Context, msg sendgrid.Message) error {
	if l.Logg == nil {
		return nil
	}
	ctx = l.Logg.WithFields(ctx, map[string]any{"to": msg.ToEmail, "subject": msg.Subject})
	l.Logg.Info(ctx, "notification.logged")
	return nil
}
