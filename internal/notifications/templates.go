package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
)

type audience int

const (
	audienceCustomer audience = 1 << iota
	audienceAdmin
)

type eventTemplate struct {
	audience audience
	subject  *template.Template
	body     *template.Template
	html     *htmltemplate.Template
}

const htmlLayout = `<!doctype html><html><body style="font-family:sans-serif">
{{range .Lines}}<p>{{.}}</p>{{end}}
{{if .Link}}<p><a href="{{.Link}}">{{.LinkText}}</a></p>{{end}}
</body></html>`

var layout = htmltemplate.Must(htmltemplate.New("layout").Parse(htmlLayout))

type templateDef struct {
	audience audience
	subject  string
	body     string
}

var templateDefs = map[enums.NotificationEvent]templateDef{
	enums.NotificationEventBookingReceived: {
		audience: audienceCustomer | audienceAdmin,
		subject:  "We received your booking request #{{.BookingID}}",
		body: `Hi {{.CustomerName}},
Thanks for booking {{.ServiceLabel}} for {{.ScheduledLabel}}.
Pickup: {{.PickupAddress}}
We will review the details and send you a quote shortly.`,
	},
	enums.NotificationEventQuotationSent: {
		audience: audienceCustomer,
		subject:  "Your quote for booking #{{.BookingID}}",
		body: `Hi {{.CustomerName}},
Your quote is ready: {{.QuoteTotal}} {{.Currency}} including tax.
{{if .QuoteNote}}Note from our team: {{.QuoteNote}}
{{end}}Review and confirm your booking here: {{.BookingURL}}`,
	},
	enums.NotificationEventBookingConfirmed: {
		audience: audienceCustomer | audienceAdmin,
		subject:  "Booking #{{.BookingID}} confirmed",
		body: `Hi {{.CustomerName}},
Your {{.ServiceLabel}} booking for {{.ScheduledLabel}} is confirmed.
Free cancellation is available until {{.CancellationDeadlineLabel}}.
Manage your booking: {{.BookingURL}}`,
	},
	enums.NotificationEventInvoiceSent: {
		audience: audienceCustomer,
		subject:  "Invoice for booking #{{.BookingID}}",
		body: `Hi {{.CustomerName}},
Your invoice total is {{.QuoteTotal}} {{.Currency}}.
Pay securely here: {{.BookingURL}}`,
	},
	enums.NotificationEventPaymentReceived: {
		audience: audienceCustomer | audienceAdmin,
		subject:  "Payment received for booking #{{.BookingID}}",
		body: `Hi {{.CustomerName}},
We received your payment of {{.QuoteTotal}} {{.Currency}}. Thank you!`,
	},
	enums.NotificationEventBookingCancelled: {
		audience: audienceCustomer | audienceAdmin,
		subject:  "Booking #{{.BookingID}} cancelled",
		body: `Hi {{.CustomerName}},
Your {{.ServiceLabel}} booking for {{.ScheduledLabel}} has been cancelled.
{{if .CancellationFee}}A cancellation fee of {{.CancellationFee}} {{.Currency}} applies.{{else}}No cancellation fee applies.{{end}}`,
	},
}

func compileTemplates() (map[enums.NotificationEvent]eventTemplate, error) {
	out := make(map[enums.NotificationEvent]eventTemplate, len(templateDefs))
	for event, def := range templateDefs {
		subject, err := template.New(string(event) + ".subject").Option("missingkey=error").Parse(def.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", event, err)
		}
		body, err := template.New(string(event) + ".body").Option("missingkey=error").Parse(def.body)
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", event, err)
		}
		out[event] = eventTemplate{audience: def.audience, subject: subject, body: body, html: layout}
	}
	return out, nil
}

type rendered struct {
	Subject   string
	PlainText string
	HTML      string
}

type htmlView struct {
	Lines    []string
	Link     string
	LinkText string
}

func (t eventTemplate) render(view messageView) (rendered, error) {
	var subject, body, html bytes.Buffer
	if err := t.subject.Execute(&subject, view); err != nil {
		return rendered{}, fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&body, view); err != nil {
		return rendered{}, fmt.Errorf("render body: %w", err)
	}

	lines := splitLines(body.String())
	if err := t.html.Execute(&html, htmlView{Lines: lines, Link: view.BookingURL, LinkText: "View your booking"}); err != nil {
		return rendered{}, fmt.Errorf("render html: %w", err)
	}

	return rendered{Subject: subject.String(), PlainText: body.String(), HTML: html.String()}, nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range bytes.Split([]byte(text), []byte("\n")) {
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			lines = append(lines, string(trimmed))
		}
	}
	return lines
}
