package notify

import (
	"fmt"
	"strings"
)

type Template string

const (
	TemplateBookingConfirmation Template = "booking_confirmation"
	TemplateBookingCancellation Template = "booking_cancellation"
)

type content struct {
	subject string
	email   string
	sms     string
}

var templates = map[Template]content{
	TemplateBookingConfirmation: {
		subject: "Appointment confirmed: {{date}} at {{startTime}}",
		email: `Hello {{patientName}},

your appointment at {{customerName}} is confirmed.

Date: {{date}}
Time: {{startTime}} - {{endTime}}
Address: {{customerAddress}}

If you cannot make it, cancel here:
{{cancellationLink}}

{{customerName}}
{{customerPhone}}`,
		sms: "{{customerName}}: appointment confirmed for {{date}} {{startTime}}. Cancel: {{cancellationLink}}",
	},
	TemplateBookingCancellation: {
		subject: "Appointment cancelled: {{date}} at {{startTime}}",
		email: `Hello {{patientName}},

your appointment at {{customerName}} on {{date}} at {{startTime}} has been cancelled.

{{customerName}}
{{customerPhone}}`,
		sms: "{{customerName}}: your appointment on {{date}} {{startTime}} was cancelled.",
	},
}

// Rendered is a template with every known placeholder substituted.
type Rendered struct {
	Subject string
	Email   string
	SMS     string
}

// Render replaces {{key}} with data[key]. Placeholders without data render empty.
func Render(t Template, data map[string]string) (Rendered, error) {
	c, ok := templates[t]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown template %q", t)
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return Rendered{
		Subject: stripPlaceholders(r.Replace(c.subject)),
		Email:   stripPlaceholders(r.Replace(c.email)),
		SMS:     stripPlaceholders(r.Replace(c.sms)),
	}, nil
}

func stripPlaceholders(s string) string {
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			return s
		}
		s = s[:start] + s[start+end+2:]
	}
}
