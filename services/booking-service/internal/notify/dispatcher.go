package notify

import (
	"context"
	"errors"
	"fmt"
)

// Message asks for one template to be delivered on every channel that has an address.
type Message struct {
	Template Template
	Email    string
	Phone    string
	Data     map[string]string
}

type Dispatcher struct {
	email EmailSender
	sms   SMSSender
}

// NewDispatcher accepts nil senders; the matching channel is skipped.
func NewDispatcher(email EmailSender, sms SMSSender) *Dispatcher {
	return &Dispatcher{email: email, sms: sms}
}

// Notify attempts every channel and joins their errors.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) error {
	r, err := Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	var errs []error
	if d.email != nil && msg.Email != "" {
		if err := d.email.SendEmail(ctx, msg.Email, r.Subject, r.Email); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if d.sms != nil && msg.Phone != "" {
		if err := d.sms.SendSMS(ctx, msg.Phone, r.SMS); err != nil {
			errs = append(errs, fmt.Errorf("sms via %s: %w", d.sms.ProviderID(), err))
		}
	}
	return errors.Join(errs...)
}
