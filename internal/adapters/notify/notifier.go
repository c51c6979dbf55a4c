// Package notify shows desktop notifications with an optional beep.
package notify

import (
	"errors"

	"github.com/gen2brain/beeep"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

// AppName is reported to the notification daemon.
const AppName = "basis"

var _ ports.Notifier = (*Notifier)(nil)

// Notifier implements ports.Notifier on beeep.
type Notifier struct {
	notify func(title, message string, icon any) error
	beep   func(freq float64, duration int) error
}

// NewNotifier creates a Notifier using the system notification service.
func NewNotifier() *Notifier {
	beeep.AppName = AppName
	return &Notifier{notify: beeep.Notify, beep: beeep.Beep}
}

// Notify shows n and beeps when n.Sound is set. The beep is attempted even
// when the notification itself fails.
func (n *Notifier) Notify(note ports.Notification) error {
	var errs []error
	if err := n.notify(note.Title, note.Message, ""); err != nil {
		errs = append(errs, err)
	}
	if note.Sound {
		if err := n.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return domain.Caused(domain.ErrNotificationFailed, errors.Join(errs...))
	}
	return nil
}

// Discard is a Notifier that shows nothing, used where no desktop exists.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(ports.Notification) error { return nil }
