//go:build linux

package notify

import (
	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
	notifyMethod      = "org.freedesktop.Notifications.Notify"
	closeMethod       = "org.freedesktop.Notifications.CloseNotification"
	defaultAppName    = "wavestream"
)

// caller issues a method call on the notification server object.
type caller func(method string, args ...any) *dbus.Call

// busNotifier talks to the freedesktop notification server on the session
// bus.
type busNotifier struct {
	app  string
	call caller
}

// New connects to the session bus and returns a Notifier posting as app.
// Without a session bus it returns Disabled.
func New(app string) (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Disabled{}, nil //nolint:nilerr // no session bus, notifications stay off
	}
	obj := conn.Object(notificationsDest, notificationsPath)
	return newBusNotifier(app, func(method string, args ...any) *dbus.Call {
		return obj.Call(method, 0, args...)
	}), nil
}

func newBusNotifier(app string, call caller) *busNotifier {
	if app == "" {
		app = defaultAppName
	}
	return &busNotifier{app: app, call: call}
}

// Notify posts n and returns the id the server assigned.
func (b *busNotifier) Notify(n Notification) (uint32, error) {
	var id uint32
	if err := b.call(notifyMethod, b.args(n)...).Store(&id); err != nil {
		return 0, errors.Wrap(err, "notify")
	}
	return id, nil
}

// Close withdraws notification id.
func (b *busNotifier) Close(id uint32) error {
	if err := b.call(closeMethod, id).Err; err != nil {
		return errors.Wrapf(err, "close notification %d", id)
	}
	return nil
}

// args lays out the Notify call: app_name, replaces_id, app_icon, summary,
// body, actions, hints, expire_timeout.
func (b *busNotifier) args(n Notification) []any {
	return []any{
		b.app,
		n.ReplacesID,
		n.Icon,
		n.Title,
		n.Body,
		[]string{},
		b.hints(n),
		n.Timeout,
	}
}

func (b *busNotifier) hints(n Notification) map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(b.app),
	}
	if n.Image != "" {
		hints["image-path"] = dbus.MakeVariant(n.Image)
	}
	if n.Category != "" {
		hints["category"] = dbus.MakeVariant(n.Category)
	}
	if n.Transient {
		hints["transient"] = dbus.MakeVariant(true)
		hints["suppress-sound"] = dbus.MakeVariant(true)
	}
	return hints
}
