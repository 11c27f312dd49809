//go:build linux

package power

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
)

const (
	login1Name  = "org.freedesktop.login1"
	login1Path  = "/org/freedesktop/login1"
	inhibitCall = "org.freedesktop.login1.Manager.Inhibit"
)

// Login1 takes systemd-logind inhibitor locks over the system bus.
type Login1 struct {
	conn *dbus.Conn
	who  string
}

// NewLogin1 connects to the system bus and checks that logind is present.
func NewLogin1(who string) (*Login1, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect system bus")
	}
	var has bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, login1Name).Store(&has)
	if err != nil || !has {
		_ = conn.Close()
		if err == nil {
			err = errors.New("logind not running")
		}
		return nil, errors.Wrap(err, "detect logind")
	}
	return &Login1{conn: conn, who: who}, nil
}

func (l *Login1) Acquire(why string) (Lock, error) {
	var fd dbus.UnixFD
	obj := l.conn.Object(login1Name, login1Path)
	if err := obj.Call(inhibitCall, 0, "sleep:idle", l.who, why, "block").Store(&fd); err != nil {
		return nil, errors.Wrap(err, "inhibit")
	}
	return fdLock{f: os.NewFile(uintptr(fd), "inhibit")}, nil
}

func (l *Login1) Close() error {
	return l.conn.Close()
}

// fdLock holds the inhibitor until its descriptor is closed.
type fdLock struct {
	f *os.File
}

func (l fdLock) Release() error {
	return l.f.Close()
}

// Detect returns the logind inhibitor when available and Noop otherwise.
func Detect(who string) (Inhibitor, error) {
	l, err := NewLogin1(who)
	if err != nil {
		return Noop{}, err
	}
	return l, nil
}
