// Package power keeps the machine awake while the queue is working.
package power

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"

	"mediaq/internal/logging"
)

// Inhibitor blocks system sleep until the returned release func is called.
// Release is idempotent.
type Inhibitor interface {
	Inhibit(reason string) (release func(), err error)
}

// Noop is an Inhibitor that does nothing.
type Noop struct{}

func (Noop) Inhibit(string) (func(), error) { return func() {}, nil }

const (
	logindDest   = "org.freedesktop.login1"
	logindPath   = dbus.ObjectPath("/org/freedesktop/login1")
	logindMethod = "org.freedesktop.login1.Manager.Inhibit"
)

// Logind takes systemd-logind "idle:sleep" block inhibitor locks over the
// system bus.
type Logind struct {
	who    string
	logger *slog.Logger
	conn   func() (*dbus.Conn, error)
}

// NewLogind returns an inhibitor that registers locks under who.
func NewLogind(who string, logger *slog.Logger) *Logind {
	return &Logind{who: who, logger: logging.NewComponentLogger(logger, "power"), conn: dbus.SystemBus}
}

func (l *Logind) Inhibit(reason string) (func(), error) {
	conn, err := l.conn()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	var fd dbus.UnixFD
	call := conn.Object(logindDest, logindPath).Call(logindMethod, 0, "idle:sleep", l.who, reason, "block")
	if err := call.Store(&fd); err != nil {
		return nil, fmt.Errorf("logind inhibit: %w", err)
	}
	l.logger.Debug("sleep inhibited", logging.String("reason", reason))

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unix.Close(int(fd)); err != nil {
				l.logger.Warn("release sleep inhibitor failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "inhibit_release_failed"),
					logging.String(logging.FieldErrorHint, "the lock is dropped when the daemon exits"),
					logging.String(logging.FieldImpact, "system may stay awake until mediaq stops"),
				)
				return
			}
			l.logger.Debug("sleep inhibitor released")
		})
	}, nil
}

// Best returns a logind inhibitor when the system bus is reachable and Noop
// otherwise.
func Best(who string, logger *slog.Logger) Inhibitor {
	if _, err := dbus.SystemBus(); err != nil {
		logging.NewComponentLogger(logger, "power").Info("sleep inhibition unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "system may sleep while the queue runs"),
		)
		return Noop{}
	}
	return NewLogind(who, logger)
}
