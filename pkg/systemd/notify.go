// Package systemd integrates with the service manager when canvassync runs
// as a systemd unit (Type=notify). Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"canvassync/pkg/logx"
)

// NotifyReady signals service readiness.
func NotifyReady(log logx.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warn("sd_notify READY failed", logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify READY sent")
	}
}

// NotifyStopping signals the beginning of shutdown.
func NotifyStopping(log logx.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		log.Warn("sd_notify STOPPING failed", logx.Err(err))
	}
}

// WatchdogLoop feeds the systemd watchdog until ctx is done. It returns
// immediately when no watchdog is configured for the unit.
func WatchdogLoop(ctx context.Context, log logx.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}

	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
