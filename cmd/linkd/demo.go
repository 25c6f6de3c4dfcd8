package main

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/linkdrv/pkg/link"
	"github.com/robotalks/linkdrv/pkg/runtime"
)

var demoMessages = [][]byte{[]byte("Hello"), []byte("Goodbye")}

// demoSender alternates the demo messages on drv every interval until
// count messages are sent. Send failures are logged and don't stop it.
func demoSender(drv link.Driver, count int, interval time.Duration) runtime.Runnable {
	return runtime.NamedRun("demo", runtime.RunFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for n := 0; n < count; n++ {
			msg := demoMessages[n%len(demoMessages)]
			if err := drv.Send(msg); err != nil {
				glog.Warningf("demo: send %q on bus %s: %v", msg, drv.Bus(), err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		glog.Infof("demo: %d messages sent on bus %s", count, drv.Bus())
		return nil
	}))
}
