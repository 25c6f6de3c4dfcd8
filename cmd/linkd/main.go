package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/linkdrv/pkg/bridge/mqtt"
	"github.com/robotalks/linkdrv/pkg/config"
	"github.com/robotalks/linkdrv/pkg/link"
	"github.com/robotalks/linkdrv/pkg/link/metrics"
	"github.com/robotalks/linkdrv/pkg/runtime"
)

const mqttConnectTimeout = 10 * time.Second

func init() {
	config.SetupFlags()
}

func logBroker(bus link.BusID, data []byte) {
	glog.Infof("bus %s: message %d bytes %q", bus, len(data), data)
}

func metricsServer(addr string) runtime.Runnable {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	return runtime.NamedRun("metrics", runtime.RunFunc(func(ctx context.Context) error {
		err := runtime.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}))
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := config.NewConfig()
	if err := conf.Load(); err != nil {
		glog.Exitf("load config: %v", err)
	}
	if err := conf.Validate(); err != nil {
		glog.Exitf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := runtime.NewRunnerWith(ctx).HandleSignals()

	var broker link.Broker = link.DeliverFunc(logBroker)
	var bridge *mqtt.Bridge
	if conf.MQTTBrokerURL != "" {
		b, err := mqtt.NewFromURL(conf.MQTTBrokerURL)
		if err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		if err = b.Connect(mqttConnectTimeout); err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		defer b.Close()
		b.Next, bridge, broker = broker, b, b
	}

	links := newLinkTable()
	for _, l := range conf.Links {
		drv, err := l.NewDriver(runner.Context, broker)
		if err != nil {
			glog.Exitf("%v", err)
		}
		links.add(l, drv)
		if bridge != nil {
			bridge.Attach(drv)
		}
	}
	defer links.closeAll()

	runner.Go(runtime.NamedRun("links", runtime.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	if conf.MetricsAddr != "" {
		runner.Go(metricsServer(conf.MetricsAddr))
	}
	if conf.DemoBus >= 0 {
		drv, err := links.driver(link.BusID(conf.DemoBus))
		if err != nil {
			glog.Exitf("demo: %v", err)
		}
		runner.Go(demoSender(drv, conf.DemoCount, conf.DemoInterval))
	}
	if conf.Shell {
		runner.Go(shellRunner(newShell(links), cancel))
	}

	if err := runner.Wait(); err != nil {
		glog.Exitf("%v", err)
	}
}
