package main

import (
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/toolkits/pkg/logger"
	_ "go.uber.org/automaxprocs"

	"github.com/chenx-dust/sharedptr/app"
	"github.com/chenx-dust/sharedptr/app/client"
	"github.com/chenx-dust/sharedptr/app/server"
	"github.com/chenx-dust/sharedptr/config"
	"github.com/chenx-dust/sharedptr/demo"
	"github.com/chenx-dust/sharedptr/logx"
	"github.com/chenx-dust/sharedptr/metrics"
	"github.com/chenx-dust/sharedptr/packet"
)

func main() {
	cfgFilename := flag.String("c", "config.json", "config file")
	enablePprof := flag.Bool("pprof", false, "enable pprof")
	runDemo := flag.Bool("demo", false, "print the handle lifecycle demo and exit")
	metricsAddr := flag.String("metrics", "", "serve prometheus metrics on this address, overrides the config")
	flag.Parse()

	if *runDemo {
		demo.Run(os.Stdout)
		return
	}

	cfg, err := config.LoadFromFile(*cfgFilename)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	closeLog, err := logx.Init(cfg.Log)
	if err != nil {
		logger.Fatalf("failed to init logger: %v", err)
	}
	defer closeLog()
	logger.Infof("config loaded from %s, mode: %s", *cfgFilename, config.ModeToString(cfg.Mode))

	if *enablePprof {
		go func() {
			logger.Info("starting pprof server on localhost:6060")
			err := http.ListenAndServe("localhost:6060", nil)
			if err != nil {
				logger.Errorf("failed to start pprof: %v", err)
			}
		}()
	}

	var application app.App
	var stats map[string]*packet.PacketStatistic
	switch cfg.Mode {
	case config.ClientMode:
		c, err := client.NewClient(cfg)
		if err != nil {
			logger.Fatalf("failed to create client: %v", err)
		}
		application = c
		stats = map[string]*packet.PacketStatistic{
			"scatter_in":  c.Scatterer().StatisticIn,
			"scatter_out": c.Scatterer().StatisticOut,
			"gather_in":   c.Gatherer().StatisticIn,
			"gather_out":  c.Gatherer().StatisticOut,
		}
	case config.ServerMode:
		s, err := server.NewServer(cfg)
		if err != nil {
			logger.Fatalf("failed to create server: %v", err)
		}
		application = s
		stats = map[string]*packet.PacketStatistic{
			"scatter_in":  s.Scatterer().StatisticIn,
			"scatter_out": s.Scatterer().StatisticOut,
			"gather_in":   s.Gatherer().StatisticIn,
			"gather_out":  s.Gatherer().StatisticOut,
		}
	default:
		logger.Fatalf("invalid mode: %v", cfg.Mode)
	}

	addr := cfg.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		if err := metrics.Register(prometheus.DefaultRegisterer, stats); err != nil {
			logger.Fatalf("failed to register metrics: %v", err)
		}
		go func() {
			logger.Infof("serving metrics on %s", addr)
			if err := metrics.Serve(addr); err != nil {
				logger.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	err = application.Run()
	if err != nil {
		logger.Fatalf("failed to run application: %v", err)
	}
}
