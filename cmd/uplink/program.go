package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hostlink/uplink/pkg/client"
	"github.com/hostlink/uplink/pkg/config"
	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/metrics"
)

type program struct {
	store   *config.Store
	cfg     *config.Config
	metrics *metrics.Service
	client  *client.Client
}

func (p *program) Init() error {
	store, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg, err := store.Config()
	if err != nil {
		return err
	}

	if v := os.Getenv("UPLINK_LOGGER_LEVEL"); v != "" {
		if cfg.Log == nil {
			cfg.Log = &config.LogConfig{}
		}
		cfg.Log.Level = v
	}
	if v := os.Getenv("UPLINK_METRICS"); v != "" {
		cfg.Metrics = &config.MetricsConfig{
			Addr: v,
		}
	}
	if debug {
		if cfg.Log == nil {
			cfg.Log = &config.LogConfig{}
		}
		cfg.Log.Level = string(logger.DebugLevel)
	}
	if metricsAddr != "" {
		cfg.Metrics = &config.MetricsConfig{
			Addr: metricsAddr,
		}
	}

	logger.SetDefault(config.ParseLogger(cfg.Log))

	if outputFormat != "" {
		if err := store.Write(os.Stdout, outputFormat); err != nil {
			return err
		}
		os.Exit(0)
	}

	p.store = store
	p.cfg = cfg
	return nil
}

func (p *program) Run(ctx context.Context, reqPath string) error {
	log := logger.Default()

	if p.cfg.Metrics != nil && p.cfg.Metrics.Addr != "" {
		metrics.SetGlobal(metrics.NewMetrics(nil))

		s, err := metrics.NewService(p.cfg.Metrics.Addr, metrics.PathOption(p.cfg.Metrics.Path))
		if err != nil {
			return err
		}
		p.metrics = s
		go func() {
			log.Info("metrics service on ", s.Addr())
			if err := s.Serve(); err != nil {
				log.Debug(err)
			}
		}()
	}

	if reqPath == "" {
		return errors.New("missing request path")
	}
	header, err := buildHeader(headers)
	if err != nil {
		return err
	}
	body, err := buildBody(data)
	if err != nil {
		return err
	}

	c, err := client.New(p.store, client.LoggerOption(log))
	if err != nil {
		return err
	}
	p.client = c

	if f := p.store.File(); f != "" {
		log.Debugf("config file %s", f)
	}

	respHeader, text, err := c.Request(ctx, reqPath, header, body, method)
	if err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"path": c.LastGoodPath().String(),
	}).Info("request done")

	return writeResponse(os.Stdout, respHeader, text)
}

func (p *program) Stop() error {
	if p.client != nil {
		p.client.Close()
	}
	if p.metrics != nil {
		p.metrics.Close()
	}
	return nil
}

func writeResponse(w io.Writer, header map[string][]string, body string) error {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range header[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\n", k, v); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", body)
	return err
}
