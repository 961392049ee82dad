package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostlink/uplink/pkg/logger"
)

var (
	cfgFile      string
	outputFormat string
	debug        bool
	metricsAddr  string
	method       string
	data         string
	headers      stringList
	printVersion bool
)

func init() {
	flag.StringVar(&cfgFile, "C", "", "configuration file")
	flag.StringVar(&outputFormat, "O", "", "output format, one of yaml|json, prints the effective configuration and exits")
	flag.BoolVar(&debug, "D", false, "debug mode")
	flag.StringVar(&metricsAddr, "M", "", "metrics service address")
	flag.StringVar(&method, "X", "", "request method, GET or POST by default")
	flag.StringVar(&data, "d", "", "request body, @file reads it from a file")
	flag.Var(&headers, "H", "request header as key:value, repeatable")
	flag.BoolVar(&printVersion, "V", false, "print version")
}

func main() {
	flag.Parse()

	if printVersion {
		fmt.Fprintf(os.Stdout, "uplink %s\n", version)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := &program{}
	if err := p.Init(); err != nil {
		logger.Default().Fatal(err)
	}
	defer p.Stop()

	if err := p.Run(ctx, flag.Arg(0)); err != nil {
		logger.Default().WithFields(map[string]any{
			"kind": errorKind(err),
		}).Error(err)
		p.Stop()
		os.Exit(1)
	}
}
