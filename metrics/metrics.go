package metrics

import (
	"errors"
	"time"

	"github.com/volcengine/apminsight-profiler-go/logger"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	batchSize        = 256
	asyncChannelSize = 64
	asyncWorkerNum   = 2
	maxPacketSize    = 64 * 1024

	defaultFlushInterval = time.Second
)

var (
	defaultAddress  = "/var/run/apminsight/metrics.sock"
	defaultExporter *Exporter

	ErrExporterClosed = errors.New("metrics exporter is closed")
)

type Config struct {
	prefix        string
	address       string
	flushInterval time.Duration
	logger        logger.Logger
}

type ExporterOption func(config *Config)

// WithPrefix prepends "<prefix>." to every exported item name.
func WithPrefix(prefix string) ExporterOption {
	return func(config *Config) {
		config.prefix = prefix
	}
}

func WithAddress(address string) ExporterOption {
	return func(config *Config) {
		config.address = address
	}
}

func WithFlushInterval(d time.Duration) ExporterOption {
	return func(config *Config) {
		if d > 0 {
			config.flushInterval = d
		}
	}
}

func WithLogger(l logger.Logger) ExporterOption {
	return func(config *Config) {
		if l != nil {
			config.logger = l
		}
	}
}

// Init starts the package level exporter used by Export.
func Init(options ...ExporterOption) {
	defaultExporter = NewExporter(options...)
	defaultExporter.Start()
}

func Close(exporters ...*Exporter) {
	if defaultExporter != nil {
		defaultExporter.Close()
	}
	for _, e := range exporters {
		if e != nil {
			e.Close()
		}
	}
}

// Default returns the exporter started by Init, or nil.
func Default() *Exporter {
	return defaultExporter
}

func Export(records []session.Record) error {
	if defaultExporter == nil {
		return ErrExporterClosed
	}
	return defaultExporter.Export(records)
}
