package metrics

import (
	"bytes"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volcengine/apminsight-profiler-go/logger"
	"github.com/volcengine/apminsight-profiler-go/session"
)

var _ session.Exporter = &Exporter{}

// Exporter ships finalized session records to the local agent socket.
// Records are batched and flushed every flush interval or as soon as a
// batch is full.
type Exporter struct {
	monitor *monitor

	config  Config
	dataBuf chan *[]point

	// batch to channel
	batches   *batchPool
	batchBuf  *[]point
	batchLock sync.Mutex

	closeLock sync.RWMutex
	closed    bool
	closeOnce sync.Once

	flusherStop chan struct{}
	flusherWg   sync.WaitGroup
	senderWg    sync.WaitGroup
}

func NewExporter(options ...ExporterOption) *Exporter {
	config := Config{
		address:       defaultAddress,
		flushInterval: defaultFlushInterval,
		logger:        &logger.NoopLogger{},
	}
	envAddress := os.Getenv("AI_METRICS_SOCK")
	if len(envAddress) != 0 {
		config.address = envAddress
	}
	for _, opt := range options {
		opt(&config)
	}
	batches := newBatchPool(batchSize)
	return &Exporter{
		monitor:  newMonitor(config.logger),
		config:   config,
		dataBuf:  make(chan *[]point, asyncChannelSize),
		batches:  batches,
		batchBuf: batches.get(),

		flusherStop: make(chan struct{}),
	}
}

func (e *Exporter) Start() {
	e.monitor.start()

	e.flusherWg.Add(1)
	go func() {
		defer e.flusherWg.Done()
		e.batchFlushLoop()
	}()
	for i := 0; i < asyncWorkerNum; i++ {
		e.senderWg.Add(1)
		go func() {
			defer e.senderWg.Done()
			e.sendLoop()
		}()
	}
}

// Close flushes pending records and waits for the senders to finish.
func (e *Exporter) Close() {
	e.closeOnce.Do(func() {
		e.closeLock.Lock()
		e.closed = true
		e.closeLock.Unlock()

		close(e.flusherStop)
		e.flusherWg.Wait()

		close(e.dataBuf)
		e.senderWg.Wait()

		e.monitor.stop()
	})
}

// Export queues records. It never blocks on the socket; when the send queue
// is full the batch is dropped and counted by the monitor.
func (e *Exporter) Export(records []session.Record) error {
	e.closeLock.RLock()
	defer e.closeLock.RUnlock()
	if e.closed {
		return ErrExporterClosed
	}

	var flushBatches []*[]point
	e.batchLock.Lock()
	for _, r := range records {
		*e.batchBuf = append(*e.batchBuf, newPoint(r))
		if len(*e.batchBuf) >= batchSize {
			flushBatches = append(flushBatches, e.batchBuf)
			e.batchBuf = e.batches.get()
		}
	}
	e.batchLock.Unlock()
	for _, batch := range flushBatches {
		select {
		case e.dataBuf <- batch:
		default:
			atomic.AddInt64(&e.monitor.bufferFull, 1)
			e.batches.put(batch)
		}
	}
	return nil
}

func (e *Exporter) batchFlushLoop() {
	ticker := time.NewTicker(e.config.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.batchFlush()
		case <-e.flusherStop:
			e.batchFlush()
			return
		}
	}
}

func (e *Exporter) batchFlush() {
	var flushBatch *[]point
	e.batchLock.Lock()
	if len(*e.batchBuf) != 0 {
		flushBatch = e.batchBuf
		e.batchBuf = e.batches.get()
	}
	e.batchLock.Unlock()
	if flushBatch != nil {
		e.dataBuf <- flushBatch
	}
}

func (e *Exporter) sendLoop() {
	sender := newSender(e.config.address, e.monitor, e.config.logger)
	defer sender.close()
	packetBuf := make([]byte, 0, maxPacketSize)
	frameBuf := bytes.NewBuffer(nil)

	prefix := e.config.prefix
	for points := range e.dataBuf {
		for _, p := range *points {
			frameBuf.Reset()
			if err := formatPoint(frameBuf, prefix, p); err != nil {
				atomic.AddInt64(&e.monitor.formatError, 1)
				continue
			}
			data := frameBuf.Bytes()
			if len(packetBuf)+len(data) > maxPacketSize && len(packetBuf) > 0 {
				sender.sendPacket(packetBuf)
				packetBuf = packetBuf[:0]
			}
			if len(data) > maxPacketSize {
				sender.sendPacket(data)
				continue
			}
			packetBuf = append(packetBuf, data...)
		}
		e.batches.put(points)
		if len(packetBuf) > 0 {
			sender.sendPacket(packetBuf)
			packetBuf = packetBuf[:0]
		}
	}
}
