package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volcengine/apminsight-profiler-go/logger"
)

const logType = "metrics"

type monitor struct {
	bufferFull       int64
	senderDialError  int64
	senderWriteError int64
	formatError      int64

	logger   logger.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func newMonitor(l logger.Logger) *monitor {
	return &monitor{
		logger:   l,
		stopChan: make(chan struct{}),
	}
}

func (m *monitor) start() {
	m.wg.Add(1)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer func() {
			ticker.Stop()
			m.wg.Done()
		}()
		for {
			select {
			case <-ticker.C:
				m.showAndReset()
			case <-m.stopChan:
				m.showAndReset()
				return
			}
		}
	}()
}

func (m *monitor) stop() {
	close(m.stopChan)
	m.wg.Wait()
}

func (m *monitor) showAndReset() {
	type item struct {
		v   *int64
		log string
	}
	for _, i := range []item{
		{v: &m.bufferFull, log: "export buffer full"},
		{v: &m.senderWriteError, log: "sender write error"},
		{v: &m.senderDialError, log: "sender dial error"},
		{v: &m.formatError, log: "format error"},
	} {
		cv := atomic.SwapInt64(i.v, 0)
		if cv != 0 {
			m.logger.Error(logger.Record{
				Type:   logType,
				Msg:    fmt.Sprintf("%s trigger %d times", i.log, cv),
				Detail: map[string]interface{}{"count": cv},
			})
		}
	}
}
