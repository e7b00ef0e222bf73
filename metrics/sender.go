package metrics

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/volcengine/apminsight-profiler-go/logger"
)

type sender struct {
	monitor *monitor
	logger  logger.Logger
	address string
	conn    net.Conn
}

func newSender(address string, monitor *monitor, l logger.Logger) *sender {
	return &sender{
		monitor: monitor,
		logger:  l,
		address: address,
	}
}

func (s *sender) sendPacket(packet []byte) {
	if s.conn == nil {
		var err error
		s.conn, err = net.Dial("unixgram", s.address)
		if err != nil {
			s.conn = nil
			atomic.AddInt64(&s.monitor.senderDialError, 1)
			s.logger.Error(logger.Record{
				Type: logType,
				Msg:  fmt.Sprintf("dial address %s", s.address),
				Err:  err,
			})
			return
		}
	}
	if _, err := s.conn.Write(packet); err != nil {
		_ = s.conn.Close()
		s.conn = nil
		atomic.AddInt64(&s.monitor.senderWriteError, 1)
		s.logger.Error(logger.Record{
			Type: logType,
			Msg:  fmt.Sprintf("write conn packet %d bytes", len(packet)),
			Err:  err,
		})
	}
}

func (s *sender) close() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
