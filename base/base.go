package base

import (
	"context"

	"go.uber.org/zap"
)

// Listener is a transport that feeds raw inbound buffers to a message processor
// and writes the processor's response back to the peer.
type Listener interface {
	Serve(ctx context.Context) error // blocks until ctx is done or Close is called
	Close() error
	SetLogger(logger *zap.SugaredLogger)
	Addr() string // bound address or device name
	Stats() Stats
}

type Stats struct {
	Received int64 // inbound buffers handed to the processor
	Answered int64 // buffers that produced a response
	Failed   int64 // transport level failures (read/write)
}

// Processor turns one inbound buffer into an optional response, nil means nothing to send.
type Processor interface {
	Process(raw []byte, peer string, localPort int) []byte
}
