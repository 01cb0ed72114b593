package message

import (
	"time"

	"github.com/cybroslabs/dlms-push-listener/enrich"
)

// FrameEvent is a successfully decoded frame, delivered before the acknowledgment is built.
type FrameEvent struct {
	Tree       *enrich.Tree
	Raw        []byte
	Peer       string
	LocalPort  int
	ReceivedAt time.Time
}

// Autoconnect is the plain text announcement <sn=.. ip=.. pt=..> of a meter.
type Autoconnect struct {
	SerialNumber string
	IP           string
	Port         uint16
	Peer         string
	LocalPort    int
	ReceivedAt   time.Time
}

// Events receives what the processor recognized. Calls come from listener
// goroutines concurrently.
type Events interface {
	OnFrame(FrameEvent)
	OnAutoconnect(Autoconnect)
}

// EventsFunc adapts plain functions, nil fields are skipped.
type EventsFunc struct {
	Frame       func(FrameEvent)
	Autoconnect func(Autoconnect)
}

func (e EventsFunc) OnFrame(ev FrameEvent) {
	if e.Frame != nil {
		e.Frame(ev)
	}
}

func (e EventsFunc) OnAutoconnect(a Autoconnect) {
	if e.Autoconnect != nil {
		e.Autoconnect(a)
	}
}

// Event carries exactly one of Frame or Autoconnect.
type Event struct {
	Frame       *FrameEvent
	Autoconnect *Autoconnect
}

// ChanEvents forwards events into a channel. Sends block, so the consumer has
// to keep up or the listeners stall.
type ChanEvents chan<- Event

func (c ChanEvents) OnFrame(ev FrameEvent) {
	c <- Event{Frame: &ev}
}

func (c ChanEvents) OnAutoconnect(a Autoconnect) {
	c <- Event{Autoconnect: &a}
}

type multi []Events

// Multi fans events out to all e in order.
func Multi(e ...Events) Events {
	return multi(e)
}

func (m multi) OnFrame(ev FrameEvent) {
	for _, e := range m {
		e.OnFrame(ev)
	}
}

func (m multi) OnAutoconnect(a Autoconnect) {
	for _, e := range m {
		e.OnAutoconnect(a)
	}
}
