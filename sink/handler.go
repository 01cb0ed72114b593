package sink

import (
	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/cybroslabs/dlms-push-listener/push"
	"go.uber.org/zap"
)

// Handler persists processor events. Frames other than data notifications are skipped.
type Handler struct {
	sink   *Sink
	logger *zap.SugaredLogger
}

func NewHandler(s *Sink, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{sink: s, logger: logger}
}

func (h *Handler) OnFrame(ev message.FrameEvent) {
	if ev.Tree == nil || ev.Tree.Root == nil || ev.Tree.Root.Find("DataNotification") == nil {
		h.logger.Debugf("frame from %s is not a data notification, not saved", ev.Peer)
		return
	}
	res, err := push.Extract(ev.Tree)
	if err != nil {
		h.logger.Errorf("unable to extract push from %s: %v", ev.Peer, err)
		return
	}
	fn, err := h.sink.SavePush(res, Meta{ReceivedAt: ev.ReceivedAt, Peer: ev.Peer, LocalPort: ev.LocalPort})
	if err != nil {
		h.logger.Errorf("unable to save %s: %v", res.Kind(), err)
		return
	}
	if id := res.InvokeID(); id != nil {
		h.logger.Infof("%s saved to %s (invoke id %d)", res.Kind(), fn, *id)
	} else {
		h.logger.Infof("%s saved to %s", res.Kind(), fn)
	}
}

func (h *Handler) OnAutoconnect(a message.Autoconnect) {
	fn, err := h.sink.SaveAutoconnect(a)
	if err != nil {
		h.logger.Errorf("unable to save autoconnect of %s: %v", a.SerialNumber, err)
		return
	}
	h.logger.Infof("autoconnect %s (%s:%d) saved to %s", a.SerialNumber, a.IP, a.Port, fn)
}
