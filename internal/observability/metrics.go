package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded by the dispatch loop and the link.
const (
	DropTooShort  = "too_short"
	DropDecode    = "decode_error"
	DropUnknown   = "unknown_primitive"
	DropUnmatched = "unmatched"
	DropChecksum  = "checksum"
)

var (
	registerOnce sync.Once

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "frames_received_total",
			Help:      "Mails decoded by the dispatch loop.",
		},
		[]string{"name"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "frames_sent_total",
			Help:      "Mails written to the link, retransmissions included.",
		},
		[]string{"name"},
	)
	retransmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "retransmissions_total",
			Help:      "Requests retransmitted after a confirmation timeout.",
		},
		[]string{"name"},
	)
	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "frames_dropped_total",
			Help:      "Inbound mails dropped without resolving a caller.",
		},
		[]string{"reason"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "commands_total",
			Help:      "Correlated commands by result.",
		},
		[]string{"name", "result"},
	)
	waits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "waits_total",
			Help:      "Indication waits by result.",
		},
		[]string{"result"},
	)
	liveWaiters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dectmail",
			Subsystem: "mailbox",
			Name:      "live_waiters",
			Help:      "Registered indication waiters.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesReceived, framesSent, retransmissions, framesDropped, commands, waits, liveWaiters)
	})
}

func RecordFrameReceived(name string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(name).Inc()
}

func RecordFrameSent(name string, retransmit bool) {
	RegisterMetrics()
	framesSent.WithLabelValues(name).Inc()
	if retransmit {
		retransmissions.WithLabelValues(name).Inc()
	}
}

func RecordDrop(reason string) {
	RegisterMetrics()
	framesDropped.WithLabelValues(reason).Inc()
}

func RecordCommand(name, result string) {
	RegisterMetrics()
	commands.WithLabelValues(name, result).Inc()
}

func RecordWait(result string) {
	RegisterMetrics()
	waits.WithLabelValues(result).Inc()
}

func SetLiveWaiters(n int) {
	RegisterMetrics()
	liveWaiters.Set(float64(n))
}
