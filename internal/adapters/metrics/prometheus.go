package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ufogalaxy/devicelink/internal/link"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicelink_http_requests_total",
		Help: "Total number of HTTP requests to the status server",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devicelink_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	LinkState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devicelink_link_state",
		Help: "1 for the current link state, 0 otherwise",
	}, []string{"state"})

	LinkTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicelink_link_transitions_total",
		Help: "Link state transitions",
	}, []string{"from", "to"})

	FramesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicelink_frames_sent_total",
		Help: "Frames written to the gateway",
	}, []string{"type"})

	FramesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicelink_frames_received_total",
		Help: "Frames read from the gateway, by dispatched event kind",
	}, []string{"kind"})

	DialDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devicelink_dial_duration_seconds",
		Help:    "Time to open the gateway connection",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"status"})

	ReconnectsScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devicelink_reconnects_scheduled_total",
		Help: "Reconnect attempts scheduled after abnormal disconnects",
	})

	ReconnectDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "devicelink_reconnect_delay_seconds",
		Help:    "Delay before each scheduled reconnect",
		Buckets: []float64{1, 3, 6, 9, 12, 15, 30, 60},
	})

	ReconnectsExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devicelink_reconnects_exhausted_total",
		Help: "Times the link gave up reconnecting",
	})
)

var linkStates = []link.State{
	link.Disconnected,
	link.Connecting,
	link.Connected,
	link.Reconnecting,
	link.Closing,
}

// LinkObserver exports link activity to Prometheus.
type LinkObserver struct{}

// NewLinkObserver returns an observer with the state gauge initialised to
// Disconnected.
func NewLinkObserver() *LinkObserver {
	setState(link.Disconnected)
	return &LinkObserver{}
}

func setState(current link.State) {
	for _, s := range linkStates {
		v := 0.0
		if s == current {
			v = 1
		}
		LinkState.WithLabelValues(s.String()).Set(v)
	}
}

func (o *LinkObserver) StateChanged(from, to link.State) {
	setState(to)
	LinkTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
}

func (o *LinkObserver) FrameSent(frameType string) {
	FramesSentTotal.WithLabelValues(frameType).Inc()
}

func (o *LinkObserver) FrameReceived(kind link.EventKind) {
	FramesReceivedTotal.WithLabelValues(kind.String()).Inc()
}

func (o *LinkObserver) DialFinished(elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DialDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (o *LinkObserver) ReconnectScheduled(_ int, delay time.Duration) {
	ReconnectsScheduledTotal.Inc()
	ReconnectDelay.Observe(delay.Seconds())
}

func (o *LinkObserver) ReconnectExhausted() {
	ReconnectsExhaustedTotal.Inc()
}

var _ link.Observer = (*LinkObserver)(nil)
