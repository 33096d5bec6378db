// Package metrics exposes the Prometheus counters and gauges the reactor,
// codecs, and mission assembler update as they process traffic. It mirrors
// the teacher's metrics package (promauto registration, a local atomic
// mirror for cheap periodic logging, a readiness hook backing an HTTP
// /ready endpoint) retargeted from CAN-bus counters to IIPS frame/mission
// counters.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/iips-core/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iips_frames_decoded_total",
		Help: "Total frames successfully decoded, by codec.",
	}, []string{"codec"})
	FramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iips_frames_sent_total",
		Help: "Total frames sent to the peer, by kind.",
	}, []string{"kind"})
	FramingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iips_framing_errors_total",
		Help: "Total resynchronizations caused by LRC/CRC/checksum/end-byte mismatches, by codec.",
	}, []string{"codec"})
	DatagramsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iips_datagrams_received_total",
		Help: "Total UDP datagrams received on the local endpoint.",
	})
	DatagramsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iips_datagrams_dropped_total",
		Help: "Total datagrams truncated because the receive buffer was full.",
	})
	HeartbeatsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iips_heartbeats_received_total",
		Help: "Total heartbeat frames received.",
	})
	ConnectionTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iips_connection_transitions_total",
		Help: "Total connected/disconnected transitions observed by the watchdog.",
	})
	ConnectionUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iips_connection_up",
		Help: "1 if the peer is currently considered connected, else 0.",
	})
	MissionWaypointsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iips_mission_waypoints_accepted_total",
		Help: "Total WAYPOINT frames appended to a waypoint list.",
	})
	MissionWaypointsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iips_mission_waypoints_dropped_total",
		Help: "Total mission upload frames (WAYPOINT or END) rejected with an error, by reason; WAYPOINTs dropped for a non-monotonic timestamp are not counted.",
	}, []string{"reason"})
	MissionPlansEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iips_mission_plans_emitted_total",
		Help: "Total mission plans handed to the plan emitter, by type.",
	}, []string{"type"})
	AcksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iips_acks_sent_total",
		Help: "Total ACK frames sent in response to mission upload frames.",
	})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iips_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iips_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrBind     = "bind"
	ErrSend     = "send"
	ErrReceive  = "receive"
	ErrShutdown = "shutdown"
	ErrPlanFile = "plan_file"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap periodic logging without scraping Prometheus in-process.
var (
	localDecoded    uint64
	localSent       uint64
	localFramingErr uint64
	localHeartbeats uint64
	localWaypoints  uint64
	localPlans      uint64
	localAcks       uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Decoded     uint64
	Sent        uint64
	FramingErrs uint64
	Heartbeats  uint64
	Waypoints   uint64
	Plans       uint64
	Acks        uint64
	Errors      uint64
}

func Snap() Snapshot {
	return Snapshot{
		Decoded:     atomic.LoadUint64(&localDecoded),
		Sent:        atomic.LoadUint64(&localSent),
		FramingErrs: atomic.LoadUint64(&localFramingErr),
		Heartbeats:  atomic.LoadUint64(&localHeartbeats),
		Waypoints:   atomic.LoadUint64(&localWaypoints),
		Plans:       atomic.LoadUint64(&localPlans),
		Acks:        atomic.LoadUint64(&localAcks),
		Errors:      atomic.LoadUint64(&localErrors),
	}
}

func IncFramesDecoded(codec string) {
	FramesDecoded.WithLabelValues(codec).Inc()
	atomic.AddUint64(&localDecoded, 1)
}

func IncFramesSent(kind string) {
	FramesSent.WithLabelValues(kind).Inc()
	atomic.AddUint64(&localSent, 1)
}

func IncFramingError(codec string) {
	FramingErrors.WithLabelValues(codec).Inc()
	atomic.AddUint64(&localFramingErr, 1)
}

func IncHeartbeat() {
	HeartbeatsReceived.Inc()
	atomic.AddUint64(&localHeartbeats, 1)
}

func IncConnectionTransition(connected bool) {
	ConnectionTransitions.Inc()
	if connected {
		ConnectionUp.Set(1)
	} else {
		ConnectionUp.Set(0)
	}
}

func IncWaypointAccepted() {
	MissionWaypointsAccepted.Inc()
	atomic.AddUint64(&localWaypoints, 1)
}

func IncWaypointDropped(reason string) {
	MissionWaypointsDropped.WithLabelValues(reason).Inc()
}

func IncPlanEmitted(planType string) {
	MissionPlansEmitted.WithLabelValues(planType).Inc()
	atomic.AddUint64(&localPlans, 1)
}

func IncAckSent() {
	AcksSent.Inc()
	atomic.AddUint64(&localAcks, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup)
// and pre-registers error label series so the first error doesn't pay
// registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrBind, ErrSend, ErrReceive, ErrShutdown, ErrPlanFile} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
