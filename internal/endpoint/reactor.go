// Package endpoint runs the single UDP socket IIPS speaks over. One
// goroutine owns the socket, the receive buffer, the connection monitor,
// and the mission assembler. Socket reads run one at a time on a
// short-lived helper goroutine that hands each datagram back to that loop;
// decoding and dispatch never leave it, matching the protocol's
// single-threaded reactor requirement. The shape (functional
// ReactorOptions, a readiness channel, sentinel errors wrapped for
// metrics/logging) is adapted from the TCP accept loop this package
// replaces with a single bound UDP socket and a read/decode/dispatch loop.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kstaniek/iips-core/internal/eventbus"
	"github.com/kstaniek/iips-core/internal/iips"
	"github.com/kstaniek/iips-core/internal/logging"
	"github.com/kstaniek/iips-core/internal/metrics"
	"github.com/kstaniek/iips-core/internal/observer"
	"github.com/kstaniek/iips-core/internal/planemit"
)

const readBufSize = 2048

// Reactor owns the UDP socket and drives the protocol state machine off it.
type Reactor struct {
	addr            string
	peer            string
	watchdogTimeout time.Duration

	assembler *iips.Assembler
	monitor   *iips.Monitor
	registry  *observer.Registry
	bus       eventbus.Publisher
	emitter   planemit.Emitter

	logger  *slog.Logger
	readyCh chan struct{}
	errCh   chan error

	conn *net.UDPConn
}

type ReactorOption func(*Reactor)

// NewReactor builds a Reactor with defaults: no peer restriction, the
// default watchdog timeout, a NullPublisher, and a RecordingEmitter.
func NewReactor(opts ...ReactorOption) *Reactor {
	r := &Reactor{
		watchdogTimeout: iips.DefaultWatchdogTimeout,
		assembler:       iips.NewAssembler(),
		registry:        observer.New(),
		bus:             eventbus.NullPublisher{},
		emitter:         &planemit.RecordingEmitter{},
		logger:          logging.L(),
		readyCh:         make(chan struct{}),
		errCh:           make(chan error, 1),
	}
	r.monitor = iips.NewMonitor(r.watchdogTimeout)
	for _, o := range opts {
		o(r)
	}
	r.monitor.OnTransition(func(s iips.ConnectionState) {
		connected := s == iips.Connected
		metrics.IncConnectionTransition(connected)
		r.registry.Notify(observer.ConnectionChanged{Connected: connected})
		if err := r.bus.Publish(context.Background(), observer.ConnectionChanged{Connected: connected}); err != nil {
			r.logger.Warn("eventbus_publish_failed", "error", err)
		}
		r.logger.Info("connection_transition", "state", s.String())
	})
	return r
}

func WithListenAddr(a string) ReactorOption { return func(r *Reactor) { r.addr = a } }
func WithPeerAddr(a string) ReactorOption   { return func(r *Reactor) { r.peer = a } }
func WithWatchdogTimeout(d time.Duration) ReactorOption {
	return func(r *Reactor) {
		if d > 0 {
			r.watchdogTimeout = d
			r.monitor = iips.NewMonitor(d)
		}
	}
}
func WithRegistry(reg *observer.Registry) ReactorOption {
	return func(r *Reactor) {
		if reg != nil {
			r.registry = reg
		}
	}
}
func WithEventBus(p eventbus.Publisher) ReactorOption {
	return func(r *Reactor) {
		if p != nil {
			r.bus = p
		}
	}
}
func WithEmitter(e planemit.Emitter) ReactorOption {
	return func(r *Reactor) {
		if e != nil {
			r.emitter = e
		}
	}
}
func WithLogger(l *slog.Logger) ReactorOption {
	return func(r *Reactor) {
		if l != nil {
			r.logger = l
		}
	}
}

func (r *Reactor) Ready() <-chan struct{} { return r.readyCh }
func (r *Reactor) Errors() <-chan error   { return r.errCh }
func (r *Reactor) Monitor() *iips.Monitor { return r.monitor }
func (r *Reactor) Registry() *observer.Registry { return r.registry }

func (r *Reactor) setError(err error) {
	if err == nil {
		return
	}
	metrics.IncError(mapErrToMetric(err))
	select {
	case r.errCh <- err:
	default:
	}
}

// Serve binds the UDP socket and runs the read/decode/dispatch loop until
// ctx is cancelled.
func (r *Reactor) Serve(ctx context.Context) error {
	laddr, err := net.ResolveUDPAddr("udp", r.addr)
	if err != nil {
		wrap := fmt.Errorf("%w: resolve %s: %v", ErrBind, r.addr, err)
		r.setError(wrap)
		return wrap
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrBind, err)
		r.setError(wrap)
		return wrap
	}
	r.conn = conn
	close(r.readyCh)
	r.logger.Info("udp_listen", "addr", conn.LocalAddr().String())

	buf := iips.NewBuffer(iips.BinaryBufferCap)
	codec := iips.BinaryCodec{}
	pkt := make([]byte, readBufSize)

	watchdog := time.NewTimer(r.watchdogTimeout)
	defer watchdog.Stop()

	type readResult struct {
		n    int
		addr *net.UDPAddr
		err  error
	}
	reads := make(chan readResult, 1)
	readOne := func() {
		n, from, err := conn.ReadFromUDP(pkt)
		reads <- readResult{n: n, addr: from, err: err}
	}
	go readOne()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return nil
		case <-watchdog.C:
			r.monitor.Tick(time.Now())
			watchdog.Reset(r.watchdogTimeout)
		case res := <-reads:
			if res.err != nil {
				select {
				case <-ctx.Done():
					_ = conn.Close()
					return nil
				default:
				}
				wrap := fmt.Errorf("%w: %v", ErrRead, res.err)
				r.setError(wrap)
				go readOne()
				continue
			}
			metrics.DatagramsReceived.Inc()
			if r.peer != "" && res.addr.String() != r.peer {
				go readOne()
				continue
			}
			dropped := buf.Append(pkt[:res.n])
			if dropped < res.n {
				metrics.DatagramsDropped.Inc()
			}
			r.drain(buf, codec, res.addr, watchdog)
			go readOne()
		}
	}
}

// drain runs one Decode step at a time until the buffer stops making
// progress, dispatching each completed frame.
func (r *Reactor) drain(buf *iips.Buffer, codec iips.BinaryCodec, from *net.UDPAddr, watchdog *time.Timer) {
	for {
		frame, outcome := codec.Decode(buf)
		switch outcome {
		case iips.OutcomeNeedMore:
			return
		case iips.OutcomeInvalid:
			metrics.IncFramingError("binary")
			continue
		case iips.OutcomeFrame:
			metrics.IncFramesDecoded("binary")
			r.dispatch(frame, from, watchdog)
		}
	}
}

func (r *Reactor) dispatch(frame iips.Frame, from *net.UDPAddr, watchdog *time.Timer) {
	switch {
	case frame.ID == iips.PacketHeartbeat:
		metrics.IncHeartbeat()
		r.monitor.Heartbeat(time.Now())
		watchdog.Reset(r.watchdogTimeout)

	case frame.ID == iips.PacketStatus:
		if _, ok := iips.UnpackStatusRecord(frame.Payload); !ok {
			metrics.IncError(metrics.ErrReceive)
		}

	case frame.ID == iips.PacketStandby:
		// Notification-only: standby carries no waypoint payload to
		// reassemble, unlike the reference's fallthrough into LINE handling.
		r.registry.Notify(observer.Notice{Text: "standby"})

	case iips.IsMissionPacket(frame.ID):
		list, accepted, err := r.assembler.Feed(frame.ID, frame.Payload)
		if err != nil {
			r.handleMissionError(err)
			return
		}
		if list != nil {
			r.handleCompletedList(*list, from)
			return
		}
		if accepted {
			if frame.Payload[10] == iips.SubPhaseWaypoint {
				metrics.IncWaypointAccepted()
			}
			r.sendAck(iips.MissionSenderID(frame.Payload), from)
		}

	default:
		r.logger.Debug("unknown_packet_id", "id", frame.ID)
	}
}

func (r *Reactor) handleMissionError(err error) {
	reason := "other"
	switch {
	case errors.Is(err, iips.ErrTooFewWaypoints):
		reason = "too_few_waypoints"
	case errors.Is(err, iips.ErrSenderMismatch):
		reason = "sender_mismatch"
	case errors.Is(err, iips.ErrNoUploadInProgress):
		reason = "no_upload_in_progress"
	}
	metrics.IncWaypointDropped(reason)
	r.registry.Notify(observer.Notice{Text: err.Error()})
	r.logger.Warn("mission_upload_rejected", "reason", reason)
}

func (r *Reactor) handleCompletedList(list iips.WaypointList, from *net.UDPAddr) {
	path, err := r.emitter.Emit(list)
	if err != nil {
		metrics.IncError(metrics.ErrPlanFile)
		r.logger.Error("plan_emit_failed", "error", err)
		return
	}
	metrics.IncPlanEmitted(missionKindLabel(list.Kind))
	r.registry.Notify(observer.PlanReady{Path: path})
	if err := r.bus.Publish(context.Background(), observer.PlanReady{Path: path}); err != nil {
		r.logger.Warn("eventbus_publish_failed", "error", err)
	}

	r.sendAck(list.SenderID, from)
}

// sendAck acks one accepted mission frame: every START, every appended
// WAYPOINT, and a completed END each get their own ack (spec.md §4.6 step 4).
func (r *Reactor) sendAck(senderID uint16, from *net.UDPAddr) {
	ack, err := iips.EncodeAck(senderID)
	if err != nil {
		r.logger.Error("ack_encode_failed", "error", err)
		return
	}
	if r.conn == nil || from == nil {
		return
	}
	if _, err := r.conn.WriteToUDP(ack, from); err != nil {
		wrap := fmt.Errorf("%w: %v", ErrWrite, err)
		r.setError(wrap)
		return
	}
	metrics.IncFramesSent("ack")
	metrics.IncAckSent()
}

func missionKindLabel(k iips.UploadKind) string {
	switch k {
	case iips.UploadRegion:
		return "region"
	case iips.UploadSurvey:
		return "survey"
	default:
		return "line"
	}
}

// Shutdown closes the UDP socket if still open.
func (r *Reactor) Shutdown(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	if err := r.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrContext, err)
	}
	return nil
}
