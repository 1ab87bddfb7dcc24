// Package dispatcher runs the detection event loop: it applies pending
// configurations, reads one event at a time and fires the enabled actions.
package dispatcher

import (
	"context"
	"time"

	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"github.com/edirooss/zmux-analytics/internal/domain/detection"
	"github.com/edirooss/zmux-analytics/internal/gateway"
	"github.com/edirooss/zmux-analytics/internal/observability"
	"github.com/edirooss/zmux-analytics/internal/stream"
	"github.com/edirooss/zmux-analytics/pkg/ptzgeom"
	"go.uber.org/zap"
)

const (
	DefaultBlockTimeout = 5 * time.Second
	DefaultErrorBackoff = time.Second
)

// Options tune the loop. Zero values select the defaults.
type Options struct {
	BlockTimeout time.Duration // bounded wait per stream read
	ErrorBackoff time.Duration // pause after a failed stream read

	NewRecorder RecorderFactory
	NewPTZ      PTZFactory

	Now func() time.Time
}

// Handler is the event dispatch loop. Run it from a single goroutine.
//
// Per iteration:
//
//	config apply → bounded stream wait → { timeout: restart check | event: dispatch }
type Handler struct {
	log *zap.Logger
	src stream.Source
	gw  *gateway.Gateway
	reg *Registry

	blockTimeout time.Duration
	errorBackoff time.Duration
	now          func() time.Time
}

// New wires a handler. Both actions start disabled until a configuration is applied.
func New(log *zap.Logger, src stream.Source, gw *gateway.Gateway, opts Options) *Handler {
	log = log.Named("dispatcher")

	if opts.BlockTimeout <= 0 {
		opts.BlockTimeout = DefaultBlockTimeout
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = DefaultErrorBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Handler{
		log:          log,
		src:          src,
		gw:           gw,
		reg:          newRegistry(log, opts.NewRecorder, opts.NewPTZ),
		blockTimeout: opts.BlockTimeout,
		errorBackoff: opts.ErrorBackoff,
		now:          opts.Now,
	}
	h.reg.entry(ActionRecord).fire = h.record
	h.reg.entry(ActionMove).fire = h.move
	return h
}

// Prime applies a boot-time configuration before the loop starts and
// publishes it as the latest configuration.
func (h *Handler) Prime(cfg *analytics.Configuration) {
	h.reg.apply(cfg)
	h.gw.Seed(cfg)
}

// Run loops until ctx is cancelled. Individual event or downstream failures
// never end the loop.
func (h *Handler) Run(ctx context.Context) error {
	h.log.Info("listening for detection events", zap.Duration("block_timeout", h.blockTimeout))
	for {
		if err := h.Step(ctx); err != nil {
			h.log.Info("dispatch loop stopped", zap.Error(err))
			return err
		}
	}
}

// Step runs one loop iteration. It returns an error only when ctx is done.
func (h *Handler) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if cfg, ok := h.gw.TryTake(); ok {
		h.reg.apply(cfg)
	}
	observability.ConfigPending.Set(float64(h.gw.Len()))

	msg, err := h.src.Read(ctx, h.blockTimeout)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.StreamErrors.Inc()
		h.log.Warn("stream read failed", zap.Error(err), zap.Duration("backoff", h.errorBackoff))
		h.restartCheck(ctx)
		return sleep(ctx, h.errorBackoff)

	case msg == nil:
		h.restartCheck(ctx)
		return nil
	}

	h.dispatch(ctx, msg)
	return nil
}

// dispatch parses one record and fires every enabled action in order.
// A malformed record is logged and skipped.
func (h *Handler) dispatch(ctx context.Context, msg *stream.Message) {
	h.log.Debug("new event", zap.String("id", msg.ID))

	ev, err := detection.ParseRecord(msg.Values)
	if err != nil {
		observability.EventsTotal.WithLabelValues(observability.ResultMalformed).Inc()
		h.log.Warn("skipping malformed event", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	observability.EventsTotal.WithLabelValues(observability.ResultProcessed).Inc()

	for _, e := range h.reg.entries {
		if e.enabled {
			e.fire(ctx, ev)
		}
	}
}

// record starts a recording for the event's sensor unless the previous one
// is still inside the debounce window. The timer advances even when the call
// fails so a broken recorder is not hammered.
func (h *Handler) record(ctx context.Context, ev *detection.Event) {
	e := h.reg.entry(ActionRecord)
	now := h.now()

	if elapsed, ok := e.since(now); ok && elapsed < e.threshold {
		observability.ActionSkipped.WithLabelValues(e.kind.String()).Inc()
		h.log.Debug("skipping detection record", zap.Duration("elapsed", elapsed), zap.Duration("threshold", e.threshold))
		return
	}
	e.lastFired = now

	if h.reg.recorder == nil {
		h.log.Warn("record enabled without a recorder client")
		return
	}

	h.log.Debug("starting record", zap.String("sensor_id", ev.SensorID))
	observability.ActionFired.WithLabelValues(e.kind.String()).Inc()
	if err := h.reg.recorder.RecordEvent(ctx, ev.SensorID); err != nil {
		observability.RemoteFailures.WithLabelValues(e.kind.String()).Inc()
		h.log.Warn("failed to start record", zap.String("sensor_id", ev.SensorID), zap.Error(err))
	}
}

// move points the camera at the first detected object. Every event moves
// the camera; only the return to home is debounced.
func (h *Handler) move(ctx context.Context, ev *detection.Event) {
	e := h.reg.entry(ActionMove)

	box, ok := ev.First()
	if !ok {
		observability.ActionSkipped.WithLabelValues(e.kind.String()).Inc()
		h.log.Warn("no objects in event; camera not moved", zap.String("sensor_id", ev.SensorID))
		return
	}

	cmd, err := ptzgeom.Compute(box.Box, ev.FrameWidth, ev.FrameHeight)
	if err != nil {
		observability.ActionSkipped.WithLabelValues(e.kind.String()).Inc()
		h.log.Warn("camera not moved", zap.String("sensor_id", ev.SensorID), zap.Error(err))
		return
	}

	h.log.Debug("bbox",
		zap.Float64("left", box.Left),
		zap.Float64("right", box.Right),
		zap.Float64("top", box.Top),
		zap.Float64("bottom", box.Bottom),
		zap.String("type", box.Class),
	)

	observability.ActionFired.WithLabelValues(e.kind.String()).Inc()
	h.setPTZ(ctx, cmd)
	e.lastFired = h.now()
	h.reg.needsReset = true
}

// restartCheck sends the camera home once the move action has been idle
// for its restart time. It fires at most once per move.
func (h *Handler) restartCheck(ctx context.Context) {
	e := h.reg.entry(ActionMove)
	if !e.enabled || !h.reg.needsReset {
		return
	}
	if elapsed, ok := e.since(h.now()); ok && elapsed < e.threshold {
		return
	}

	h.log.Info("restarting camera position")
	h.setPTZ(ctx, ptzgeom.Home)
	h.reg.needsReset = false
	observability.PTZResets.Inc()
}

// setPTZ issues position then zoom. Failures are logged and swallowed.
func (h *Handler) setPTZ(ctx context.Context, cmd ptzgeom.Command) {
	if h.reg.ptz == nil {
		h.log.Warn("move enabled without a ptz client")
		return
	}

	h.log.Debug("move camera", zap.Float64("pan", cmd.Pan), zap.Float64("tilt", cmd.Tilt), zap.Float64("zoom", cmd.Zoom))

	if err := h.reg.ptz.SetPosition(ctx, cmd.Pan, cmd.Tilt); err != nil {
		observability.RemoteFailures.WithLabelValues(ActionMove.String()).Inc()
		h.log.Warn("failed to move camera to bounding box", zap.Error(err))
	}
	if err := h.reg.ptz.SetZoom(ctx, cmd.Zoom); err != nil {
		observability.RemoteFailures.WithLabelValues(ActionMove.String()).Inc()
		h.log.Warn("failed to zoom camera to bounding box", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
