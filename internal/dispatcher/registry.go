package dispatcher

import (
	"context"
	"time"

	"github.com/edirooss/zmux-analytics/internal/client/ptz"
	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"github.com/edirooss/zmux-analytics/internal/domain/detection"
	"github.com/edirooss/zmux-analytics/internal/observability"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ActionKind enumerates the reactions to a detection event.
// Kinds run in declaration order for every event.
type ActionKind int

const (
	ActionRecord ActionKind = iota
	ActionMove

	numActions
)

func (k ActionKind) String() string {
	switch k {
	case ActionRecord:
		return "record"
	case ActionMove:
		return "move"
	default:
		return "unknown"
	}
}

// Defaults used until a configuration is applied.
const (
	DefaultTimeToRecord = 10 * time.Second
	DefaultRestartTime  = 20 * time.Second
)

// Recorder starts event recordings.
type Recorder interface {
	RecordEvent(ctx context.Context, sensorID string) error
}

// RecorderFactory builds a recorder bound to a base URI.
type RecorderFactory func(uri string) (Recorder, error)

// PTZFactory builds a PTZ client bound to host:port.
type PTZFactory func(host string, port int) (ptz.Client, error)

// actionEntry is the per-kind state: enablement, target, timer and threshold.
// For record the threshold is the debounce window; for move it is the idle
// time before the camera returns home.
type actionEntry struct {
	kind      ActionKind
	enabled   bool
	uri       string    // "" until a target is bound
	lastFired time.Time // zero = never
	threshold time.Duration
	fire      func(ctx context.Context, ev *detection.Event)
}

// since reports the time elapsed between the last firing and now, and whether it ever fired.
func (e *actionEntry) since(now time.Time) (time.Duration, bool) {
	if e.lastFired.IsZero() {
		return 0, false
	}
	return now.Sub(e.lastFired), true
}

// Registry is the dispatch loop's mutable state. It is owned by the loop
// goroutine and never shared, so it carries no locks.
type Registry struct {
	log *zap.Logger

	entries [numActions]*actionEntry

	recorder Recorder
	ptz      ptz.Client

	// needsReset is set by every move and cleared once the camera went home.
	needsReset bool

	newRecorder RecorderFactory
	newPTZ      PTZFactory
}

func newRegistry(log *zap.Logger, newRecorder RecorderFactory, newPTZ PTZFactory) *Registry {
	r := &Registry{log: log, newRecorder: newRecorder, newPTZ: newPTZ}
	r.entries[ActionRecord] = &actionEntry{kind: ActionRecord, threshold: DefaultTimeToRecord}
	r.entries[ActionMove] = &actionEntry{kind: ActionMove, threshold: DefaultRestartTime}
	return r
}

func (r *Registry) entry(k ActionKind) *actionEntry { return r.entries[k] }

func (r *Registry) enabledKinds() []string {
	on := lo.Filter(r.entries[:], func(e *actionEntry, _ int) bool { return e.enabled })
	return lo.Map(on, func(e *actionEntry, _ int) string { return e.kind.String() })
}

// apply installs cfg. Clients are rebuilt only when their target URI changes,
// so applying the same configuration twice is a no-op for the clients.
func (r *Registry) apply(cfg *analytics.Configuration) {
	rec, mv := r.entry(ActionRecord), r.entry(ActionMove)

	rec.enabled = cfg.Record.Enable
	mv.enabled = cfg.MoveCamera.Enable
	r.log.Info("update configuration", zap.Strings("enabled", r.enabledKinds()))

	if uri := cfg.Record.URI(); uri != rec.uri {
		c, err := r.newRecorder(uri)
		if err != nil {
			// unbound until a later apply succeeds
			r.log.Error("recorder client creation failed", zap.String("uri", uri), zap.Error(err))
			rec.uri, r.recorder = "", nil
		} else {
			r.log.Info("update record uri", zap.String("uri", uri))
			rec.uri, r.recorder = uri, c
		}
	}
	rec.threshold = cfg.Record.Threshold()

	if uri := cfg.MoveCamera.URI(); uri != mv.uri {
		c, err := r.newPTZ(cfg.MoveCamera.IP, cfg.MoveCamera.Port)
		if err != nil {
			r.log.Error("ptz client creation failed", zap.String("uri", uri), zap.Error(err))
			mv.uri, r.ptz = "", nil
		} else {
			r.log.Info("update move camera uri", zap.String("uri", uri))
			mv.uri, r.ptz = uri, c
		}
	}
	mv.threshold = cfg.MoveCamera.Threshold()

	observability.ConfigApplied.Inc()
}
