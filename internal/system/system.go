// Package system orchestrates one collision cycle: fetch capsules from
// the hub, vectorize them, detect collision pairs, fuse qualifying pairs
// into emerged capsules, and report the results. It keeps running totals
// across cycles and forwards qualifying output to optional sinks.
package system

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/scrypster/collider/internal/collision"
	"github.com/scrypster/collider/internal/fusion"
	"github.com/scrypster/collider/internal/vectorizer"
	"github.com/scrypster/collider/pkg/types"
)

// Phase names reported in Status while a cycle is executing.
const (
	PhaseIdle        = "idle"
	PhaseFetching    = "fetching"
	PhaseVectorizing = "vectorizing"
	PhaseDetecting   = "detecting"
	PhaseFusing      = "fusing"
	PhaseReporting   = "reporting"
)

// Source fetches capsule records from the external store.
type Source interface {
	FetchCapsules(ctx context.Context, limit int) ([]types.CapsuleRecord, error)
}

// ArtifactSink persists emerged capsules. Forwarding is best-effort.
type ArtifactSink interface {
	SaveArtifacts(ctx context.Context, capsules []types.EmergedCapsule) error
}

// PublishSink publishes emerged capsules downstream. Forwarding is
// best-effort.
type PublishSink interface {
	Publish(ctx context.Context, capsules []types.EmergedCapsule) (int, error)
}

// EmergedSaver optionally saves emerged capsules back to the source hub.
type EmergedSaver interface {
	SaveEmerged(ctx context.Context, capsules []types.EmergedCapsule) int
}

// Config holds the orchestrator's tuning knobs.
type Config struct {
	FetchLimit       int           // Capsules fetched per cycle
	HighQualityScore float64       // Score counted as high quality in reports
	ForwardTimeout   time.Duration // Bound on each sink forward (default: 30s)
	SaveToHub        bool          // Save emerged capsules back to the hub
}

// System is the collision orchestrator. One cycle runs to completion
// before the next begins; the running totals and last-cycle snapshot are
// the only state shared across cycles and are mutex-guarded so status
// reads from other goroutines are safe while a cycle runs.
type System struct {
	cfg        Config
	source     Source
	vectorizer vectorizer.TextToVector
	detector   *collision.Detector
	fuser      *fusion.Engine

	store     ArtifactSink // optional
	publisher PublishSink  // optional
	hubSaver  EmergedSaver // optional

	// runMu serializes cycles: the scheduler and the HTTP trigger share
	// one orchestrator, and a cycle must run to completion before the
	// next begins.
	runMu sync.Mutex

	mu          sync.Mutex
	phase       string
	totals      types.Totals
	lastReport  *types.CycleReport
	lastEmerged []types.EmergedCapsule
	onCycle     func(types.CycleReport)
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Phase      string             `json:"phase"`
	Totals     types.Totals       `json:"totals"`
	LastReport *types.CycleReport `json:"last_report,omitempty"`
}

// New creates a collision system. store, publisher and hubSaver may be nil
// to disable the corresponding forward.
func New(cfg Config, source Source, vec vectorizer.TextToVector, detector *collision.Detector, fuser *fusion.Engine, store ArtifactSink, publisher PublishSink, hubSaver EmergedSaver) *System {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 100
	}
	if cfg.HighQualityScore <= 0 {
		cfg.HighQualityScore = 70
	}
	if cfg.ForwardTimeout <= 0 {
		cfg.ForwardTimeout = 30 * time.Second
	}
	return &System{
		cfg:        cfg,
		source:     source,
		vectorizer: vec,
		detector:   detector,
		fuser:      fuser,
		store:      store,
		publisher:  publisher,
		hubSaver:   hubSaver,
		phase:      PhaseIdle,
	}
}

// OnCycle registers a callback invoked with every completed cycle report,
// e.g. for websocket broadcasts. Must be set before the scheduler starts.
func (s *System) OnCycle(fn func(types.CycleReport)) {
	s.mu.Lock()
	s.onCycle = fn
	s.mu.Unlock()
}

// RunOnce executes one full collision cycle and returns its report.
// Cycles are serialized: a RunOnce that arrives while another cycle is
// in flight waits for it to finish. A fetch failure aborts the cycle and
// is returned as the error; sink forward failures are logged and never
// fail the cycle. Zero fetched capsules is a valid empty cycle, not an
// error.
func (s *System) RunOnce(ctx context.Context) (types.CycleReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report := types.CycleReport{
		RunTime: time.Now().UTC(),
		ByType:  make(map[types.CollisionType]int),
	}

	s.setPhase(PhaseFetching)
	defer s.setPhase(PhaseIdle)

	records, err := s.source.FetchCapsules(ctx, s.cfg.FetchLimit)
	if err != nil {
		report.Failure = err.Error()
		s.finishCycle(report, nil, true)
		return report, err
	}
	report.SourceCapsules = len(records)

	if len(records) == 0 {
		s.finishCycle(report, nil, false)
		return report, nil
	}

	s.setPhase(PhaseVectorizing)
	vectors := make([]types.CapsuleVector, 0, len(records))
	for _, rec := range records {
		vectors = append(vectors, s.vectorizer.Vectorize(rec))
	}

	s.setPhase(PhaseDetecting)
	pairs := s.detector.FindPairs(vectors)
	report.CollisionPairs = len(pairs)

	s.setPhase(PhaseFusing)
	var emerged []types.EmergedCapsule
	for _, pair := range pairs {
		capsule, ok := s.fuser.Fuse(pair)
		if !ok {
			continue
		}
		emerged = append(emerged, *capsule)
		report.ByType[capsule.Type]++
		if capsule.EmergenceScore >= s.cfg.HighQualityScore {
			report.HighQuality++
		}
	}
	report.EmergedCapsules = len(emerged)

	s.setPhase(PhaseReporting)
	s.forward(ctx, emerged, &report)
	s.finishCycle(report, emerged, false)

	log.Printf("collision cycle: %d capsules, %d pairs, %d emerged (%d high quality)",
		report.SourceCapsules, report.CollisionPairs, report.EmergedCapsules, report.HighQuality)

	return report, nil
}

// forward hands emerged capsules to the configured sinks. Every forward
// is time-bounded and best-effort: a failure is logged and the cycle's own
// statistics stand.
func (s *System) forward(ctx context.Context, emerged []types.EmergedCapsule, report *types.CycleReport) {
	if len(emerged) == 0 {
		return
	}

	if s.store != nil {
		fctx, cancel := context.WithTimeout(ctx, s.cfg.ForwardTimeout)
		if err := s.store.SaveArtifacts(fctx, emerged); err != nil {
			log.Printf("WARNING: artifact store forward failed: %v", err)
		} else {
			report.Persisted = len(emerged)
		}
		cancel()
	}

	if s.cfg.SaveToHub && s.hubSaver != nil {
		fctx, cancel := context.WithTimeout(ctx, s.cfg.ForwardTimeout)
		s.hubSaver.SaveEmerged(fctx, emerged)
		cancel()
	}

	if s.publisher != nil {
		fctx, cancel := context.WithTimeout(ctx, s.cfg.ForwardTimeout)
		published, err := s.publisher.Publish(fctx, emerged)
		if err != nil {
			log.Printf("WARNING: publish forward failed: %v", err)
		}
		report.Published = published
		cancel()
	}
}

// Cycle adapts RunOnce to the scheduler's cycle function signature.
func (s *System) Cycle(ctx context.Context) error {
	_, err := s.RunOnce(ctx)
	return err
}

// Status returns the current phase, running totals and last cycle report.
// Safe to call from any goroutine, including while a cycle is running.
func (s *System) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Phase: s.phase, Totals: s.totals}
	if s.lastReport != nil {
		reportCopy := *s.lastReport
		st.LastReport = &reportCopy
	}
	return st
}

// LastEmerged returns the capsules emerged by the most recent cycle.
func (s *System) LastEmerged() []types.EmergedCapsule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.EmergedCapsule, len(s.lastEmerged))
	copy(out, s.lastEmerged)
	return out
}

// setPhase records the current cycle phase.
func (s *System) setPhase(phase string) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

// finishCycle folds a completed (or failed) cycle into the running totals
// and snapshots it for status reads, then fires the cycle callback.
func (s *System) finishCycle(report types.CycleReport, emerged []types.EmergedCapsule, failed bool) {
	s.mu.Lock()
	s.totals.Runs++
	s.totals.Collisions += report.CollisionPairs
	s.totals.Emerged += report.EmergedCapsules
	if failed {
		s.totals.Failures++
	}
	s.lastReport = &report
	s.lastEmerged = emerged
	fn := s.onCycle
	s.mu.Unlock()

	if fn != nil {
		fn(report)
	}
}
