package matching

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"wanna/internal/domain/intent"
)

// SchedulerConfig contains configuration for the matching scheduler.
type SchedulerConfig struct {
	// SweepInterval is how often the periodic sweep runs.
	SweepInterval time.Duration

	// RecencyWindow bounds how old an intent may be before the sweep stops
	// considering it.
	RecencyWindow time.Duration

	// BatchLimit caps how many intents one sweep processes.
	BatchLimit int
}

// Scheduler drives pod formation through two independent trigger paths: a
// periodic sweep over unmatched intents and an immediate per-intent trigger
// fired right after intent creation. The paths share the assembler and are
// deliberately not coordinated by a lock; the store's status transition is
// the authoritative happens-after point.
type Scheduler struct {
	intents   intent.Store
	assembler *Assembler
	config    SchedulerConfig

	mu       sync.Mutex
	sweeping bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new matching scheduler.
func NewScheduler(intents intent.Store, assembler *Assembler, config SchedulerConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		intents:   intents,
		assembler: assembler,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the periodic sweep loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.runSweeps()

	return nil
}

// Stop halts the sweep loop. An in-flight sweep keeps its own context and is
// never cancelled; Stop waits for it up to the given context's deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	c := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerImmediateMatch attempts pod formation for a just-created intent. It
// is best-effort: every error is swallowed after logging, and an empty pod id
// means no pod was formed.
func (s *Scheduler) TriggerImmediateMatch(ctx context.Context, intentID string) string {
	podID, err := s.assembler.FormPod(ctx, intentID)
	if err != nil {
		log.Printf("Immediate match for intent %s failed: %v", intentID, err)
		return ""
	}

	return podID
}

func (s *Scheduler) runSweeps() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// The loop context only stops the ticker. A sweep already in
			// flight runs to completion on its own context, so shutdown never
			// interrupts a formation mid-write.
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass over recent unmatched intents, oldest first. If a
// sweep is already running the tick is skipped entirely, not queued.
func (s *Scheduler) Sweep(ctx context.Context) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	intents, err := s.intents.ListActive(ctx, s.config.RecencyWindow, s.config.BatchLimit)
	if err != nil {
		log.Printf("Sweep: error listing active intents: %v", err)
		return
	}

	// Intents consumed by a pod formed earlier in this sweep are skipped; the
	// geo index may not have caught up with their removal yet.
	processed := make(map[string]bool)

	for _, in := range intents {
		if processed[in.ID] {
			continue
		}

		podID, err := s.assembler.FormPod(ctx, in.ID)
		if err != nil {
			if errors.Is(err, intent.ErrNotFound) {
				log.Printf("Sweep: intent %s no longer eligible", in.ID)
			} else {
				log.Printf("Sweep: error forming pod for intent %s: %v", in.ID, err)
			}
			continue
		}
		if podID == "" {
			continue
		}

		p, err := s.assembler.pods.Get(ctx, podID)
		if err != nil {
			log.Printf("Sweep: error loading pod %s: %v", podID, err)
			continue
		}

		for _, id := range p.IntentIDs {
			processed[id] = true
		}

		log.Printf("Sweep: formed pod %s with %d members", podID, len(p.IntentIDs))
	}
}
