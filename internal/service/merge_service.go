package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"etlkit/internal/etl"
	_ "etlkit/internal/etl/sources" // register file sources
	"etlkit/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// MergeService — runs merge jobs and manages their triggers
// ─────────────────────────────────────────────────────────────

// MergeService executes merge jobs manually, on a cron schedule, or when
// the watched input directory changes, and persists run history.
type MergeService struct {
	engine      *etl.Engine
	runs        *storage.RunStore
	runningJobs runningJobsGuard

	mu   sync.Mutex
	jobs map[string]*etl.MergeJob

	// watcher / cron lifecycle
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewMergeService creates a MergeService ready for use. The run store may
// be nil when history persistence is not wanted.
func NewMergeService(engine *etl.Engine, runs *storage.RunStore) *MergeService {
	return &MergeService{
		engine: engine,
		runs:   runs,
		jobs:   make(map[string]*etl.MergeJob),
	}
}

// AddJob registers a job with the service.
func (s *MergeService) AddJob(job *etl.MergeJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// GetJob returns a registered job.
func (s *MergeService) GetJob(id string) (*etl.MergeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("merge job not found: %s", id)
	}
	return job, nil
}

// RunJob executes a job once and records the run. A job already running
// is not started a second time.
func (s *MergeService) RunJob(ctx context.Context, jobID string) (*etl.MergeResult, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return nil, err
	}

	if !s.runningJobs.TryLock(jobID) {
		return nil, fmt.Errorf("merge job already running: %s", jobID)
	}
	defer s.runningJobs.Unlock(jobID)

	started := time.Now()
	result, runErr := s.engine.RunMerge(ctx, job)
	s.recordRun(job, started, result)
	return result, runErr
}

func (s *MergeService) recordRun(job *etl.MergeJob, started time.Time, result *etl.MergeResult) {
	if s.runs == nil || result == nil {
		return
	}
	run := &storage.MergeRun{
		JobID:       job.ID,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Status:      result.Status,
		RowsRead:    result.RowsRead,
		RowsWritten: result.RowsWritten,
		Warnings:    result.Warnings,
		Error:       result.Error,
	}
	if err := s.runs.CreateRun(run); err != nil {
		log.Printf("merge service: failed to record run for job %s: %v", job.ID, err)
	}
}

// ── Triggers (cron + file_watch) ──────────────────────────

// StartTriggers tears down the current watcher/cron and rebuilds them from
// the registered jobs.
func (s *MergeService) StartTriggers(ctx context.Context) {
	s.stopTriggers()

	s.mu.Lock()
	var scheduled, watched []*etl.MergeJob
	for _, j := range s.jobs {
		switch j.TriggerType {
		case "schedule":
			if j.TriggerConfig != "" {
				scheduled = append(scheduled, j)
			}
		case "file_watch":
			watched = append(watched, j)
		}
	}
	s.mu.Unlock()

	// ── Cron jobs ──
	if len(scheduled) > 0 {
		c := cron.New()
		for _, j := range scheduled {
			jid := j.ID
			_, err := c.AddFunc(j.TriggerConfig, func() {
				log.Printf("merge cron: running job %s", jid)
				if _, err := s.RunJob(ctx, jid); err != nil {
					log.Printf("merge cron: job %s failed: %v", jid, err)
				}
			})
			if err != nil {
				log.Printf("merge cron: invalid expression %q for job %s: %v", j.TriggerConfig, jid, err)
			}
		}
		c.Start()
		s.cronSched = c
		log.Printf("merge cron: scheduled %d job(s)", len(scheduled))
	}

	// ── File watchers ──
	if len(watched) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("merge watcher: failed to create watcher: %v", err)
		return
	}
	s.watcher = watcher

	dirToJobs := make(map[string][]string)
	for _, j := range watched {
		dir := j.TriggerConfig
		if dir == "" {
			// Fall back to the static part of the glob pattern.
			dir = filepath.Dir(j.Pattern)
		}
		absDir, err := filepath.Abs(dir)
		if err != nil {
			log.Printf("merge watcher: bad path %q: %v", dir, err)
			continue
		}
		if _, ok := dirToJobs[absDir]; !ok {
			if err := watcher.Add(absDir); err != nil {
				log.Printf("merge watcher: failed to watch dir %q: %v", absDir, err)
				continue
			}
		}
		dirToJobs[absDir] = append(dirToJobs[absDir], j.ID)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		timers := make(map[string]*time.Timer)
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				dir, _ := filepath.Abs(filepath.Dir(event.Name))
				for _, jobID := range dirToJobs[dir] {
					// Debounce: editors and copies fire bursts of events.
					if t, exists := timers[jobID]; exists {
						t.Stop()
					}
					jid := jobID
					timers[jobID] = time.AfterFunc(500*time.Millisecond, func() {
						log.Printf("merge watcher: input changed %q, running job %s", event.Name, jid)
						if _, err := s.RunJob(ctx, jid); err != nil {
							log.Printf("merge watcher: run failed for job %s: %v", jid, err)
						}
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("merge watcher: error: %v", err)
			}
		}
	}()

	log.Printf("merge watcher: watching %d dir(s)", len(dirToJobs))
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *MergeService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *MergeService) Stop() {
	s.stopTriggers()
}

func (s *MergeService) stopTriggers() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
