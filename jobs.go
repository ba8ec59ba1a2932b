package main

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"compareset/compare"
)

var (
	jobCancellersMu sync.Mutex
	jobCancellers   = make(map[string]context.CancelFunc)
)

// Job represents one queued comparison run
type Job struct {
	ID         string              `json:"id"`
	OldPath    string              `json:"old"`
	NewPath    string              `json:"new"`
	Mode       string              `json:"mode"`
	Preset     string              `json:"preset"`
	Status     string              `json:"status"` // "pending", "in_progress", "completed", "failed", "cancelled"
	Error      string              `json:"error,omitempty"`
	Result     *compare.DiffResult `json:"result,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	PagesDone  int                 `json:"pages_done"`
	TotalPages int                 `json:"total_pages"`
	Params     compare.Params      `json:"params"`

	cleanup []string // temp files to remove once the job settles
}

// JobStore manages jobs and their statuses
type JobStore struct {
	sync.RWMutex
	jobs map[string]*Job
}

var (
	logger = logrus.New()

	jobStore = &JobStore{
		jobs: make(map[string]*Job),
	}
	jobQueue = make(chan *Job, 100)
)

func init() {
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)
}

func generateJobID() string {
	return uuid.New().String()
}

func (store *JobStore) addJob(job *Job) {
	store.Lock()
	defer store.Unlock()
	job.PagesDone = 0
	store.jobs[job.ID] = job
	logger.Infof("Job added: %s (%s vs %s)", job.ID, job.OldPath, job.NewPath)
}

func (store *JobStore) getJob(jobID string) (*Job, bool) {
	store.RLock()
	defer store.RUnlock()
	job, exists := store.jobs[jobID]
	return job, exists
}

// snapshot returns a copy of a job's current state. Handlers read from
// copies because workers mutate the shared Job under the store lock.
func (store *JobStore) snapshot(jobID string) (Job, bool) {
	store.RLock()
	defer store.RUnlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

func (store *JobStore) GetAllJobs() []Job {
	store.RLock()
	defer store.RUnlock()

	jobs := make([]Job, 0, len(store.jobs))
	for _, job := range store.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs
}

func (store *JobStore) updateJobStatus(jobID, status, errMsg string) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Status = status
		if errMsg != "" {
			job.Error = errMsg
		}
		job.UpdatedAt = time.Now()
		logger.Infof("Job %s status: %s", jobID, status)
	}
}

func (store *JobStore) setResult(jobID string, result *compare.DiffResult) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Result = result
		job.UpdatedAt = time.Now()
	}
}

func (store *JobStore) updateProgress(jobID string, pagesDone, totalPages int) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.PagesDone = pagesDone
		job.TotalPages = totalPages
		job.UpdatedAt = time.Now()
	}
}

func cancelJob(jobID string) bool {
	jobCancellersMu.Lock()
	defer jobCancellersMu.Unlock()
	if cancel, ok := jobCancellers[jobID]; ok {
		cancel()
		return true
	}
	return false
}

func startWorkerPool(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			logger.Infof("Worker %d started", workerID)
			for job := range jobQueue {
				logger.Infof("Worker %d processing job: %s", workerID, job.ID)
				processJob(job)
			}
		}(i)
	}
}

func processJob(job *Job) {
	jobStore.updateJobStatus(job.ID, "in_progress", "")

	jobCtx, cancel := context.WithCancel(context.Background())
	jobCancellersMu.Lock()
	jobCancellers[job.ID] = cancel
	jobCancellersMu.Unlock()
	defer func() {
		cancel()
		jobCancellersMu.Lock()
		delete(jobCancellers, job.ID)
		jobCancellersMu.Unlock()
		for _, path := range job.cleanup {
			os.Remove(path)
		}
	}()

	opts := compare.Options{
		Progress: func(done, total int) {
			jobStore.updateProgress(job.ID, done, total)
		},
	}

	var result *compare.DiffResult
	var err error
	if job.Mode == "vector" {
		result, err = compare.CompareVector(jobCtx, job.OldPath, job.NewPath, job.Params, opts)
	} else {
		result, err = compare.Compare(jobCtx, job.OldPath, job.NewPath, job.Params, opts)
	}
	if err != nil {
		if errors.Is(err, compare.ErrCancelled) {
			jobStore.updateJobStatus(job.ID, "cancelled", "Job cancelled by user")
			logger.Infof("Job cancelled: %s", job.ID)
		} else {
			logger.Errorf("Error comparing documents for job %s: %v", job.ID, err)
			jobStore.updateJobStatus(job.ID, "failed", err.Error())
		}
		return
	}

	jobStore.setResult(job.ID, result)
	jobStore.updateJobStatus(job.ID, "completed", "")
	logger.Infof("Job completed: %s", job.ID)
}
