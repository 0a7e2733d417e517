package server

import (
	"sync"

	"frameselect/pkg/api"
)

// jobStore tracks analysis jobs in memory. Jobs are ephemeral per process,
// like the uploads they belong to.
type jobStore struct {
	mu   sync.Mutex
	jobs map[string]api.JobStatus
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]api.JobStatus)}
}

func (s *jobStore) create(jobID, uploadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = api.JobStatus{Status: api.JobQueued, UploadId: uploadID}
}

func (s *jobStore) get(jobID string) (api.JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

func (s *jobStore) setRunning(jobID string) {
	s.update(jobID, func(job *api.JobStatus) {
		job.Status = api.JobRunning
	})
}

func (s *jobStore) setProgress(jobID string, progress float64) {
	s.update(jobID, func(job *api.JobStatus) {
		job.Progress = progress
	})
}

func (s *jobStore) setCompleted(jobID string) {
	s.update(jobID, func(job *api.JobStatus) {
		job.Status = api.JobCompleted
		job.Progress = 1.0
	})
}

func (s *jobStore) setFailed(jobID string, reason string) {
	s.update(jobID, func(job *api.JobStatus) {
		job.Status = api.JobFailed
		job.Error = reason
	})
}

func (s *jobStore) update(jobID string, fn func(*api.JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	fn(&job)
	s.jobs[jobID] = job
}
