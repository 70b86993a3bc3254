// Package memory provides in-process implementations of the crawler stores
// for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

// JobStore keeps jobs in a mutex-guarded map. Skills go through the same
// comma encoding as the SQL store so both behave identically.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]storedJob
}

type storedJob struct {
	job    crawler.Job
	skills string
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]storedJob)}
}

// Exists reports whether id is stored.
func (s *JobStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[id]
	return ok, nil
}

// DiffNew returns the ids not yet stored, in input order.
func (s *JobStore) DiffNew(_ context.Context, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.jobs[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Insert stores job. Existing ids are rejected.
func (s *JobStore) Insert(_ context.Context, job crawler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("insert %s: %w", job.ID, crawler.ErrDuplicateJob)
	}
	encoded := crawler.JoinSkills(job.Skills)
	job.Skills = crawler.SplitSkills(encoded)
	s.jobs[job.ID] = storedJob{job: job, skills: encoded}
	return nil
}

// PurgeExpired deletes the jobs of field/region whose id is not in currentIDs.
// An empty currentIDs deletes nothing.
func (s *JobStore) PurgeExpired(_ context.Context, currentIDs []string, field, region string) (int, error) {
	if len(currentIDs) == 0 {
		return 0, nil
	}
	current := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		current[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, stored := range s.jobs {
		if stored.job.Field != field || stored.job.Region != region {
			continue
		}
		if _, ok := current[id]; ok {
			continue
		}
		delete(s.jobs, id)
		deleted++
	}
	return deleted, nil
}

// Search applies filter and returns matching jobs ordered by visa tier,
// Swedish tier and id.
func (s *JobStore) Search(_ context.Context, filter crawler.SearchFilter) ([]crawler.Job, error) {
	if filter.Field == "" {
		return []crawler.Job{}, nil
	}
	s.mu.RLock()
	matched := make([]crawler.Job, 0)
	for _, stored := range s.jobs {
		if matches(stored, filter) {
			matched = append(matched, cloneJob(stored.job))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.NeedsVisaSponsor {
			if ta, tb := visaTier(a), visaTier(b); ta != tb {
				return ta < tb
			}
		}
		if !filter.SwedishFluent {
			if ta, tb := swedishTier(a), swedishTier(b); ta != tb {
				return ta < tb
			}
		}
		return a.ID < b.ID
	})
	return matched, nil
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func matches(stored storedJob, filter crawler.SearchFilter) bool {
	job := stored.job
	if job.Field != filter.Field {
		return false
	}
	if filter.Region != "" && job.Region != filter.Region {
		return false
	}
	if filter.MaxExperience != nil && job.Experience != nil && *job.Experience > *filter.MaxExperience {
		return false
	}
	if filter.NeedsVisaSponsor && job.VisaSponsor != nil && !*job.VisaSponsor {
		return false
	}
	if !filter.SwedishFluent && job.Swedish == crawler.SwedishTrue {
		return false
	}
	stack := crawler.SplitSkills(stored.skills)
	for _, excluded := range filter.ExcludeSkills {
		if slices.Contains(stack, excluded) {
			return false
		}
	}
	return true
}

func visaTier(job crawler.Job) int {
	if job.VisaSponsor != nil && *job.VisaSponsor {
		return 0
	}
	return 1
}

func swedishTier(job crawler.Job) int {
	if job.Swedish == crawler.SwedishLikely {
		return 1
	}
	return 0
}

func cloneJob(job crawler.Job) crawler.Job {
	job.Skills = append([]string{}, job.Skills...)
	return job
}
