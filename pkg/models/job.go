package models

import (
	"math"
	"time"
)

// JobStatus is the coarse aggregate state of a job. It moves from processing to
// completed exactly once and is never recomputed from item statuses.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
)

// Job is one batch of images processed under a single preset. Preset holds the
// preset's display name, not its id. Items keep upload order.
type Job struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Preset      string      `json:"preset"`
	Status      JobStatus   `json:"status"`
	Items       []ImageItem `json:"items"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Item returns the item with the given id.
func (j *Job) Item(id string) (ImageItem, bool) {
	for _, it := range j.Items {
		if it.ID == id {
			return it, true
		}
	}
	return ImageItem{}, false
}

// Progress is the rounded percentage of items that are no longer pending.
func (j *Job) Progress() int {
	if len(j.Items) == 0 {
		return 0
	}
	done := 0
	for _, it := range j.Items {
		if it.Status != ItemStatusPending {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(j.Items)) * 100))
}

// FlagCount is the number of items currently flagged.
func (j *Job) FlagCount() int {
	return j.CountStatus(ItemStatusFlag)
}

// CountStatus counts items in status s.
func (j *Job) CountStatus(s ItemStatus) int {
	n := 0
	for _, it := range j.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	c.Items = make([]ImageItem, len(j.Items))
	for i, it := range j.Items {
		if it.Feedback != nil {
			fb := *it.Feedback
			it.Feedback = &fb
		}
		c.Items[i] = it
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
