package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kiranshivaraju/pixelflow/internal/store"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(id string, n int) *models.Job {
	j := &models.Job{
		ID:        id,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Preset:    "White BG v2",
		Status:    models.JobStatusProcessing,
	}
	for i := 0; i < n; i++ {
		j.Items = append(j.Items, models.ImageItem{
			ID:     fmt.Sprintf("img_%s_%d", id, i),
			URL:    fmt.Sprintf("https://picsum.photos/seed/%s_%d/400/400", id, i),
			Name:   fmt.Sprintf("file_%d.jpg", i),
			Status: models.ItemStatusPending,
		})
	}
	return j
}

// alternate returns a classifier that yields accept, flag, accept, ...
func alternate() store.ClassifyFunc {
	n := 0
	return func(models.ImageItem) models.ItemStatus {
		n++
		if n%2 == 0 {
			return models.ItemStatusFlag
		}
		return models.ItemStatusAccept
	}
}

// runContract exercises the behaviour every Store implementation must share.
func runContract(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("AddAndGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_a", 3)))

		got, err := s.GetJob(ctx, "job_a")
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusProcessing, got.Status)
		require.Len(t, got.Items, 3)
		for i, it := range got.Items {
			assert.Equal(t, fmt.Sprintf("img_job_a_%d", i), it.ID, "upload order preserved")
			assert.Equal(t, models.ItemStatusPending, it.Status)
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_dup", 1)))
		assert.ErrorIs(t, s.AddJob(ctx, newJob("job_dup", 1)), store.ErrDuplicateKey)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetJob(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ListNewestInsertFirst", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_1", 1)))
		require.NoError(t, s.AddJob(ctx, newJob("job_2", 1)))
		require.NoError(t, s.AddJob(ctx, newJob("job_3", 2)))

		jobs, err := s.ListJobs(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "job_3", jobs[0].ID)
		assert.Equal(t, "job_1", jobs[2].ID)
		assert.Len(t, jobs[0].Items, 2)
	})

	t.Run("UpdateItemMergesOneItem", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_u", 3)))

		item, err := s.UpdateItem(ctx, "job_u", "img_job_u_1", models.StatusUpdate(models.ItemStatusReject))
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusReject, item.Status)
		assert.Equal(t, "file_1.jpg", item.Name)

		got, err := s.GetJob(ctx, "job_u")
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusPending, got.Items[0].Status)
		assert.Equal(t, models.ItemStatusReject, got.Items[1].Status)
		assert.Equal(t, models.ItemStatusPending, got.Items[2].Status)
		assert.Equal(t, models.JobStatusProcessing, got.Status, "item edits never touch job status")
	})

	t.Run("UpdateItemFeedback", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_f", 1)))

		flag := models.ItemStatusFlag
		fb := models.Feedback{Reason: models.ReasonBadCrop, Notes: "cut off the handle"}
		_, err := s.UpdateItem(ctx, "job_f", "img_job_f_0", models.ItemUpdate{Status: &flag, Feedback: &fb})
		require.NoError(t, err)

		got, err := s.GetJob(ctx, "job_f")
		require.NoError(t, err)
		require.NotNil(t, got.Items[0].Feedback)
		assert.Equal(t, fb, *got.Items[0].Feedback)
		assert.Equal(t, models.ItemStatusFlag, got.Items[0].Status)
	})

	t.Run("UpdateItemMissLeavesStoreUnchanged", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_m", 2)))
		before, err := s.ListJobs(ctx)
		require.NoError(t, err)

		_, err = s.UpdateItem(ctx, "missing", "img_job_m_0", models.StatusUpdate(models.ItemStatusAccept))
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.UpdateItem(ctx, "job_m", "missing", models.StatusUpdate(models.ItemStatusAccept))
		assert.ErrorIs(t, err, store.ErrNotFound)

		after, err := s.ListJobs(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("UpdateItemExpectedStatus", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_e", 1)))

		_, err := s.UpdateItem(ctx, "job_e", "img_job_e_0", models.StatusUpdate(models.ItemStatusAccept),
			store.WithExpectedStatus(models.ItemStatusFlag))
		assert.ErrorIs(t, err, store.ErrStatusConflict)

		_, err = s.UpdateItem(ctx, "job_e", "img_job_e_0", models.StatusUpdate(models.ItemStatusAccept),
			store.WithExpectedStatus(models.ItemStatusPending))
		assert.NoError(t, err)
	})

	t.Run("ToggleEndsInLastRequested", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_t", 2)))
		seq := []models.ItemStatus{
			models.ItemStatusAccept, models.ItemStatusReject, models.ItemStatusReject,
			models.ItemStatusAccept, models.ItemStatusReject,
		}
		for _, st := range seq {
			_, err := s.UpdateItem(ctx, "job_t", "img_job_t_0", models.StatusUpdate(st))
			require.NoError(t, err)
		}
		got, err := s.GetJob(ctx, "job_t")
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusReject, got.Items[0].Status)
		assert.Equal(t, models.ItemStatusPending, got.Items[1].Status)
	})

	t.Run("ResolvePending", func(t *testing.T) {
		s := newStore(t)
		job := newJob("job_r", 4)
		job.Items[3].Status = models.ItemStatusReject
		require.NoError(t, s.AddJob(ctx, job))

		got, err := s.ResolvePending(ctx, "job_r", alternate())
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)
		assert.Equal(t, models.ItemStatusAccept, got.Items[0].Status)
		assert.Equal(t, models.ItemStatusFlag, got.Items[1].Status)
		assert.Equal(t, models.ItemStatusAccept, got.Items[2].Status)
		assert.Equal(t, models.ItemStatusReject, got.Items[3].Status, "non-pending items untouched")
		assert.Equal(t, 100, got.Progress())
	})

	t.Run("ResolveMissingJob", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ResolvePending(ctx, "gone", alternate())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("DeleteJob", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_d", 2)))
		require.NoError(t, s.AddJob(ctx, newJob("job_e", 1)))

		require.NoError(t, s.DeleteJob(ctx, "job_d"))
		_, err := s.GetJob(ctx, "job_d")
		assert.ErrorIs(t, err, store.ErrNotFound)

		jobs, err := s.ListJobs(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "job_e", jobs[0].ID)

		assert.ErrorIs(t, s.DeleteJob(ctx, "job_d"), store.ErrNotFound)
		require.NoError(t, s.AddJob(ctx, newJob("job_d", 1)), "id is free again")
	})

	t.Run("ResolvedJobReadsConsistently", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_f", 4)))
		_, err := s.ResolvePending(ctx, "job_f", alternate())
		require.NoError(t, err)

		got, err := s.GetJob(ctx, "job_f")
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, got.Status)
		assert.Zero(t, got.CountStatus(models.ItemStatusPending))

		jobs, err := s.ListJobs(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, got.Items, jobs[0].Items)
	})

	t.Run("ReadsAreCopies", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddJob(ctx, newJob("job_c", 1)))

		got, err := s.GetJob(ctx, "job_c")
		require.NoError(t, err)
		got.Items[0].Status = models.ItemStatusAccept
		got.Status = models.JobStatusCompleted

		again, err := s.GetJob(ctx, "job_c")
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusPending, again.Items[0].Status)
		assert.Equal(t, models.JobStatusProcessing, again.Status)
	})
}
