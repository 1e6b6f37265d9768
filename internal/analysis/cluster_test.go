package analysis

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/pixelflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagged(id string, reason models.FeedbackReason, notes string) models.ImageItem {
	return models.ImageItem{
		ID:       id,
		Status:   models.ItemStatusFlag,
		Feedback: &models.Feedback{Reason: reason, Notes: notes},
	}
}

func job(id string, status models.JobStatus, items ...models.ImageItem) *models.Job {
	return &models.Job{ID: id, CreatedAt: time.Now(), Status: status, Items: items}
}

// --- NormalizeNotes tests ---

func TestNormalizeNotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses whitespace", "too   much    noise", "too much noise"},
		{"lowercases", "Shadow TOO Dark", "shadow too dark"},
		{"replaces numbers", "cropped 12px off the top", "cropped npx off the top"},
		{"replaces file names", "same as shot_12.JPG again", "same as file again"},
		{"strips trailing punctuation", "way too blurry!!", "way too blurry"},
		{"trims", "  halo around edges  ", "halo around edges"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeNotes(tt.input))
		})
	}
}

func TestNormalizeNotes_TruncatesTo500(t *testing.T) {
	long := ""
	for i := 0; i < 600; i++ {
		long += "a"
	}
	assert.Len(t, NormalizeNotes(long), 500)
}

// --- Fingerprint tests ---

func TestFingerprint_EquivalentNotes(t *testing.T) {
	a := Fingerprint(models.ReasonBadCrop, "Cropped 10px off the top.")
	b := Fingerprint(models.ReasonBadCrop, "cropped 25px   off the top")
	assert.Equal(t, a, b)
}

func TestFingerprint_ReasonMatters(t *testing.T) {
	a := Fingerprint(models.ReasonBadCrop, "see notes")
	b := Fingerprint(models.ReasonBlurry, "see notes")
	assert.NotEqual(t, a, b)
}

func TestFingerprint_IsLowercaseHex(t *testing.T) {
	fp := Fingerprint(models.ReasonOther, "x")
	assert.Len(t, fp, 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, fp)
}

// --- Summarize tests ---

func TestSummarize(t *testing.T) {
	jobs := []*models.Job{
		job("job_1", models.JobStatusProcessing,
			models.ImageItem{ID: "a", Status: models.ItemStatusPending},
			models.ImageItem{ID: "b", Status: models.ItemStatusPending},
		),
		job("job_2", models.JobStatusCompleted,
			models.ImageItem{ID: "c", Status: models.ItemStatusAccept},
			models.ImageItem{ID: "d", Status: models.ItemStatusReject},
			models.ImageItem{ID: "e", Status: models.ItemStatusFlag},
			flagged("f", models.ReasonBlurry, ""),
		),
	}

	s := Summarize(jobs)
	assert.Equal(t, Summary{
		TotalJobs:        2,
		ProcessingJobs:   1,
		TotalItems:       6,
		PendingItems:     2,
		AcceptedItems:    1,
		RejectedItems:    1,
		FlaggedItems:     2,
		AwaitingFeedback: 1,
	}, s)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

// --- ReasonBreakdown tests ---

func TestReasonBreakdown_AllReasonsPresent(t *testing.T) {
	out := ReasonBreakdown(nil)
	require.Len(t, out, len(models.FeedbackReasons))
	for i, rc := range out {
		assert.Equal(t, models.FeedbackReasons[i], rc.Reason)
		assert.Zero(t, rc.Count)
	}
}

func TestReasonBreakdown_CountDescThenEnumeration(t *testing.T) {
	jobs := []*models.Job{
		job("job_1", models.JobStatusCompleted,
			flagged("a", models.ReasonBlurry, ""),
			flagged("b", models.ReasonBlurry, ""),
			flagged("c", models.ReasonOther, ""),
			flagged("d", models.ReasonBadCrop, ""),
		),
	}

	out := ReasonBreakdown(jobs)
	assert.Equal(t, ReasonCount{Reason: models.ReasonBlurry, Count: 2}, out[0])
	assert.Equal(t, ReasonCount{Reason: models.ReasonBadCrop, Count: 1}, out[1])
	assert.Equal(t, ReasonCount{Reason: models.ReasonOther, Count: 1}, out[2])
	assert.Equal(t, models.ReasonArtifacts, out[3].Reason)
}

func TestReasonBreakdown_IgnoresRerunItems(t *testing.T) {
	item := flagged("a", models.ReasonBlurry, "")
	item.Status = models.ItemStatusPending

	out := ReasonBreakdown([]*models.Job{job("job_1", models.JobStatusCompleted, item)})
	for _, rc := range out {
		assert.Zero(t, rc.Count)
	}
}

// --- ClusterFeedback tests ---

func TestClusterFeedback_Grouping(t *testing.T) {
	jobs := []*models.Job{
		job("job_1", models.JobStatusCompleted,
			flagged("a", models.ReasonBadCrop, "Cropped 10px off the top"),
			flagged("b", models.ReasonBadCrop, "cropped 30px off the top."),
			flagged("c", models.ReasonBlurry, ""),
		),
		job("job_2", models.JobStatusCompleted,
			flagged("d", models.ReasonBadCrop, "CROPPED 5px off the top"),
		),
	}

	clusters := ClusterFeedback(jobs)
	require.Len(t, clusters, 2)
	assert.Equal(t, models.ReasonBadCrop, clusters[0].Reason)
	assert.Equal(t, 3, clusters[0].Count)
	assert.Equal(t, []string{"job_1", "job_2"}, clusters[0].JobIDs)
	assert.Equal(t, "Cropped 10px off the top", clusters[0].SampleNotes)
	assert.Equal(t, models.ReasonBlurry, clusters[1].Reason)
	assert.Equal(t, 1, clusters[1].Count)
}

func TestClusterFeedback_TieBreaksOnReasonOrder(t *testing.T) {
	jobs := []*models.Job{
		job("job_1", models.JobStatusCompleted,
			flagged("a", models.ReasonOther, "x"),
			flagged("b", models.ReasonArtifacts, "x"),
		),
	}
	clusters := ClusterFeedback(jobs)
	require.Len(t, clusters, 2)
	assert.Equal(t, models.ReasonArtifacts, clusters[0].Reason)
	assert.Equal(t, models.ReasonOther, clusters[1].Reason)
}

func TestClusterFeedback_EmptyInput(t *testing.T) {
	clusters := ClusterFeedback(nil)
	assert.NotNil(t, clusters)
	assert.Empty(t, clusters)
}

func TestClusterFeedback_SkipsUnreviewed(t *testing.T) {
	jobs := []*models.Job{
		job("job_1", models.JobStatusCompleted,
			models.ImageItem{ID: "a", Status: models.ItemStatusFlag},
			models.ImageItem{ID: "b", Status: models.ItemStatusAccept},
		),
	}
	assert.Empty(t, ClusterFeedback(jobs))
}
