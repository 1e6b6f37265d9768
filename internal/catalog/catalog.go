// Package catalog holds the static, read-only data the service starts with:
// the preset catalog, the demo identity and the demo jobs.
package catalog

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

var presets = []models.Preset{
	{ID: "p_1", Name: "White BG v2", Description: "Standard e-commerce white background"},
	{ID: "p_2", Name: "Lifestyle Soft Shadow", Description: "Natural lighting with soft floor shadows"},
	{ID: "p_3", Name: "Transparent PNG", Description: "Remove background completely"},
	{ID: "p_4", Name: "Retouch High-Key", Description: "Brighten and smooth surface imperfections"},
}

// Presets returns a copy of the preset catalog in display order.
func Presets() []models.Preset {
	out := make([]models.Preset, len(presets))
	copy(out, presets)
	return out
}

// Lookup returns the preset with the given id.
func Lookup(id string) (models.Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return models.Preset{}, false
}

// DemoUser is the fixed identity every login resolves to.
func DemoUser() models.User {
	return models.User{
		ID:         "u_123",
		Email:      "demo@pixelflow.com",
		Name:       "Demo User",
		Plan:       models.PlanPro,
		QuotaUsed:  120,
		QuotaTotal: 1000,
	}
}

// SeedJobs builds the demo history: two completed jobs with mixed outcomes and
// one job still processing. Jobs are returned oldest first so that inserting
// them in order leaves the newest at the front of the store.
func SeedJobs(now time.Time, rng *rand.Rand) []*models.Job {
	processing := &models.Job{
		ID:        "job_8819",
		CreatedAt: now.Add(-48 * time.Hour),
		Preset:    "Lifestyle Soft Shadow",
		Status:    models.JobStatusProcessing,
	}
	for i := 0; i < 8; i++ {
		processing.Items = append(processing.Items, models.ImageItem{
			ID:     fmt.Sprintf("img_proc_%d", i),
			URL:    fmt.Sprintf("https://picsum.photos/seed/proc_%d/400/400", i),
			Name:   fmt.Sprintf("raw_import_%d.jpg", i),
			Status: models.ItemStatusPending,
		})
	}

	return []*models.Job{
		processing,
		completedJob("job_8820", now.Add(-24*time.Hour), "Transparent PNG", 45, 200, rng),
		completedJob("job_8821", now.Add(-2*time.Hour), "White BG v2", 12, 100, rng),
	}
}

func completedJob(id string, created time.Time, preset string, count, start int, rng *rand.Rand) *models.Job {
	done := created.Add(5 * time.Second)
	j := &models.Job{
		ID:          id,
		CreatedAt:   created,
		Preset:      preset,
		Status:      models.JobStatusCompleted,
		CompletedAt: &done,
	}
	for i := 0; i < count; i++ {
		n := start + i
		j.Items = append(j.Items, models.ImageItem{
			ID:     fmt.Sprintf("img_%d", n),
			URL:    fmt.Sprintf("https://picsum.photos/seed/%d/400/400", n),
			Name:   fmt.Sprintf("product_shot_%d.jpg", n),
			Status: seedStatus(rng),
		})
	}
	return j
}

// seedStatus gives roughly 20% flag, 8% reject, the rest accept.
func seedStatus(rng *rand.Rand) models.ItemStatus {
	if rng.Float64() > 0.8 {
		return models.ItemStatusFlag
	}
	if rng.Float64() > 0.9 {
		return models.ItemStatusReject
	}
	return models.ItemStatusAccept
}
