// Package analysis aggregates review outcomes across jobs for the dashboard.
package analysis

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// Normalization regexes compiled once at package init.
var (
	reFileName   = regexp.MustCompile(`(?i)\S+\.(png|jpe?g|webp)\b`)
	reNumber     = regexp.MustCompile(`\d+`)
	rePunct      = regexp.MustCompile(`[.!?,;:]+$`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Summary holds workspace-wide counters.
type Summary struct {
	TotalJobs        int `json:"total_jobs"`
	ProcessingJobs   int `json:"processing_jobs"`
	TotalItems       int `json:"total_items"`
	PendingItems     int `json:"pending_items"`
	AcceptedItems    int `json:"accepted_items"`
	RejectedItems    int `json:"rejected_items"`
	FlaggedItems     int `json:"flagged_items"`
	AwaitingFeedback int `json:"awaiting_feedback"`
}

// ReasonCount is the number of flagged items reported with one reason.
type ReasonCount struct {
	Reason models.FeedbackReason `json:"reason"`
	Count  int                   `json:"count"`
}

// FeedbackCluster groups flagged items whose feedback shares a reason and
// equivalent notes.
type FeedbackCluster struct {
	Fingerprint string                `json:"fingerprint"`
	Reason      models.FeedbackReason `json:"reason"`
	Count       int                   `json:"count"`
	JobIDs      []string              `json:"job_ids"`
	SampleNotes string                `json:"sample_notes,omitempty"`
}

// Summarize counts jobs and items by status. Flagged items without feedback
// are also counted as awaiting feedback.
func Summarize(jobs []*models.Job) Summary {
	var s Summary
	for _, j := range jobs {
		s.TotalJobs++
		if j.Status == models.JobStatusProcessing {
			s.ProcessingJobs++
		}
		for _, it := range j.Items {
			s.TotalItems++
			switch it.Status {
			case models.ItemStatusPending:
				s.PendingItems++
			case models.ItemStatusAccept:
				s.AcceptedItems++
			case models.ItemStatusReject:
				s.RejectedItems++
			case models.ItemStatusFlag:
				s.FlaggedItems++
				if it.Feedback == nil {
					s.AwaitingFeedback++
				}
			}
		}
	}
	return s
}

// ReasonBreakdown counts currently flagged items by feedback reason. Every
// known reason is present. Sorted by (Count DESC, enumeration order).
func ReasonBreakdown(jobs []*models.Job) []ReasonCount {
	counts := make(map[models.FeedbackReason]int, len(models.FeedbackReasons))
	for _, j := range jobs {
		for _, it := range j.Items {
			if it.Status == models.ItemStatusFlag && it.Feedback != nil {
				counts[it.Feedback.Reason]++
			}
		}
	}

	out := make([]ReasonCount, 0, len(models.FeedbackReasons))
	for _, r := range models.FeedbackReasons {
		out = append(out, ReasonCount{Reason: r, Count: counts[r]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// ClusterFeedback groups flagged items with feedback by fingerprint.
// Returns clusters sorted by (Count DESC, reason enumeration order).
// Returns empty slice when nothing has feedback (never nil).
func ClusterFeedback(jobs []*models.Job) []FeedbackCluster {
	groups := make(map[string]*FeedbackCluster)

	for _, j := range jobs {
		for _, it := range j.Items {
			if it.Status != models.ItemStatusFlag || it.Feedback == nil {
				continue
			}
			fp := Fingerprint(it.Feedback.Reason, it.Feedback.Notes)
			c, exists := groups[fp]
			if !exists {
				c = &FeedbackCluster{
					Fingerprint: fp,
					Reason:      it.Feedback.Reason,
					SampleNotes: truncateString(strings.TrimSpace(it.Feedback.Notes), 500),
				}
				groups[fp] = c
			}
			c.Count++
			if !slices.Contains(c.JobIDs, j.ID) {
				c.JobIDs = append(c.JobIDs, j.ID)
			}
		}
	}

	clusters := make([]FeedbackCluster, 0, len(groups))
	for _, c := range groups {
		clusters = append(clusters, *c)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		if ri, rj := reasonRank(clusters[i].Reason), reasonRank(clusters[j].Reason); ri != rj {
			return ri < rj
		}
		return clusters[i].Fingerprint < clusters[j].Fingerprint
	})

	return clusters
}

// Fingerprint computes a stable SHA-256 fingerprint for a reason and its notes.
func Fingerprint(reason models.FeedbackReason, notes string) string {
	hash := sha256.Sum256([]byte(string(reason) + "\x00" + NormalizeNotes(notes)))
	return fmt.Sprintf("%x", hash)
}

// NormalizeNotes applies all normalization rules to free-text feedback notes.
func NormalizeNotes(notes string) string {
	notes = reFileName.ReplaceAllString(notes, "FILE")
	notes = reNumber.ReplaceAllString(notes, "N")
	notes = reWhitespace.ReplaceAllString(notes, " ")
	notes = strings.ToLower(notes)
	notes = strings.TrimSpace(notes)
	notes = rePunct.ReplaceAllString(notes, "")
	notes = truncateString(notes, 500)
	return notes
}

// reasonRank orders reasons as they are enumerated; unknown reasons sort last.
func reasonRank(r models.FeedbackReason) int {
	if i := slices.Index(models.FeedbackReasons, r); i >= 0 {
		return i
	}
	return len(models.FeedbackReasons)
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
