package models

// ItemStatus is the review state of a single image.
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusAccept  ItemStatus = "accept"
	ItemStatusReject  ItemStatus = "reject"
	ItemStatusFlag    ItemStatus = "flag"
)

// Valid reports whether s is one of the known item statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusAccept, ItemStatusReject, ItemStatusFlag:
		return true
	}
	return false
}

// FeedbackReason is the structured cause attached to a flagged item.
type FeedbackReason string

const (
	ReasonArtifacts    FeedbackReason = "Artifacts / Noise"
	ReasonBadCrop      FeedbackReason = "Bad Crop"
	ReasonChangedColor FeedbackReason = "Changed Product Color"
	ReasonBlurry       FeedbackReason = "Blurry"
	ReasonOther        FeedbackReason = "Other"
)

// FeedbackReasons lists the accepted reasons in display order.
var FeedbackReasons = []FeedbackReason{
	ReasonArtifacts,
	ReasonBadCrop,
	ReasonChangedColor,
	ReasonBlurry,
	ReasonOther,
}

// Valid reports whether r is one of FeedbackReasons.
func (r FeedbackReason) Valid() bool {
	for _, known := range FeedbackReasons {
		if r == known {
			return true
		}
	}
	return false
}

// Feedback is the report a reviewer attaches to a flagged item.
type Feedback struct {
	Reason FeedbackReason `json:"reason"`
	Notes  string         `json:"notes,omitempty"`
}

// ImageItem is one image within a job. ID is unique within its job.
type ImageItem struct {
	ID       string     `json:"id"`
	URL      string     `json:"url"`
	Name     string     `json:"name"`
	Status   ItemStatus `json:"status"`
	Feedback *Feedback  `json:"feedback,omitempty"`
}

// ItemUpdate is a partial update merged onto an ImageItem. Nil fields are left untouched.
type ItemUpdate struct {
	Status   *ItemStatus
	Feedback *Feedback
}

// Apply merges u onto item and returns the result.
func (u ItemUpdate) Apply(item ImageItem) ImageItem {
	if u.Status != nil {
		item.Status = *u.Status
	}
	if u.Feedback != nil {
		fb := *u.Feedback
		item.Feedback = &fb
	}
	return item
}

// StatusUpdate is shorthand for an ItemUpdate that only sets the status.
func StatusUpdate(s ItemStatus) ItemUpdate {
	return ItemUpdate{Status: &s}
}
