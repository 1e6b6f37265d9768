package models

// Preset is an immutable catalog entry describing a processing configuration.
type Preset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
