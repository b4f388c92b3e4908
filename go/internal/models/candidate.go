package models

// DefaultPhotoRef is used when an imported staff row has no photo.
const DefaultPhotoRef = "default.svg"

// Candidate is one staff member eligible to win.
type Candidate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
	PhotoRef   string `json:"photo_ref"`
}

// Prize is a prize label.
type Prize = string
