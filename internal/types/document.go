// Package types provides type definitions for structured data used throughout the resume-watermark system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FileNameSuffix is appended to the sanitized contact name to build the download name.
const FileNameSuffix = "_Resume.pdf"

// Document is the structured resume record handed to the renderer.
// Content is expected to be sanitized by the caller; only layout is the renderer's concern.
type Document struct {
	Contact        Contact      `json:"contact"`
	Summary        string       `json:"summary,omitempty" validate:"max=2000"`
	Experience     []Experience `json:"experience,omitempty" validate:"max=20,dive"`
	Education      []Education  `json:"education,omitempty" validate:"max=10,dive"`
	Skills         []string     `json:"skills,omitempty" validate:"max=100,dive,max=80"`
	Certifications []string     `json:"certifications,omitempty" validate:"max=30,dive,max=200"`
}

// Contact holds the header block. Empty fields are omitted from the rendered header.
type Contact struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone,omitempty" validate:"max=40"`
	Location string `json:"location,omitempty" validate:"max=100"`
	LinkedIn string `json:"linkedin,omitempty" validate:"max=2048"`
	Website  string `json:"website,omitempty" validate:"max=2048"`
}

// Experience is a single role with its bullets in display order
type Experience struct {
	Title     string   `json:"title" validate:"required,max=150"`
	Company   string   `json:"company" validate:"required,max=150"`
	Location  string   `json:"location,omitempty" validate:"max=100"`
	StartDate string   `json:"start_date,omitempty" validate:"max=30"`
	EndDate   string   `json:"end_date,omitempty" validate:"max=30"`
	Bullets   []string `json:"bullets,omitempty" validate:"max=20,dive,max=1000"`
}

// Education is a single degree entry
type Education struct {
	Degree         string `json:"degree" validate:"required,max=150"`
	School         string `json:"school" validate:"required,max=150"`
	Location       string `json:"location,omitempty" validate:"max=100"`
	GraduationDate string `json:"graduation_date,omitempty" validate:"max=30"`
	GPA            string `json:"gpa,omitempty" validate:"max=10"`
}

// Validate validates the Document using the validator.
func (d *Document) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}

// DateRange formats the experience dates as "start – end", dropping missing ends.
func (e Experience) DateRange() string {
	start := strings.TrimSpace(e.StartDate)
	end := strings.TrimSpace(e.EndDate)
	switch {
	case start != "" && end != "":
		return start + " – " + end
	case start != "":
		return start + " – Present"
	default:
		return end
	}
}

var fileNameUnsafe = regexp.MustCompile(`[\s"\\/]+`)

// FileName derives the download file name from the contact name,
// e.g. "Jane Doe" -> "Jane_Doe_Resume.pdf".
func (d *Document) FileName() string {
	name := strings.TrimSpace(d.Contact.Name)
	if name == "" {
		return strings.TrimPrefix(FileNameSuffix, "_")
	}
	return fileNameUnsafe.ReplaceAllString(name, "_") + FileNameSuffix
}
