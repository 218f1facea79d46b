// Package fonts loads and registers the typefaces used by the PDF renderer.
package fonts

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// ErrNotRegistered is returned when fonts are applied before Register succeeded.
var ErrNotRegistered = errors.New("fonts have not been registered")

// Face names a type family.
type Face string

const (
	// FaceBody is the proportional face for names and body text.
	FaceBody Face = "body"
	// FaceLabel is the monospace face for section labels.
	FaceLabel Face = "label"
)

// Weight is a font weight.
type Weight string

const (
	Regular  Weight = "regular"
	Medium   Weight = "medium"
	Semibold Weight = "semibold"
	Bold     Weight = "bold"
)

// Variant identifies one registered font file.
type Variant struct {
	Face   Face
	Weight Weight
	Italic bool
}

// FileName is the on-disk name looked up in the font directory, e.g. "body-medium-italic.ttf".
func (v Variant) FileName() string {
	name := string(v.Face) + "-" + string(v.Weight)
	if v.Italic {
		name += "-italic"
	}
	return name + ".ttf"
}

// Family returns the stable family/style pair the variant is registered under.
// Bold uses fpdf's "B" style; medium and semibold get their own families.
func (v Variant) Family() (family, style string) {
	family = string(v.Face)
	switch v.Weight {
	case Bold:
		style = "B"
	case Medium, Semibold:
		family += "-" + string(v.Weight)
	}
	if v.Italic {
		style += "I"
	}
	return family, style
}

// FontSet lists every variant the renderer may ask for.
var FontSet = func() []Variant {
	var set []Variant
	for _, face := range []Face{FaceBody, FaceLabel} {
		for _, w := range []Weight{Regular, Medium, Semibold, Bold} {
			set = append(set, Variant{Face: face, Weight: w}, Variant{Face: face, Weight: w, Italic: true})
		}
	}
	return set
}()

// builtin maps variants onto the Go font family. The Go fonts have no semibold
// cut, so semibold uses bold; the mono face has no medium, so it uses regular.
var builtin = map[Variant][]byte{
	{FaceBody, Regular, false}:   goregular.TTF,
	{FaceBody, Regular, true}:    goitalic.TTF,
	{FaceBody, Medium, false}:    gomedium.TTF,
	{FaceBody, Medium, true}:     gomediumitalic.TTF,
	{FaceBody, Semibold, false}:  gobold.TTF,
	{FaceBody, Semibold, true}:   gobolditalic.TTF,
	{FaceBody, Bold, false}:      gobold.TTF,
	{FaceBody, Bold, true}:       gobolditalic.TTF,
	{FaceLabel, Regular, false}:  gomono.TTF,
	{FaceLabel, Regular, true}:   gomonoitalic.TTF,
	{FaceLabel, Medium, false}:   gomono.TTF,
	{FaceLabel, Medium, true}:    gomonoitalic.TTF,
	{FaceLabel, Semibold, false}: gomonobold.TTF,
	{FaceLabel, Semibold, true}:  gomonobolditalic.TTF,
	{FaceLabel, Bold, false}:     gomonobold.TTF,
	{FaceLabel, Bold, true}:      gomonobolditalic.TTF,
}

// Registry holds the loaded font files. Registration happens once per process;
// after that the registry is read-only and safe for concurrent renders.
type Registry struct {
	dir string

	mu    sync.Mutex
	done  bool
	files map[Variant][]byte
}

// NewRegistry creates a registry that loads fonts from dir, or the built-in
// Go fonts when dir is empty.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Register loads and validates every variant. It is idempotent; a failed
// attempt is retried by the next caller.
func (r *Registry) Register() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return nil
	}

	files := make(map[Variant][]byte, len(FontSet))
	for _, v := range FontSet {
		data, err := r.load(v)
		if err != nil {
			return err
		}
		if _, err := sfnt.Parse(data); err != nil {
			return &RegistrationError{Variant: v, Message: "invalid TrueType data", Cause: err}
		}
		files[v] = data
	}

	r.files = files
	r.done = true

	source := "built-in Go fonts"
	if r.dir != "" {
		source = r.dir
	}
	log.Printf("[fonts] registered %d variants from %s", len(files), source)
	return nil
}

// Registered reports whether Register has completed.
func (r *Registry) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *Registry) load(v Variant) ([]byte, error) {
	if r.dir == "" {
		return builtin[v], nil
	}
	path := filepath.Join(r.dir, v.FileName())
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RegistrationError{Variant: v, Message: fmt.Sprintf("failed to read %s", path), Cause: err}
	}
	return data, nil
}

// Apply installs variants into pdf under their stable family names.
// A nil slice installs the whole FontSet.
func (r *Registry) Apply(pdf *fpdf.Fpdf, variants []Variant) error {
	r.mu.Lock()
	files, done := r.files, r.done
	r.mu.Unlock()

	if !done {
		return ErrNotRegistered
	}
	if variants == nil {
		variants = FontSet
	}
	for _, v := range variants {
		data, ok := files[v]
		if !ok {
			return &RegistrationError{Variant: v, Message: "variant is not part of the font set"}
		}
		family, style := v.Family()
		pdf.AddUTF8FontFromBytes(family, style, data)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to install fonts: %w", err)
	}
	return nil
}

// Hyphenate is the hyphenation policy: words are never split.
func (r *Registry) Hyphenate(word string) []string {
	return []string{word}
}
