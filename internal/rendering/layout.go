// Package rendering lays out resume documents and paints them to PDF.
package rendering

import (
	"strings"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/types"
)

// Separator joins contact fields, skills and sub-lines.
const Separator = " · "

// Kind tags a layout node.
type Kind int

const (
	// KindBlock groups children painted top to bottom.
	KindBlock Kind = iota
	// KindText is a flowing paragraph.
	KindText
	// KindInline is a single line of segments joined by Separator.
	KindInline
	// KindRow puts Text flush-left and Right flush-right on the same line.
	KindRow
	// KindBulletList paints one hanging-indented line per item.
	KindBulletList
	// KindRule is a full-width divider.
	KindRule
	// KindAbsoluteImage is painted once per page beneath the flow.
	KindAbsoluteImage
)

// Style names a text style from the theme.
type Style int

const (
	StyleBody Style = iota
	StyleName
	StyleContact
	StyleLabel
	StyleEntryTitle
	StyleEntrySub
	StyleDate
)

// Align is an fpdf alignment string.
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Segment is one piece of an inline line, optionally hyperlinked.
type Segment struct {
	Text string
	Link string
}

// Node is one element of the layout tree.
type Node struct {
	Kind       Kind
	Style      Style
	Align      Align
	Text       string
	Right      string
	RightStyle Style
	Segments   []Segment
	Items      []string
	Children   []*Node
	Image      *dither.Image
	SpaceAfter float64
}

// Section labels, as painted.
const (
	LabelSummary        = "SUMMARY"
	LabelExperience     = "EXPERIENCE"
	LabelEducation      = "EDUCATION"
	LabelSkills         = "SKILLS"
	LabelCertifications = "CERTIFICATIONS"
)

// Build turns a document into a layout tree. Empty sections are left out
// entirely; watermark may be nil.
func Build(doc *types.Document, watermark *dither.Image) *Node {
	root := &Node{Kind: KindBlock}
	if watermark != nil {
		root.Children = append(root.Children, &Node{Kind: KindAbsoluteImage, Image: watermark})
	}

	root.Children = append(root.Children, buildHeader(doc.Contact), &Node{Kind: KindRule, SpaceAfter: 6})

	if summary := NormalizeText(doc.Summary); summary != "" {
		root.Children = append(root.Children, section(LabelSummary,
			&Node{Kind: KindText, Style: StyleBody, Align: AlignLeft, Text: summary},
		))
	}

	if len(doc.Experience) > 0 {
		entries := make([]*Node, 0, len(doc.Experience))
		for _, exp := range doc.Experience {
			entries = append(entries, buildExperience(exp))
		}
		root.Children = append(root.Children, section(LabelExperience, entries...))
	}

	if len(doc.Education) > 0 {
		entries := make([]*Node, 0, len(doc.Education))
		for _, edu := range doc.Education {
			entries = append(entries, buildEducation(edu))
		}
		root.Children = append(root.Children, section(LabelEducation, entries...))
	}

	if skills := compact(doc.Skills); len(skills) > 0 {
		root.Children = append(root.Children, section(LabelSkills,
			&Node{Kind: KindText, Style: StyleBody, Align: AlignLeft, Text: strings.Join(skills, Separator)},
		))
	}

	if certs := compact(doc.Certifications); len(certs) > 0 {
		root.Children = append(root.Children, section(LabelCertifications,
			&Node{Kind: KindBulletList, Style: StyleBody, Items: certs},
		))
	}

	return root
}

func buildHeader(c types.Contact) *Node {
	header := &Node{Kind: KindBlock, SpaceAfter: 4}
	header.Children = append(header.Children, &Node{
		Kind: KindText, Style: StyleName, Align: AlignCenter, Text: NormalizeText(c.Name), SpaceAfter: 2,
	})

	var segs []Segment
	add := func(text, link string) {
		if text = NormalizeText(text); text != "" {
			segs = append(segs, Segment{Text: text, Link: link})
		}
	}
	add(c.Email, mailto(c.Email))
	add(c.Phone, "")
	add(c.Location, "")
	add(c.LinkedIn, webLink(c.LinkedIn))
	add(c.Website, webLink(c.Website))

	if len(segs) > 0 {
		header.Children = append(header.Children, &Node{
			Kind: KindInline, Style: StyleContact, Align: AlignCenter, Segments: segs,
		})
	}
	return header
}

func buildExperience(exp types.Experience) *Node {
	entry := &Node{Kind: KindBlock, SpaceAfter: 5}
	entry.Children = append(entry.Children, &Node{
		Kind:       KindRow,
		Style:      StyleEntryTitle,
		Text:       NormalizeText(exp.Title),
		Right:      NormalizeText(exp.DateRange()),
		RightStyle: StyleDate,
	})
	if sub := joinPresent(exp.Company, exp.Location); sub != "" {
		entry.Children = append(entry.Children, &Node{Kind: KindText, Style: StyleEntrySub, Align: AlignLeft, Text: sub, SpaceAfter: 1})
	}
	if bullets := compact(exp.Bullets); len(bullets) > 0 {
		entry.Children = append(entry.Children, &Node{Kind: KindBulletList, Style: StyleBody, Items: bullets})
	}
	return entry
}

func buildEducation(edu types.Education) *Node {
	entry := &Node{Kind: KindBlock, SpaceAfter: 4}
	entry.Children = append(entry.Children, &Node{
		Kind:       KindRow,
		Style:      StyleEntryTitle,
		Text:       NormalizeText(edu.Degree),
		Right:      NormalizeText(edu.GraduationDate),
		RightStyle: StyleDate,
	})
	gpa := ""
	if g := NormalizeText(edu.GPA); g != "" {
		gpa = "GPA " + g
	}
	if sub := joinPresent(edu.School, edu.Location, gpa); sub != "" {
		entry.Children = append(entry.Children, &Node{Kind: KindText, Style: StyleEntrySub, Align: AlignLeft, Text: sub})
	}
	return entry
}

// section wraps content under a label and a thin divider.
func section(label string, content ...*Node) *Node {
	children := []*Node{
		{Kind: KindText, Style: StyleLabel, Align: AlignLeft, Text: label, SpaceAfter: 1},
		{Kind: KindRule, SpaceAfter: 3},
	}
	return &Node{Kind: KindBlock, Children: append(children, content...), SpaceAfter: 6}
}

func joinPresent(parts ...string) string {
	present := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = NormalizeText(p); p != "" {
			present = append(present, p)
		}
	}
	return strings.Join(present, Separator)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = NormalizeText(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func mailto(email string) string {
	if email = strings.TrimSpace(email); email == "" {
		return ""
	}
	return "mailto:" + escapeURI(email)
}

func webLink(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return escapeURI(u)
	}
	return "https://" + escapeURI(u)
}

// escapeURI percent-encodes bytes that may not appear literally in a URI
// (RFC 3986): controls, space, non-ASCII and delimiters such as < and >.
// Link targets are written into page dictionaries verbatim.
func escapeURI(u string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(u))
	for i := 0; i < len(u); i++ {
		c := u[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte(`<>"{}|\^`+"`", c) >= 0 {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Walk calls fn for n and every descendant in paint order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
