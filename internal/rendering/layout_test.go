package rendering

import (
	"strings"
	"testing"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(root *Node) []string {
	var out []string
	Walk(root, func(n *Node) {
		if n.Kind == KindText && n.Style == StyleLabel {
			out = append(out, n.Text)
		}
	})
	return out
}

func findKind(root *Node, kind Kind) []*Node {
	var out []*Node
	Walk(root, func(n *Node) {
		if n.Kind == kind {
			out = append(out, n)
		}
	})
	return out
}

func fullDocument() *types.Document {
	return &types.Document{
		Contact: types.Contact{
			Name:     "Jane Doe",
			Email:    "jane@example.com",
			Phone:    "555-0100",
			Location: "Portland, OR",
			LinkedIn: "linkedin.com/in/janedoe",
			Website:  "https://jane.dev",
		},
		Summary: "Backend engineer focused on   reliable systems.",
		Experience: []types.Experience{
			{
				Title: "Senior Engineer", Company: "Acme", Location: "Remote",
				StartDate: "2021", EndDate: "2024",
				Bullets: []string{"Cut p99 latency by 40%", "Led migration to Go"},
			},
		},
		Education: []types.Education{
			{Degree: "BS Computer Science", School: "State University", GraduationDate: "2016", GPA: "3.8"},
		},
		Skills:         []string{"Go", "PostgreSQL", "Kubernetes"},
		Certifications: []string{"CKA"},
	}
}

func TestBuild_SectionOrder(t *testing.T) {
	root := Build(fullDocument(), nil)
	assert.Equal(t, []string{
		LabelSummary, LabelExperience, LabelEducation, LabelSkills, LabelCertifications,
	}, labels(root))
}

func TestBuild_EmptyExperienceHasNoLabel(t *testing.T) {
	doc := fullDocument()
	doc.Experience = nil

	got := labels(Build(doc, nil))
	assert.NotContains(t, got, LabelExperience)
	assert.Contains(t, got, LabelEducation)
}

func TestBuild_EmptySectionsSkippedWithTheirDividers(t *testing.T) {
	doc := &types.Document{Contact: types.Contact{Name: "Solo"}}
	root := Build(doc, nil)

	assert.Empty(t, labels(root))
	// Only the header divider remains.
	assert.Len(t, findKind(root, KindRule), 1)
}

func TestBuild_WhitespaceOnlySummarySkipped(t *testing.T) {
	doc := fullDocument()
	doc.Summary = "   \n\t "
	assert.NotContains(t, labels(Build(doc, nil)), LabelSummary)
}

func TestBuild_ContactOmitsMissingFields(t *testing.T) {
	doc := &types.Document{Contact: types.Contact{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Phone:    "555-0100",
		Location: "Portland, OR",
	}}

	inline := findKind(Build(doc, nil), KindInline)
	require.Len(t, inline, 1)

	var texts []string
	for _, s := range inline[0].Segments {
		texts = append(texts, s.Text)
		assert.NotEmpty(t, s.Text)
	}
	assert.Equal(t, []string{"jane@example.com", "555-0100", "Portland, OR"}, texts)
	assert.Equal(t, "mailto:jane@example.com", inline[0].Segments[0].Link)
	assert.Equal(t, AlignCenter, inline[0].Align)
}

func TestBuild_ContactLinks(t *testing.T) {
	inline := findKind(Build(fullDocument(), nil), KindInline)
	require.Len(t, inline, 1)
	segs := inline[0].Segments
	require.Len(t, segs, 5)
	assert.Equal(t, "https://linkedin.com/in/janedoe", segs[3].Link)
	assert.Equal(t, "https://jane.dev", segs[4].Link)
}

func TestBuild_NoContactFieldsNoInlineRow(t *testing.T) {
	doc := &types.Document{Contact: types.Contact{Name: "Jane Doe"}}
	assert.Empty(t, findKind(Build(doc, nil), KindInline))
}

func TestBuild_ExperienceEntry(t *testing.T) {
	root := Build(fullDocument(), nil)

	rows := findKind(root, KindRow)
	require.Len(t, rows, 2)
	assert.Equal(t, "Senior Engineer", rows[0].Text)
	assert.Equal(t, "2021 – 2024", rows[0].Right)
	assert.Equal(t, "BS Computer Science", rows[1].Text)
	assert.Equal(t, "2016", rows[1].Right)

	lists := findKind(root, KindBulletList)
	require.Len(t, lists, 2)
	assert.Equal(t, []string{"Cut p99 latency by 40%", "Led migration to Go"}, lists[0].Items)
	assert.Equal(t, []string{"CKA"}, lists[1].Items)
}

func TestBuild_EducationSubLineWithGPA(t *testing.T) {
	var subs []string
	Walk(Build(fullDocument(), nil), func(n *Node) {
		if n.Kind == KindText && n.Style == StyleEntrySub {
			subs = append(subs, n.Text)
		}
	})
	assert.Equal(t, []string{"Acme · Remote", "State University · GPA 3.8"}, subs)
}

func TestBuild_SkillsJoinedWithMiddleDot(t *testing.T) {
	var skills string
	root := Build(fullDocument(), nil)
	for _, sec := range root.Children {
		if len(sec.Children) > 0 && sec.Children[0].Text == LabelSkills {
			skills = sec.Children[len(sec.Children)-1].Text
		}
	}
	assert.Equal(t, "Go · PostgreSQL · Kubernetes", skills)
}

func TestBuild_WatermarkNode(t *testing.T) {
	img := &dither.Image{PNG: []byte{1}, Width: 1, Height: 1}
	root := Build(fullDocument(), img)
	images := findKind(root, KindAbsoluteImage)
	require.Len(t, images, 1)
	assert.Same(t, img, images[0].Image)

	assert.Empty(t, findKind(Build(fullDocument(), nil), KindAbsoluteImage))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "", NormalizeText(""))
	assert.Equal(t, "a b c", NormalizeText("  a \n b\t\tc  "))
	assert.Equal(t, "ab", NormalizeText("a\x00b"))
	assert.Equal(t, "résumé · α", NormalizeText("résumé · α"))
}

func TestWrap(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }
	never := func(w string) []string { return []string{w} }

	lines := Wrap("the quick brown fox jumps", 10, measure, never)
	assert.Equal(t, []string{"the quick", "brown fox", "jumps"}, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 10)
	}

	assert.Nil(t, Wrap("   ", 10, measure, never))
}

func TestWrap_LongWordIsNotHyphenated(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }
	never := func(w string) []string { return []string{w} }

	lines := Wrap("a internationalization b", 8, measure, never)
	assert.Equal(t, []string{"a", "internationalization", "b"}, lines)
	for _, l := range lines {
		assert.False(t, strings.HasSuffix(l, "-"))
	}
}

func TestWrap_UsesHyphenationPiecesWhenOffered(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }
	split := func(w string) []string {
		if w == "abcdefgh" {
			return []string{"abcd", "efgh"}
		}
		return []string{w}
	}

	lines := Wrap("xy abcdefgh", 8, measure, split)
	assert.Equal(t, []string{"xy abcd-", "efgh"}, lines)
}

func TestBuild_ContactLinksAreEscaped(t *testing.T) {
	doc := &types.Document{Contact: types.Contact{
		Name:    "Jane Doe",
		Website: "example.com/a b\n<</Type /Page>>",
	}}
	inline := findKind(Build(doc, nil), KindInline)
	require.Len(t, inline, 1)

	link := inline[0].Segments[0].Link
	assert.Equal(t, "https://example.com/a%20b%0A%3C%3C/Type%20/Page%3E%3E", link)
	assert.NotContains(t, link, "<<")
}

func TestEscapeURI(t *testing.T) {
	assert.Equal(t, "https://jane.dev/x?q=1#top", escapeURI("https://jane.dev/x?q=1#top"))
	assert.Equal(t, "r%C3%A9sum%C3%A9", escapeURI("résumé"))
	assert.Equal(t, "%22%7B%7D%7C%5C%5E%60", escapeURI("\"{}|\\^`"))
}
