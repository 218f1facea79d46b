package rendering

import "github.com/jonathan/resume-watermark/internal/fonts"

// textStyle is the font and color a Style resolves to.
type textStyle struct {
	variant fonts.Variant
	size    float64
	gray    int // 0 black .. 255 white
}

// lineHeight is the baseline-to-baseline distance as a multiple of the font size.
const lineHeight = 1.3

var styles = map[Style]textStyle{
	StyleBody:       {fonts.Variant{Face: fonts.FaceBody, Weight: fonts.Regular}, 9.5, 20},
	StyleName:       {fonts.Variant{Face: fonts.FaceBody, Weight: fonts.Bold}, 20, 0},
	StyleContact:    {fonts.Variant{Face: fonts.FaceBody, Weight: fonts.Regular}, 9, 70},
	StyleLabel:      {fonts.Variant{Face: fonts.FaceLabel, Weight: fonts.Semibold}, 9, 50},
	StyleEntryTitle: {fonts.Variant{Face: fonts.FaceBody, Weight: fonts.Bold}, 10.5, 0},
	StyleEntrySub:   {fonts.Variant{Face: fonts.FaceBody, Weight: fonts.Medium, Italic: true}, 9.5, 60},
	StyleDate:       {fonts.Variant{Face: fonts.FaceBody, Weight: fonts.Regular}, 9.5, 70},
}

// usedVariants lists the font variants the styles need, in a fixed order.
func usedVariants() []fonts.Variant {
	var out []fonts.Variant
	seen := make(map[fonts.Variant]bool)
	for _, v := range fonts.FontSet {
		for s := StyleBody; s <= StyleDate; s++ {
			if styles[s].variant == v && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

const (
	// bulletGlyph is drawn in a fixed-width column so wrapped lines hang under the text.
	bulletGlyph  = "•"
	bulletIndent = 11.0
	// rowGap separates the flush-left and flush-right halves of a row.
	rowGap   = 12.0
	ruleGray = 150
)
