package rendering

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

// painter holds the per-render paint state. It is never shared between renders.
type painter struct {
	pdf       *fpdf.Fpdf
	hyphenate func(string) []string

	left     float64
	contentW float64
	bottom   float64 // y beyond which content moves to the next page
}

func newPainter(pdf *fpdf.Fpdf, margin float64, hyphenate func(string) []string) *painter {
	pageW, pageH := pdf.GetPageSize()
	return &painter{
		pdf:       pdf,
		hyphenate: hyphenate,
		left:      margin,
		contentW:  pageW - 2*margin,
		bottom:    pageH - margin,
	}
}

func (p *painter) use(s Style) float64 {
	ts := styles[s]
	family, style := ts.variant.Family()
	p.pdf.SetFont(family, style, ts.size)
	p.pdf.SetTextColor(ts.gray, ts.gray, ts.gray)
	return ts.size * lineHeight
}

func (p *painter) measure(s string) float64 {
	return p.pdf.GetStringWidth(s)
}

// ensureSpace starts a new page when fewer than h points remain.
func (p *painter) ensureSpace(h float64) {
	if p.pdf.GetY()+h > p.bottom {
		p.pdf.AddPage()
	}
}

// paint renders n and its children in one recursive pass.
func (p *painter) paint(n *Node) {
	switch n.Kind {
	case KindBlock:
		for _, c := range n.Children {
			p.paint(c)
		}
	case KindText:
		p.paintText(n)
	case KindInline:
		p.paintInline(n)
	case KindRow:
		p.paintRow(n)
	case KindBulletList:
		p.paintBullets(n)
	case KindRule:
		p.paintRule()
	case KindAbsoluteImage:
		// painted by the page hook
	}

	if n.SpaceAfter > 0 {
		p.pdf.Ln(n.SpaceAfter)
	}
}

func (p *painter) paintText(n *Node) {
	lh := p.use(n.Style)
	if n.Style == StyleLabel {
		// keep a label with at least two lines of what follows
		p.ensureSpace(lh * 3)
	}
	for _, line := range Wrap(n.Text, p.contentW, p.measure, p.hyphenate) {
		p.pdf.SetX(p.left)
		p.pdf.CellFormat(p.contentW, lh, line, "", 1, string(n.Align), false, 0, "")
	}
}

func (p *painter) paintInline(n *Node) {
	lh := p.use(n.Style)

	texts := make([]string, len(n.Segments))
	for i, s := range n.Segments {
		texts[i] = s.Text
	}
	joined := strings.Join(texts, Separator)

	total := p.measure(joined)
	if total > p.contentW {
		// too wide for one line: fall back to a wrapped paragraph without links
		for _, line := range Wrap(joined, p.contentW, p.measure, p.hyphenate) {
			p.pdf.SetX(p.left)
			p.pdf.CellFormat(p.contentW, lh, line, "", 1, string(n.Align), false, 0, "")
		}
		return
	}

	x := p.left
	switch n.Align {
	case AlignCenter:
		x += (p.contentW - total) / 2
	case AlignRight:
		x += p.contentW - total
	}

	p.ensureSpace(lh)
	p.pdf.SetX(x)
	sepW := p.measure(Separator)
	for i, s := range n.Segments {
		if i > 0 {
			p.pdf.CellFormat(sepW, lh, Separator, "", 0, "L", false, 0, "")
		}
		p.pdf.CellFormat(p.measure(s.Text), lh, s.Text, "", 0, "L", false, 0, s.Link)
	}
	p.pdf.Ln(lh)
}

func (p *painter) paintRow(n *Node) {
	p.use(n.RightStyle)
	rightW := p.measure(n.Right)

	lh := p.use(n.Style)
	leftW := p.contentW
	if rightW > 0 {
		leftW = p.contentW - rightW - rowGap
	}
	lines := Wrap(n.Text, leftW, p.measure, p.hyphenate)
	if len(lines) == 0 {
		lines = []string{""}
	}

	p.ensureSpace(lh)
	p.pdf.SetX(p.left)
	if rightW > 0 {
		p.pdf.CellFormat(leftW, lh, lines[0], "", 0, "L", false, 0, "")
		p.use(n.RightStyle)
		p.pdf.SetX(p.left + p.contentW - rightW)
		p.pdf.CellFormat(rightW, lh, n.Right, "", 1, "R", false, 0, "")
		p.use(n.Style)
	} else {
		p.pdf.CellFormat(leftW, lh, lines[0], "", 1, "L", false, 0, "")
	}
	for _, line := range lines[1:] {
		p.pdf.SetX(p.left)
		p.pdf.CellFormat(leftW, lh, line, "", 1, "L", false, 0, "")
	}
}

func (p *painter) paintBullets(n *Node) {
	lh := p.use(n.Style)
	textW := p.contentW - bulletIndent
	for _, item := range n.Items {
		lines := Wrap(item, textW, p.measure, p.hyphenate)
		if len(lines) == 0 {
			continue
		}
		p.ensureSpace(lh)
		p.pdf.SetX(p.left)
		p.pdf.CellFormat(bulletIndent, lh, bulletGlyph, "", 0, "L", false, 0, "")
		p.pdf.CellFormat(textW, lh, lines[0], "", 1, "L", false, 0, "")
		for _, line := range lines[1:] {
			p.pdf.SetX(p.left + bulletIndent)
			p.pdf.CellFormat(textW, lh, line, "", 1, "L", false, 0, "")
		}
	}
}

func (p *painter) paintRule() {
	p.ensureSpace(4)
	y := p.pdf.GetY() + 1
	p.pdf.SetDrawColor(ruleGray, ruleGray, ruleGray)
	p.pdf.SetLineWidth(0.6)
	p.pdf.Line(p.left, y, p.left+p.contentW, y)
	p.pdf.SetY(y + 1)
}
