package cli

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/amp-labs/flexiflow/envutil"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"

	borderWidth = 2
)

// DefaultWidth is used when a width of zero is passed.
const DefaultWidth = 60

// Alignment of text inside a panel.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func panelsSuppressed() bool {
	return envutil.Bool("FLEXIFLOW_NO_BANNER", envutil.Default(false)).ValueOrElse(false)
}

// Divider renders a horizontal rule of the given width.
func Divider(width int) string {
	if width <= borderWidth {
		width = DefaultWidth
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-borderWidth) + dividerRight + "\n"
}

// Panel draws text inside a box. Lines that do not fit are truncated with an
// ellipsis. With FLEXIFLOW_NO_BANNER set, the text is returned unboxed.
func Panel(text string, width int, align Alignment) string {
	if panelsSuppressed() {
		return text + "\n"
	}

	if width <= borderWidth {
		width = DefaultWidth
	}

	inner := width - borderWidth
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var sb strings.Builder

	sb.WriteString(boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight + "\n")

	for _, line := range lines {
		sb.WriteString(boxSide + pad(line, inner, align) + boxSide + "\n")
	}

	sb.WriteString(boxBottomLeft + strings.Repeat(boxBottom, inner) + boxBottomRight + "\n")

	return sb.String()
}

func graphicLen(s string) int {
	n := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			n++
		}
	}

	return n
}

func truncate(s string, n int) string {
	var sb strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}

		if count > n {
			break
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

func pad(text string, width int, align Alignment) string {
	length := graphicLen(text)

	if length > width {
		text = truncate(text, width-1) + ellipsis
		length = width
	}

	diff := width - length

	switch align {
	case AlignCenter:
		left := diff / 2 //nolint:mnd

		return fmt.Sprintf("%s%s%s", strings.Repeat(" ", left), text, strings.Repeat(" ", diff-left))
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}
