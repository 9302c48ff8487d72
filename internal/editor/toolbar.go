// Package editor implements the content editor surface: an editable content
// tree with a selection, toolbar style toggles and mention insertion. Every
// edit hands a snapshot of the whole tree to the OnChange callback.
package editor

import "cramkle/app/internal/content"

// Alignment is the tri-state text alignment stored in block data. The zero
// value means unset.
type Alignment string

const (
	AlignLeft   Alignment = "alignLeft"
	AlignCenter Alignment = "alignCenter"
	AlignRight  Alignment = "alignRight"
)

// Control describes one toolbar button.
type Control struct {
	Label string
	Style string
	Icon  string
}

// BlockTypes are the block type buttons, in toolbar order.
var BlockTypes = []Control{
	{Label: "H1", Style: content.TypeHeaderOne},
	{Label: "H2", Style: content.TypeHeaderTwo},
	{Label: "H3", Style: content.TypeHeaderThree},
	{Label: "H4", Style: content.TypeHeaderFour},
	{Label: "H5", Style: content.TypeHeaderFive},
	{Label: "H6", Style: content.TypeHeaderSix},
	{Label: "Blockquote", Style: content.TypeBlockquote, Icon: "format_quote"},
	{Label: "UL", Style: content.TypeUnorderedList, Icon: "format_list_bulleted"},
	{Label: "OL", Style: content.TypeOrderedList, Icon: "format_list_numbered"},
	{Label: "Code Block", Style: content.TypeCodeBlock},
}

// InlineStyles are the inline style buttons.
var InlineStyles = []Control{
	{Label: "Bold", Style: content.StyleBold, Icon: "format_bold"},
	{Label: "Italic", Style: content.StyleItalic, Icon: "format_italic"},
	{Label: "Underline", Style: content.StyleUnderline, Icon: "format_underlined"},
	{Label: "Strikethrough", Style: content.StyleStrikethrough, Icon: "format_strikethrough"},
	{Label: "Monospace", Style: content.StyleCode, Icon: "code"},
}

// Alignments are the alignment buttons.
var Alignments = []Control{
	{Label: "Align left", Style: string(AlignLeft), Icon: "format_align_left"},
	{Label: "Align center", Style: string(AlignCenter), Icon: "format_align_center"},
	{Label: "Align right", Style: string(AlignRight), Icon: "format_align_right"},
}

func isInlineStyle(style string) bool {
	for _, control := range InlineStyles {
		if control.Style == style {
			return true
		}
	}
	return false
}

func isAlignment(a Alignment) bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}
