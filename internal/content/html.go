package content

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf16"
)

var blockTags = map[string]string{
	TypeUnstyled:    "p",
	TypeHeaderOne:   "h1",
	TypeHeaderTwo:   "h2",
	TypeHeaderThree: "h3",
	TypeHeaderFour:  "h4",
	TypeHeaderFive:  "h5",
	TypeHeaderSix:   "h6",
	TypeBlockquote:  "blockquote",
}

// styleTags lists inline styles from outermost to innermost.
var styleTags = []struct {
	style string
	tag   string
}{
	{StyleBold, "strong"},
	{StyleItalic, "em"},
	{StyleUnderline, "u"},
	{StyleStrikethrough, "s"},
	{StyleCode, "code"},
}

var alignments = map[string]string{
	"alignLeft":   "left",
	"alignCenter": "center",
	"alignRight":  "right",
}

// ToHTML renders the tree as an HTML fragment. Consecutive list items of the
// same type share one list element.
func ToHTML(r Raw) string {
	var out strings.Builder
	openList := ""

	closeList := func() {
		if openList != "" {
			fmt.Fprintf(&out, "</%s>\n", openList)
			openList = ""
		}
	}

	for _, block := range r.Blocks {
		inner := renderInline(block, r.EntityMap)
		attrs := alignAttr(block)

		switch block.Type {
		case TypeUnorderedList, TypeOrderedList:
			tag := "ul"
			if block.Type == TypeOrderedList {
				tag = "ol"
			}
			if openList != tag {
				closeList()
				fmt.Fprintf(&out, "<%s>\n", tag)
				openList = tag
			}
			if block.Depth > 0 {
				attrs += fmt.Sprintf(` class="depth-%d"`, block.Depth)
			}
			fmt.Fprintf(&out, "<li%s>%s</li>\n", attrs, inner)
			continue
		}

		closeList()
		switch block.Type {
		case TypeCodeBlock:
			fmt.Fprintf(&out, "<pre%s><code>%s</code></pre>\n", attrs, html.EscapeString(block.Text))
		case "atomic":
			fmt.Fprintf(&out, "<figure%s>%s</figure>\n", attrs, inner)
		default:
			tag, ok := blockTags[block.Type]
			if !ok {
				tag = "p"
			}
			if inner == "" {
				inner = "<br>"
			}
			fmt.Fprintf(&out, "<%s%s>%s</%s>\n", tag, attrs, inner, tag)
		}
	}
	closeList()
	return out.String()
}

func alignAttr(block Block) string {
	if value, ok := alignments[block.Alignment()]; ok {
		return fmt.Sprintf(` style="text-align:%s"`, value)
	}
	return ""
}

// renderInline renders runs of chars sharing the same styles and entity.
func renderInline(block Block, entities map[string]Entity) string {
	chars := block.Chars()
	var out strings.Builder
	start := 0
	for i := 1; i <= len(chars); i++ {
		if i < len(chars) && sameRun(chars[start], chars[i]) {
			continue
		}
		out.WriteString(renderRun(chars[start:i], entities))
		start = i
	}
	return out.String()
}

func sameRun(a, b Char) bool {
	if a.Entity != b.Entity || len(a.Styles) != len(b.Styles) {
		return false
	}
	for style := range a.Styles {
		if !b.HasStyle(style) {
			return false
		}
	}
	return true
}

func renderRun(run []Char, entities map[string]Entity) string {
	if len(run) == 0 {
		return ""
	}
	units := make([]uint16, len(run))
	for i, c := range run {
		units[i] = c.Unit
	}
	text := html.EscapeString(string(utf16.Decode(units)))

	// Apply styles from the inside out.
	for i := len(styleTags) - 1; i >= 0; i-- {
		if run[0].HasStyle(styleTags[i].style) {
			text = fmt.Sprintf("<%s>%s</%s>", styleTags[i].tag, text, styleTags[i].tag)
		}
	}

	if run[0].Entity < 0 {
		return text
	}
	entity, ok := entities[strconv.Itoa(run[0].Entity)]
	if !ok {
		return text
	}
	switch entity.Type {
	case EntityMention:
		id, _ := entity.Data["id"].(string)
		return fmt.Sprintf(`<span class="mention" data-id="%s">%s</span>`, html.EscapeString(id), text)
	case "LINK":
		href, _ := entity.Data["url"].(string)
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), text)
	default:
		return text
	}
}
