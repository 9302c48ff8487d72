package content

import (
	"strings"
	"testing"
)

func block(blockType, text string) Block {
	b := NewBlock(blockType)
	b.Text = text
	return b
}

func TestToHTML(t *testing.T) {
	bold := block(TypeUnstyled, "Hello world")
	bold.InlineStyleRanges = []InlineStyleRange{{Style: StyleBold, Offset: 0, Length: 5}}

	centered := block(TypeHeaderTwo, "Title")
	centered.Data[AlignmentDataKey] = "alignCenter"

	nested := block(TypeUnstyled, "both")
	nested.InlineStyleRanges = []InlineStyleRange{
		{Style: StyleItalic, Offset: 0, Length: 4},
		{Style: StyleBold, Offset: 0, Length: 4},
	}

	tests := []struct {
		name     string
		blocks   []Block
		expected []string
	}{
		{
			name:     "paragraph with bold run",
			blocks:   []Block{bold},
			expected: []string{"<p><strong>Hello</strong> world</p>"},
		},
		{
			name:     "aligned heading",
			blocks:   []Block{centered},
			expected: []string{`<h2 style="text-align:center">Title</h2>`},
		},
		{
			name:     "nested styles open bold first",
			blocks:   []Block{nested},
			expected: []string{"<p><strong><em>both</em></strong></p>"},
		},
		{
			name:   "list items grouped",
			blocks: []Block{block(TypeUnorderedList, "one"), block(TypeUnorderedList, "two"), block(TypeOrderedList, "three")},
			expected: []string{
				"<ul>\n<li>one</li>\n<li>two</li>\n</ul>",
				"<ol>\n<li>three</li>\n</ol>",
			},
		},
		{
			name:     "code block escapes",
			blocks:   []Block{block(TypeCodeBlock, "a < b")},
			expected: []string{"<pre><code>a &lt; b</code></pre>"},
		},
		{
			name:     "text is escaped",
			blocks:   []Block{block(TypeBlockquote, "<script>")},
			expected: []string{"<blockquote>&lt;script&gt;</blockquote>"},
		},
		{
			name:     "empty paragraph keeps height",
			blocks:   []Block{block(TypeUnstyled, "")},
			expected: []string{"<p><br></p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToHTML(Raw{Blocks: tt.blocks, EntityMap: map[string]Entity{}})
			for _, want := range tt.expected {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q in output:\n%s", want, got)
				}
			}
		})
	}
}

func TestToHTMLMention(t *testing.T) {
	raw := Parse([]byte(sampleJSON))
	got := ToHTML(raw)
	if !strings.Contains(got, `<span class="mention" data-id="field-1"><strong>Front</strong></span>`) {
		t.Errorf("expected mention span, got:\n%s", got)
	}
	if !strings.Contains(got, `<li class="depth-1">`) {
		t.Errorf("expected depth class, got:\n%s", got)
	}
}
