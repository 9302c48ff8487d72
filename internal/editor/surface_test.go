package editor

import (
	"errors"
	"testing"

	"cramkle/app/internal/content"
)

func firstKey(s *Surface) string {
	return s.Content().Blocks[0].Key
}

func TestNewDegradesToEmptyDocument(t *testing.T) {
	cases := map[string]content.Raw{
		"zero value": {},
		"malformed":  content.Parse([]byte(`{"blocks": 12`)),
		"null":       content.Parse([]byte(`null`)),
	}
	for name, initial := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(initial)
			raw := s.Content()
			if len(raw.Blocks) != 1 {
				t.Fatalf("expected one block, got %d", len(raw.Blocks))
			}
			if raw.Blocks[0].Key == "" || raw.Blocks[0].Type != content.TypeUnstyled || raw.Blocks[0].Text != "" {
				t.Errorf("unexpected block %+v", raw.Blocks[0])
			}
			if sel := s.Selection(); !sel.Collapsed() || sel.AnchorKey != raw.Blocks[0].Key || sel.AnchorOffset != 0 {
				t.Errorf("expected caret at document start, got %+v", sel)
			}
		})
	}
}

func TestToggleAlignmentTwiceUnsets(t *testing.T) {
	s := New(content.Empty())

	if err := s.ToggleAlignment(AlignCenter); err != nil {
		t.Fatalf("ToggleAlignment() error = %v", err)
	}
	if got := s.Content().Blocks[0].Data[content.AlignmentDataKey]; got != "alignCenter" {
		t.Fatalf("expected alignCenter, got %v", got)
	}
	if s.CurrentAlignment() != AlignCenter {
		t.Errorf("expected current alignment center, got %q", s.CurrentAlignment())
	}

	if err := s.ToggleAlignment(AlignCenter); err != nil {
		t.Fatalf("ToggleAlignment() error = %v", err)
	}
	if _, ok := s.Content().Blocks[0].Data[content.AlignmentDataKey]; ok {
		t.Fatalf("expected alignment to be unset, got %v", s.Content().Blocks[0].Data)
	}
	if s.CurrentAlignment() != "" {
		t.Errorf("expected unset alignment, got %q", s.CurrentAlignment())
	}
}

func TestToggleAlignmentReplacesDifferentValue(t *testing.T) {
	s := New(content.Empty())
	_ = s.ToggleAlignment(AlignLeft)
	_ = s.ToggleAlignment(AlignRight)

	if got := s.CurrentAlignment(); got != AlignRight {
		t.Fatalf("expected alignRight, got %q", got)
	}
	if err := s.ToggleAlignment("justify"); !errors.Is(err, ErrUnknownAlignment) {
		t.Fatalf("expected ErrUnknownAlignment, got %v", err)
	}
}

func TestToggleInlineStyleOnRange(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("hello")
	key := firstKey(s)

	if err := s.Select(Selection{AnchorKey: key, AnchorOffset: 0, FocusKey: key, FocusOffset: 5}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := s.ToggleInlineStyle(content.StyleBold); err != nil {
		t.Fatalf("ToggleInlineStyle() error = %v", err)
	}
	ranges := s.Content().Blocks[0].InlineStyleRanges
	want := content.InlineStyleRange{Style: content.StyleBold, Offset: 0, Length: 5}
	if len(ranges) != 1 || ranges[0] != want {
		t.Fatalf("expected %v, got %v", want, ranges)
	}

	if err := s.ToggleInlineStyle(content.StyleBold); err != nil {
		t.Fatalf("ToggleInlineStyle() error = %v", err)
	}
	if ranges := s.Content().Blocks[0].InlineStyleRanges; len(ranges) != 0 {
		t.Fatalf("expected bold removed, got %v", ranges)
	}
}

func TestToggleInlineStylePartialSelectionAdds(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("abcd")
	key := firstKey(s)

	_ = s.Select(Selection{AnchorKey: key, AnchorOffset: 0, FocusKey: key, FocusOffset: 2})
	_ = s.ToggleInlineStyle(content.StyleItalic)
	// Backwards selection over a half-styled range.
	_ = s.Select(Selection{AnchorKey: key, AnchorOffset: 4, FocusKey: key, FocusOffset: 1})
	_ = s.ToggleInlineStyle(content.StyleItalic)

	ranges := s.Content().Blocks[0].InlineStyleRanges
	want := content.InlineStyleRange{Style: content.StyleItalic, Offset: 0, Length: 4}
	if len(ranges) != 1 || ranges[0] != want {
		t.Fatalf("expected %v, got %v", want, ranges)
	}
}

func TestToggleInlineStyleAtCaretAffectsNextInsert(t *testing.T) {
	s := New(content.Empty())

	_ = s.ToggleInlineStyle(content.StyleBold)
	if got := s.CurrentInlineStyles(); len(got) != 1 || got[0] != content.StyleBold {
		t.Fatalf("expected pending bold, got %v", got)
	}
	s.InsertText("hi")
	_ = s.ToggleInlineStyle(content.StyleBold)
	s.InsertText(" there")

	block := s.Content().Blocks[0]
	if block.Text != "hi there" {
		t.Fatalf("unexpected text %q", block.Text)
	}
	want := content.InlineStyleRange{Style: content.StyleBold, Offset: 0, Length: 2}
	if len(block.InlineStyleRanges) != 1 || block.InlineStyleRanges[0] != want {
		t.Fatalf("expected %v, got %v", want, block.InlineStyleRanges)
	}
}

func TestToggleInlineStyleRejectsUnknown(t *testing.T) {
	s := New(content.Empty())
	if err := s.ToggleInlineStyle("SHOUT"); !errors.Is(err, ErrUnknownStyle) {
		t.Fatalf("expected ErrUnknownStyle, got %v", err)
	}
}

func TestToggleBlockType(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("Title")

	if err := s.ToggleBlockType(content.TypeHeaderOne); err != nil {
		t.Fatalf("ToggleBlockType() error = %v", err)
	}
	if got := s.CurrentBlockType(); got != content.TypeHeaderOne {
		t.Fatalf("expected header-one, got %q", got)
	}
	_ = s.ToggleBlockType(content.TypeHeaderOne)
	if got := s.CurrentBlockType(); got != content.TypeUnstyled {
		t.Fatalf("expected toggle back to unstyled, got %q", got)
	}
	if err := s.ToggleBlockType("marquee"); !errors.Is(err, ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType, got %v", err)
	}
}

func TestToggleBlockTypeAcrossSelection(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("one")
	s.SplitBlock()
	s.InsertText("two")
	s.SelectAll()

	_ = s.ToggleBlockType(content.TypeOrderedList)

	for i, block := range s.Content().Blocks {
		if block.Type != content.TypeOrderedList {
			t.Errorf("block %d: expected ordered list item, got %q", i, block.Type)
		}
	}
}

func TestSplitBlockContinuesLists(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("item")
	_ = s.ToggleBlockType(content.TypeUnorderedList)
	s.SplitBlock()

	blocks := s.Content().Blocks
	if len(blocks) != 2 {
		t.Fatalf("expected two blocks, got %d", len(blocks))
	}
	if blocks[1].Type != content.TypeUnorderedList {
		t.Errorf("expected list to continue, got %q", blocks[1].Type)
	}
	if blocks[0].Key == blocks[1].Key {
		t.Error("expected split block to receive a fresh key")
	}

	_ = s.ToggleBlockType(content.TypeHeaderTwo)
	s.SplitBlock()
	if got := s.Content().Blocks[2].Type; got != content.TypeUnstyled {
		t.Errorf("expected header to continue as unstyled, got %q", got)
	}
}

func TestInsertTextReplacesSelection(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("hello world")
	key := firstKey(s)

	_ = s.Select(Selection{AnchorKey: key, AnchorOffset: 0, FocusKey: key, FocusOffset: 5})
	s.InsertText("HELLO")

	if got := s.Content().Blocks[0].Text; got != "HELLO world" {
		t.Fatalf("unexpected text %q", got)
	}
	if sel := s.Selection(); !sel.Collapsed() || sel.AnchorOffset != 5 {
		t.Errorf("expected caret after insert, got %+v", sel)
	}
}

func TestBackspace(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("a😀")
	s.Backspace()
	if got := s.Content().Blocks[0].Text; got != "a" {
		t.Fatalf("expected surrogate pair removed, got %q", got)
	}

	s.SplitBlock()
	s.InsertText("b")
	second := s.Content().Blocks[1].Key
	_ = s.Select(Caret(second, 0))
	s.Backspace()

	raw := s.Content()
	if len(raw.Blocks) != 1 || raw.Blocks[0].Text != "ab" {
		t.Fatalf("expected blocks merged into %q, got %+v", "ab", raw.Blocks)
	}
	if sel := s.Selection(); sel.AnchorKey != raw.Blocks[0].Key || sel.AnchorOffset != 1 {
		t.Errorf("expected caret at join point, got %+v", sel)
	}
}

func TestBackspaceResetsStyledBlock(t *testing.T) {
	s := New(content.Empty())
	_ = s.ToggleBlockType(content.TypeBlockquote)
	s.Backspace()
	if got := s.CurrentBlockType(); got != content.TypeUnstyled {
		t.Fatalf("expected unstyled, got %q", got)
	}
}

func TestSelectUnknownBlock(t *testing.T) {
	s := New(content.Empty())
	if err := s.Select(Caret("nope", 0)); !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("expected ErrUnknownBlock, got %v", err)
	}
}

func TestInsertMention(t *testing.T) {
	s := New(content.Empty(), WithMentionables([]Mentionable{{ID: "f1", Name: "Front"}, {ID: "f2", Name: "Back"}}))
	s.InsertText("Q: ")

	if err := s.InsertMention("f1"); err != nil {
		t.Fatalf("InsertMention() error = %v", err)
	}
	s.InsertText("?")

	raw := s.Content()
	block := raw.Blocks[0]
	if block.Text != "Q: Front?" {
		t.Fatalf("unexpected text %q", block.Text)
	}
	want := content.EntityRange{Key: 0, Offset: 3, Length: 5}
	if len(block.EntityRanges) != 1 || block.EntityRanges[0] != want {
		t.Fatalf("expected %v, got %v", want, block.EntityRanges)
	}
	entity := raw.EntityMap["0"]
	if entity.Type != content.EntityMention || entity.Mutability != content.Immutable {
		t.Errorf("unexpected entity %+v", entity)
	}
	if entity.Data["id"] != "f1" || entity.Data["name"] != "Front" {
		t.Errorf("unexpected entity data %v", entity.Data)
	}

	mentions := s.Mentions()
	if len(mentions) != 1 {
		t.Fatalf("expected one mention, got %v", mentions)
	}
	if m := mentions[0]; m.BlockKey != block.Key || m.Offset != 3 || m.Length != 5 || m.ID != "f1" || m.Name != "Front" {
		t.Errorf("unexpected mention %+v", m)
	}
}

func TestInsertMentionUnknown(t *testing.T) {
	calls := 0
	s := New(content.Empty(), WithOnChange(func(content.Raw) { calls++ }))

	if err := s.InsertMention("missing"); !errors.Is(err, ErrUnknownMention) {
		t.Fatalf("expected ErrUnknownMention, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no change callback, got %d", calls)
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var snapshots []content.Raw
	s := New(content.Empty(), WithOnChange(func(raw content.Raw) {
		snapshots = append(snapshots, raw)
	}))

	s.InsertText("a")
	_ = s.ToggleAlignment(AlignCenter)
	s.InsertText("b")

	if len(snapshots) != 3 {
		t.Fatalf("expected 3 callbacks, got %d", len(snapshots))
	}
	if snapshots[0].Blocks[0].Text != "a" || snapshots[0].Blocks[0].Alignment() != "" {
		t.Errorf("first snapshot changed after later edits: %+v", snapshots[0].Blocks[0])
	}
	if snapshots[2].Blocks[0].Text != "ab" {
		t.Errorf("unexpected last snapshot %q", snapshots[2].Blocks[0].Text)
	}

	snapshots[2].Blocks[0].Text = "mutated"
	if got := s.Content().Blocks[0].Text; got != "ab" {
		t.Errorf("snapshot mutation leaked into surface: %q", got)
	}
}

func TestToolbarControls(t *testing.T) {
	for _, control := range BlockTypes {
		if !content.IsBlockType(control.Style) {
			t.Errorf("toolbar block type %q is not a known block type", control.Style)
		}
	}
	for _, control := range Alignments {
		if !isAlignment(Alignment(control.Style)) {
			t.Errorf("toolbar alignment %q is not a known alignment", control.Style)
		}
	}
	if len(InlineStyles) != 5 {
		t.Errorf("expected five inline styles, got %d", len(InlineStyles))
	}
}

func mentionSurface(t *testing.T, prefix string) *Surface {
	t.Helper()
	s := New(content.Empty(), WithMentionables([]Mentionable{{ID: "f1", Name: "Front"}}))
	s.InsertText(prefix)
	if err := s.InsertMention("f1"); err != nil {
		t.Fatalf("InsertMention() error = %v", err)
	}
	return s
}

func TestBackspaceRemovesWholeMention(t *testing.T) {
	s := mentionSurface(t, "a ")
	s.Backspace()

	block := s.Content().Blocks[0]
	if block.Text != "a " || len(block.EntityRanges) != 0 {
		t.Fatalf("expected mention removed, got text %q ranges %v", block.Text, block.EntityRanges)
	}
	if sel := s.Selection(); sel.AnchorOffset != 2 {
		t.Errorf("expected caret at 2, got %+v", sel)
	}
}

func TestDeletingPartOfMentionRemovesIt(t *testing.T) {
	s := mentionSurface(t, "a ")
	s.InsertText("!")
	key := firstKey(s)

	_ = s.Select(Selection{AnchorKey: key, AnchorOffset: 4, FocusKey: key, FocusOffset: 5})
	s.Backspace()

	block := s.Content().Blocks[0]
	if block.Text != "a !" || len(block.EntityRanges) != 0 {
		t.Fatalf("expected whole mention deleted, got text %q ranges %v", block.Text, block.EntityRanges)
	}
}

func TestTypingInsideMentionDetachesEntity(t *testing.T) {
	s := mentionSurface(t, "")
	_ = s.Select(Caret(firstKey(s), 2))
	s.InsertText("X")

	raw := s.Content()
	block := raw.Blocks[0]
	if block.Text != "FrXont" || len(block.EntityRanges) != 0 {
		t.Fatalf("expected plain text without entity, got text %q ranges %v", block.Text, block.EntityRanges)
	}
	if len(s.Mentions()) != 0 {
		t.Errorf("expected no mentions, got %v", s.Mentions())
	}

	value := content.Empty()
	value.Blocks[0].Text = "VALUE"
	if got := content.Substitute(raw, map[string]content.Raw{"f1": value}).PlainText(); got != "FrXont" {
		t.Errorf("Substitute() = %q", got)
	}
}

func TestTypingAtMentionEdgesKeepsEntity(t *testing.T) {
	s := mentionSurface(t, "")
	s.InsertText("!")
	_ = s.Select(Caret(firstKey(s), 0))
	s.InsertText("Q ")

	block := s.Content().Blocks[0]
	want := content.EntityRange{Key: 0, Offset: 2, Length: 5}
	if block.Text != "Q Front!" || len(block.EntityRanges) != 1 || block.EntityRanges[0] != want {
		t.Fatalf("unexpected block text %q ranges %v", block.Text, block.EntityRanges)
	}
}

func TestSplitInsideMentionDetachesEntity(t *testing.T) {
	s := mentionSurface(t, "")
	_ = s.Select(Caret(firstKey(s), 3))
	s.SplitBlock()

	raw := s.Content()
	if len(raw.Blocks) != 2 || raw.Blocks[0].Text != "Fro" || raw.Blocks[1].Text != "nt" {
		t.Fatalf("unexpected blocks %+v", raw.Blocks)
	}
	if len(raw.Blocks[0].EntityRanges) != 0 || len(raw.Blocks[1].EntityRanges) != 0 {
		t.Fatalf("expected entity detached, got %v / %v", raw.Blocks[0].EntityRanges, raw.Blocks[1].EntityRanges)
	}
}

func TestSelectSnapsToCodePointBoundary(t *testing.T) {
	s := New(content.Empty())
	s.InsertText("a😀b")
	key := firstKey(s)

	if err := s.Select(Caret(key, 2)); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel := s.Selection(); sel.AnchorOffset != 1 || sel.FocusOffset != 1 {
		t.Fatalf("expected caret snapped to 1, got %+v", sel)
	}
	s.InsertText("X")
	if got := s.Content().Blocks[0].Text; got != "aX😀b" {
		t.Fatalf("unexpected text %q", got)
	}

	_ = s.Select(Caret(key, 99))
	if sel := s.Selection(); sel.AnchorOffset != 5 {
		t.Errorf("expected caret clamped to 5, got %+v", sel)
	}
}
