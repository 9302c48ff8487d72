package editor

import (
	"errors"
	"fmt"
	"strconv"

	"cramkle/app/internal/content"
)

var (
	ErrUnknownBlock     = errors.New("editor: unknown block")
	ErrUnknownBlockType = errors.New("editor: unknown block type")
	ErrUnknownStyle     = errors.New("editor: unknown inline style")
	ErrUnknownAlignment = errors.New("editor: unknown alignment")
	ErrUnknownMention   = errors.New("editor: unknown mention")
)

// Selection is a range between an anchor and a focus position. It is
// collapsed when both positions are equal.
type Selection struct {
	AnchorKey    string
	AnchorOffset int
	FocusKey     string
	FocusOffset  int
}

// Collapsed reports whether the selection is a caret.
func (s Selection) Collapsed() bool {
	return s.AnchorKey == s.FocusKey && s.AnchorOffset == s.FocusOffset
}

// Caret returns a collapsed selection at offset of block key.
func Caret(key string, offset int) Selection {
	return Selection{AnchorKey: key, AnchorOffset: offset, FocusKey: key, FocusOffset: offset}
}

// Mentionable is an entity the user can mention, e.g. a note field.
type Mentionable struct {
	ID   string
	Name string
}

// Surface owns the content being edited. It is not safe for concurrent use;
// callers drive it from a single goroutine the way a UI event loop would.
type Surface struct {
	raw      content.Raw
	sel      Selection
	override map[string]struct{}
	mentions []Mentionable
	onChange func(content.Raw)
}

type Option func(*Surface)

// WithOnChange registers the callback receiving a snapshot after every edit.
func WithOnChange(fn func(content.Raw)) Option {
	return func(s *Surface) { s.onChange = fn }
}

// WithMentionables sets the names that can be mentioned.
func WithMentionables(items []Mentionable) Option {
	return func(s *Surface) { s.mentions = append([]Mentionable{}, items...) }
}

// New creates a surface over initial. A tree without blocks becomes an empty
// document. The caret starts at the beginning of the first block.
func New(initial content.Raw, opts ...Option) *Surface {
	s := &Surface{raw: content.Normalize(initial)}
	for _, opt := range opts {
		opt(s)
	}
	s.sel = Caret(s.raw.Blocks[0].Key, 0)
	return s
}

// Content returns a snapshot of the current tree.
func (s *Surface) Content() content.Raw {
	return s.raw.Clone()
}

func (s *Surface) Selection() Selection {
	return s.sel
}

func (s *Surface) Mentionables() []Mentionable {
	return append([]Mentionable{}, s.mentions...)
}

// Select moves the selection. Offsets are clamped to the block length and
// moved off the middle of a surrogate pair to the preceding code point.
func (s *Surface) Select(sel Selection) error {
	anchor := s.raw.BlockByKey(sel.AnchorKey)
	focus := s.raw.BlockByKey(sel.FocusKey)
	if anchor < 0 || focus < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, firstNonEmpty(sel.AnchorKey, sel.FocusKey))
	}
	sel.AnchorOffset = snapOffset(s.raw.Blocks[anchor], sel.AnchorOffset)
	sel.FocusOffset = snapOffset(s.raw.Blocks[focus], sel.FocusOffset)
	s.sel = sel
	s.override = nil
	return nil
}

// SelectAll selects the whole document.
func (s *Surface) SelectAll() {
	last := s.raw.Blocks[len(s.raw.Blocks)-1]
	s.sel = Selection{
		AnchorKey:    s.raw.Blocks[0].Key,
		AnchorOffset: 0,
		FocusKey:     last.Key,
		FocusOffset:  last.Len(),
	}
	s.override = nil
}

// position is a caret location by block index.
type position struct {
	block  int
	offset int
}

func (p position) before(o position) bool {
	return p.block < o.block || (p.block == o.block && p.offset < o.offset)
}

// bounds returns the selection start and end in document order.
func (s *Surface) bounds() (position, position) {
	anchor := position{block: s.raw.BlockByKey(s.sel.AnchorKey), offset: s.sel.AnchorOffset}
	focus := position{block: s.raw.BlockByKey(s.sel.FocusKey), offset: s.sel.FocusOffset}
	if focus.before(anchor) {
		return focus, anchor
	}
	return anchor, focus
}

func (s *Surface) caretAt(p position) {
	s.sel = Caret(s.raw.Blocks[p.block].Key, p.offset)
}

func (s *Surface) emit() {
	if s.onChange != nil {
		s.onChange(s.raw.Clone())
	}
}

// deleteSelection removes the selected range and collapses the caret at its
// start. It reports whether anything was removed.
func (s *Surface) deleteSelection() bool {
	if s.sel.Collapsed() {
		return false
	}
	start, end := s.bounds()
	first := s.raw.Blocks[start.block]
	last := s.raw.Blocks[end.block]
	firstChars := first.Chars()
	lastChars := last.Chars()

	// Immutable entities are removed whole.
	if s.insideImmutable(firstChars, start.offset) {
		start.offset, _ = entityRun(firstChars, start.offset)
	}
	if s.insideImmutable(lastChars, end.offset) {
		_, end.offset = entityRun(lastChars, end.offset)
	}

	head := firstChars[:start.offset]
	tail := lastChars[end.offset:]
	merged := first.WithChars(append(append([]content.Char{}, head...), tail...))

	blocks := make([]content.Block, 0, len(s.raw.Blocks)-(end.block-start.block))
	blocks = append(blocks, s.raw.Blocks[:start.block]...)
	blocks = append(blocks, merged)
	blocks = append(blocks, s.raw.Blocks[end.block+1:]...)
	s.raw.Blocks = blocks
	s.caretAt(start)
	return true
}

// stylesAtCaret is the style set new text receives: the override when one
// is pending, otherwise the styles of the char before the caret.
func (s *Surface) stylesAtCaret() map[string]struct{} {
	if s.override != nil {
		return s.override
	}
	start, _ := s.bounds()
	if start.offset == 0 {
		return nil
	}
	chars := s.raw.Blocks[start.block].Chars()
	return chars[start.offset-1].Styles
}

func (s *Surface) insertChars(chars []content.Char) {
	start, _ := s.bounds()
	block := s.raw.Blocks[start.block]
	current := block.Chars()
	s.releaseImmutable(current, start.offset)
	updated := make([]content.Char, 0, len(current)+len(chars))
	updated = append(updated, current[:start.offset]...)
	updated = append(updated, chars...)
	updated = append(updated, current[start.offset:]...)
	s.raw.Blocks[start.block] = block.WithChars(updated)
	s.caretAt(position{block: start.block, offset: start.offset + len(chars)})
	s.override = nil
}

// InsertText types text at the caret, replacing the selection.
func (s *Surface) InsertText(text string) {
	styles := s.stylesAtCaret()
	s.deleteSelection()
	if text != "" {
		s.insertChars(content.NewChars(text, styles, -1))
	}
	s.emit()
}

// SplitBlock breaks the block at the caret, like pressing Enter. List items
// keep their type and depth; other blocks continue as unstyled.
func (s *Surface) SplitBlock() {
	s.deleteSelection()
	start, _ := s.bounds()
	block := s.raw.Blocks[start.block]
	chars := block.Chars()
	s.releaseImmutable(chars, start.offset)

	above := block.WithChars(chars[:start.offset])
	below := content.NewBlock(content.TypeUnstyled).WithChars(chars[start.offset:])
	if block.Type == content.TypeUnorderedList || block.Type == content.TypeOrderedList {
		below.Type = block.Type
		below.Depth = block.Depth
	}

	blocks := make([]content.Block, 0, len(s.raw.Blocks)+1)
	blocks = append(blocks, s.raw.Blocks[:start.block]...)
	blocks = append(blocks, above, below)
	blocks = append(blocks, s.raw.Blocks[start.block+1:]...)
	s.raw.Blocks = blocks
	s.caretAt(position{block: start.block + 1, offset: 0})
	s.override = nil
	s.emit()
}

// Backspace deletes the selection or the code point before the caret. At the
// start of a styled block it resets the block to unstyled; at the start of an
// unstyled block it merges the block into the previous one.
func (s *Surface) Backspace() {
	if s.deleteSelection() {
		s.emit()
		return
	}
	start, _ := s.bounds()
	block := s.raw.Blocks[start.block]

	if start.offset > 0 {
		chars := block.Chars()
		from := start.offset - 1
		if from > 0 && isLowSurrogate(chars[from].Unit) && isHighSurrogate(chars[from-1].Unit) {
			from--
		}
		to := start.offset
		if s.immutable(chars[from].Entity) {
			runFrom, runTo := entityRun(chars, from)
			from = runFrom
			to = max(to, runTo)
		}
		updated := append(append([]content.Char{}, chars[:from]...), chars[to:]...)
		s.raw.Blocks[start.block] = block.WithChars(updated)
		s.caretAt(position{block: start.block, offset: from})
		s.emit()
		return
	}

	if block.Type != content.TypeUnstyled {
		s.raw.Blocks[start.block].Type = content.TypeUnstyled
		s.raw.Blocks[start.block].Depth = 0
		s.emit()
		return
	}
	if start.block == 0 {
		return
	}

	prev := s.raw.Blocks[start.block-1]
	joinAt := prev.Len()
	merged := prev.WithChars(append(prev.Chars(), block.Chars()...))
	blocks := make([]content.Block, 0, len(s.raw.Blocks)-1)
	blocks = append(blocks, s.raw.Blocks[:start.block-1]...)
	blocks = append(blocks, merged)
	blocks = append(blocks, s.raw.Blocks[start.block+1:]...)
	s.raw.Blocks = blocks
	s.caretAt(position{block: start.block - 1, offset: joinAt})
	s.emit()
}

func (s *Surface) immutable(key int) bool {
	if key < 0 {
		return false
	}
	entity, ok := s.raw.EntityMap[strconv.Itoa(key)]
	return ok && entity.Mutability == content.Immutable
}

// insideImmutable reports whether offset splits an immutable entity.
func (s *Surface) insideImmutable(chars []content.Char, offset int) bool {
	if offset <= 0 || offset >= len(chars) {
		return false
	}
	key := chars[offset].Entity
	return chars[offset-1].Entity == key && s.immutable(key)
}

// releaseImmutable detaches the entity from the run around offset when
// offset splits an immutable entity. The text stays.
func (s *Surface) releaseImmutable(chars []content.Char, offset int) {
	if !s.insideImmutable(chars, offset) {
		return
	}
	from, to := entityRun(chars, offset)
	for i := from; i < to; i++ {
		chars[i].Entity = -1
	}
}

// entityRun returns the bounds of the run of chars sharing the entity at i.
func entityRun(chars []content.Char, i int) (int, int) {
	key := chars[i].Entity
	from, to := i, i+1
	for from > 0 && chars[from-1].Entity == key {
		from--
	}
	for to < len(chars) && chars[to].Entity == key {
		to++
	}
	return from, to
}

func snapOffset(block content.Block, offset int) int {
	chars := block.Chars()
	offset = clamp(offset, 0, len(chars))
	if offset > 0 && offset < len(chars) && isLowSurrogate(chars[offset].Unit) && isHighSurrogate(chars[offset-1].Unit) {
		offset--
	}
	return offset
}

func isHighSurrogate(u uint16) bool { return u >= 0xD800 && u < 0xDC00 }
func isLowSurrogate(u uint16) bool  { return u >= 0xDC00 && u < 0xE000 }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
