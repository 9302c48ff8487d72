package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cramkle/app/internal/autosave"
	"cramkle/app/internal/content"
	"cramkle/app/internal/editor"
	"cramkle/app/internal/notify"
	"cramkle/app/internal/workspace"
)

const quitTimeout = 15 * time.Second

var errQuit = errors.New("quit")

var inlineCommands = map[string]string{
	":b":    content.StyleBold,
	":i":    content.StyleItalic,
	":u":    content.StyleUnderline,
	":s":    content.StyleStrikethrough,
	":mono": content.StyleCode,
}

var blockCommands = map[string]string{
	":h1":    content.TypeHeaderOne,
	":h2":    content.TypeHeaderTwo,
	":h3":    content.TypeHeaderThree,
	":h4":    content.TypeHeaderFour,
	":h5":    content.TypeHeaderFive,
	":h6":    content.TypeHeaderSix,
	":quote": content.TypeBlockquote,
	":ul":    content.TypeUnorderedList,
	":ol":    content.TypeOrderedList,
	":code":  content.TypeCodeBlock,
}

var alignCommands = map[string]editor.Alignment{
	":left":   editor.AlignLeft,
	":center": editor.AlignCenter,
	":right":  editor.AlignRight,
}

const help = `commands:
  :b :i :u :s :mono          toggle inline style
  :h1..:h6 :quote :ul :ol :code  toggle block type
  :left :center :right       toggle alignment
  :mention <field>           insert a mention
  :nl  new block   :bs  backspace   :all  select all   :end  caret to end
  :show  print content   :retry  resend failed save   :q  quit
  ::text types text starting with ':'`

// session drives one editor of a workspace from line input.
type session struct {
	out    io.Writer
	queue  *notify.Queue
	remote *notify.RedisQueue

	editor *workspace.Editor

	mu       sync.Mutex
	inflight *content.Raw
	saved    content.Raw
	failed   bool
	settled  chan struct{}
}

func newSession(out io.Writer, queue *notify.Queue, remote *notify.RedisQueue) *session {
	return &session{out: out, queue: queue, remote: remote, settled: make(chan struct{}, 1)}
}

// notifier delivers to the local queue and, when configured, to Redis.
func (s *session) notifier() notify.Notifier {
	return notify.NotifierFunc(func(n notify.Notification) {
		n = notify.Stamp(n)
		s.queue.Notify(n)
		if s.remote != nil {
			s.remote.Notify(n)
		}
	})
}

// observe runs under the controller lock: it only records and prints.
func (s *session) observe(o autosave.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil || o.Target != s.editor.Target {
		return
	}
	switch o.State {
	case autosave.StateSaving:
		s.inflight = o.Snapshot
	case autosave.StateSaved:
		if s.inflight != nil {
			s.saved = *s.inflight
		}
		s.failed = false
		s.signal()
	case autosave.StateFailed:
		s.failed = true
		s.signal()
	}
	fmt.Fprintf(s.out, "[%s]\n", o.State)
}

func (s *session) signal() {
	select {
	case s.settled <- struct{}{}:
	default:
	}
}

// attach picks the editor named by slot, a field name or a template side,
// and moves the caret to the end of its content.
func (s *session) attach(ws *workspace.Workspace, slot string) error {
	var chosen *workspace.Editor
	for _, e := range ws.Editors() {
		if slot == "" || strings.EqualFold(e.Label, slot) || e.Target.Slot == autosave.Slot("template-"+slot) {
			chosen = e
			break
		}
	}
	if chosen == nil {
		return fmt.Errorf("no editor named %q", slot)
	}

	s.mu.Lock()
	s.editor = chosen
	s.saved = chosen.Surface.Content()
	s.mu.Unlock()

	moveToEnd(chosen.Surface)
	s.printf("%s: %s (%s)\n", ws.Title, chosen.Label, chosen.Target)
	s.printContent()
	return nil
}

func moveToEnd(surface *editor.Surface) {
	raw := surface.Content()
	last := raw.Blocks[len(raw.Blocks)-1]
	_ = surface.Select(editor.Caret(last.Key, last.Len()))
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		done <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return s.quit(ctx)
		case n, ok := <-s.queue.C():
			if ok {
				s.printNotification(n)
			}
		case err := <-done:
			if err != nil {
				return err
			}
			return s.quit(ctx)
		case line := <-lines:
			if err := s.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return s.quit(ctx)
				}
				s.printf("error: %v\n", err)
			}
		}
	}
}

// exec applies one input line to the editor.
func (s *session) exec(ctx context.Context, line string) error {
	surface := s.editor.Surface

	if !strings.HasPrefix(line, ":") {
		surface.InsertText(line)
		return nil
	}
	if strings.HasPrefix(line, "::") {
		surface.InsertText(line[1:])
		return nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	if style, ok := inlineCommands[command]; ok {
		return surface.ToggleInlineStyle(style)
	}
	if blockType, ok := blockCommands[command]; ok {
		return surface.ToggleBlockType(blockType)
	}
	if alignment, ok := alignCommands[command]; ok {
		return surface.ToggleAlignment(alignment)
	}

	switch command {
	case ":q":
		return errQuit
	case ":mention":
		return s.mention(arg)
	case ":nl":
		surface.SplitBlock()
	case ":bs":
		surface.Backspace()
	case ":all":
		surface.SelectAll()
	case ":end":
		moveToEnd(surface)
	case ":show":
		s.printContent()
	case ":retry":
		s.retry(ctx)
	case ":help":
		s.printf("%s\n", help)
	default:
		return fmt.Errorf("unknown command %s, type :help", command)
	}
	return nil
}

// mention inserts the mentionable whose id or name is arg.
func (s *session) mention(arg string) error {
	surface := s.editor.Surface
	for _, m := range surface.Mentionables() {
		if m.ID == arg || strings.EqualFold(m.Name, arg) {
			return surface.InsertMention(m.ID)
		}
	}
	return fmt.Errorf("%w: %s", editor.ErrUnknownMention, arg)
}

func (s *session) retry(ctx context.Context) {
	if s.remote != nil {
		s.dismissRemote(ctx)
	}
	if !s.editor.Controller.Retry() {
		s.printf("nothing to retry\n")
	}
}

// dismissRemote drops the Redis notifications of the attached target so
// other surfaces stop offering a retry.
func (s *session) dismissRemote(ctx context.Context) {
	pending, err := s.remote.Pending(ctx)
	if err != nil {
		s.printf("error: %v\n", err)
		return
	}
	for _, n := range pending {
		if n.Target == s.editor.Target.String() {
			_ = s.remote.Dismiss(ctx, n.ID)
		}
	}
}

// quit waits for the last edit to be saved, or for a failure, before
// returning.
func (s *session) quit(ctx context.Context) error {
	deadline := time.NewTimer(quitTimeout)
	defer deadline.Stop()
	for {
		settled, failed := s.state()
		if settled {
			return nil
		}
		if failed {
			s.printf("changes were not saved\n")
			return nil
		}
		select {
		case <-s.settled:
		case <-deadline.C:
			s.printf("timed out waiting for save\n")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *session) state() (settled, failed bool) {
	current := s.editor.Surface.Content()
	s.mu.Lock()
	defer s.mu.Unlock()
	return content.Equal(current, s.saved), s.failed
}

func (s *session) printContent() {
	raw := s.editor.Surface.Content()
	s.printf("---\n%s\n---\n", raw.PlainText())
	for _, m := range editor.FindMentions(raw) {
		s.printf("@%s (%s)\n", m.Name, m.ID)
	}
	s.printf("status: %s\n", s.editor.Controller.Outcome().State)
}

func (s *session) printNotification(n notify.Notification) {
	if n.ActionText != "" {
		s.printf("! %s (%s: type :retry)\n", n.Message, n.ActionText)
		return
	}
	s.printf("! %s\n", n.Message)
}

func (s *session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
