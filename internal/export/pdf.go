package export

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Paper sizes in inches.
var (
	PaperLetter = Paper{Width: 8.5, Height: 11}
	PaperA4     = Paper{Width: 8.27, Height: 11.69}
)

type Paper struct {
	Width  float64
	Height float64
}

// ParsePaper maps a paper name to its size. Unknown names fall back to Letter.
func ParsePaper(name string) Paper {
	if strings.EqualFold(strings.TrimSpace(name), "a4") {
		return PaperA4
	}
	return PaperLetter
}

// ChromePDF prints HTML documents with a headless Chromium.
type ChromePDF struct {
	// ExecPath overrides the browser lookup on PATH.
	ExecPath string
	Timeout  time.Duration
	Paper    Paper
}

func NewChromePDF() *ChromePDF {
	return &ChromePDF{Timeout: 30 * time.Second, Paper: PaperLetter}
}

var chromeCandidates = []string{"chromium-browser", "chromium", "google-chrome", "headless-shell"}

func (c *ChromePDF) browser() (string, error) {
	if c.ExecPath != "" {
		if path, err := exec.LookPath(c.ExecPath); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s not found", ErrPDFDependencyMissing, c.ExecPath)
	}
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
}

// Render satisfies PDFRenderer.
func (c *ChromePDF) Render(parent context.Context, html, title string) (*Result, error) {
	execPath, err := c.browser()
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	var data []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(htmlDataURL(html)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(c.Paper.Width).
				WithPaperHeight(c.Paper.Height).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}

	return &Result{
		Data:     data,
		Filename: sanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

// htmlDataURL percent-encodes html into a data URL. Spaces become %20.
func htmlDataURL(html string) string {
	return "data:text/html;charset=utf-8," + url.PathEscape(html)
}

// sanitizeFilename keeps ASCII letters, digits, hyphens and underscores,
// turning spaces into hyphens.
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		if b.Len() >= 50 {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "flashcards"
	}
	return b.String()
}
