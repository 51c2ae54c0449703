package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"xhsclient/pkg/xhs"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// PageProgress draws a single refreshing line while a collector pages
// through a stream. Its Update method is an xhs page callback.
type PageProgress struct {
	mu        sync.Mutex
	w         io.Writer
	st        styles
	stream    string
	target    int
	collected int
	pages     int
	startTime time.Time
	enabled   bool
}

// Progress returns a tracker for up to target items. It draws nothing in
// quiet or JSON mode.
func (p *Printer) Progress(stream string, target int) *PageProgress {
	return &PageProgress{
		w:         p.errW,
		st:        p.st,
		stream:    stream,
		target:    target,
		startTime: time.Now(),
		enabled:   !p.quiet && !p.json,
	}
}

// Resume seeds the counters from a checkpoint
func (pp *PageProgress) Resume(collected, pages int) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.collected = collected
	pp.pages = pages
}

// Update records a fetched page
func (pp *PageProgress) Update(info xhs.PageInfo) error {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.pages++
	pp.collected += info.Items
	if pp.enabled {
		fmt.Fprintf(pp.w, "\r%s %s page %d  %s  %.1f/min",
			pp.st.success.Render("[FETCHING]"),
			pp.stream, pp.pages, pp.bar(), pp.rate())
	}
	return nil
}

// Finish ends the progress line
func (pp *PageProgress) Finish() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.enabled && pp.pages > 0 {
		fmt.Fprintf(pp.w, "\n%s %d items in %d pages (%s)\n",
			pp.st.success.Render("[DONE]"), pp.collected, pp.pages,
			time.Since(pp.startTime).Round(time.Second))
	}
}

// Collected returns the items counted so far
func (pp *PageProgress) Collected() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.collected
}

func (pp *PageProgress) bar() string {
	if pp.target <= 0 {
		return fmt.Sprintf("%d", pp.collected)
	}
	progress := float64(pp.collected) / float64(pp.target)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * barWidth)
	bar := pp.st.barFull.Render(strings.Repeat(ProgressBar, filled)) +
		pp.st.barEmpty.Render(strings.Repeat(ProgressEmpty, barWidth-filled))
	return fmt.Sprintf("[%s] %d/%d", bar, pp.collected, pp.target)
}

func (pp *PageProgress) rate() float64 {
	elapsed := time.Since(pp.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(pp.collected) / elapsed
}
