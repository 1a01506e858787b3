package daemon

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/multiverse-display/billboard/internal/config"
	"github.com/multiverse-display/billboard/internal/display"
)

type fakeLoader struct {
	strips []*image.RGBA
	err    error
}

func (l *fakeLoader) LoadStrips(ctx context.Context, source string) ([]*image.RGBA, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.strips, nil
}

type sendRecord struct {
	host    string
	command string
	img     *image.RGBA
}

type fakeSender struct {
	mu    sync.Mutex
	sends []sendRecord
	ch    chan sendRecord
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan sendRecord, 64)}
}

func (s *fakeSender) Send(ctx context.Context, host, command string, img *image.RGBA) error {
	rec := sendRecord{host: host, command: command, img: img}
	s.mu.Lock()
	s.sends = append(s.sends, rec)
	s.mu.Unlock()
	s.ch <- rec
	return s.err
}

// waitSends receives n sends or fails the test.
func waitSends(t *testing.T, s *fakeSender, n int) []sendRecord {
	t.Helper()
	recs := make([]sendRecord, 0, n)
	for i := 0; i < n; i++ {
		select {
		case rec := <-s.ch:
			recs = append(recs, rec)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for send %d of %d", i+1, n)
		}
	}
	return recs
}

func testStrips() []*image.RGBA {
	strips := make([]*image.RGBA, display.StripCount)
	for i := range strips {
		strips[i] = image.NewRGBA(image.Rect(0, 0, display.StripWidth, display.StripHeight))
	}
	return strips
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_CyclesSourcesDuringActiveWindow(t *testing.T) {
	// Noon, well inside the default window.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	loader := &fakeLoader{strips: testStrips()}
	sender := newFakeSender()

	cfg := &config.Config{
		ActiveStart: "08:00",
		ActiveEnd:   "23:00",
		Targets:     []string{"panel-a", "panel-b"},
		Sources:     []config.Source{{Path: "poster.png", DisplayTime: 10 * time.Second}},
	}

	d, err := New(cfg, loader, sender, clock, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// One send per target for the first pass.
	recs := waitSends(t, sender, 2)
	hosts := map[string]bool{}
	for _, rec := range recs {
		hosts[rec.host] = true
		if rec.command != display.CmdShowData {
			t.Errorf("command = %q", rec.command)
		}
	}
	if !hosts["panel-a"] || !hosts["panel-b"] {
		t.Errorf("sends went to %v", hosts)
	}

	// After the display time elapses the source is shown again.
	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)
	waitSends(t, sender, 2)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_BlanksOutsideActiveWindow(t *testing.T) {
	// Three in the morning.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC))
	loader := &fakeLoader{strips: testStrips()}
	sender := newFakeSender()

	cfg := &config.Config{
		ActiveStart: "08:00",
		ActiveEnd:   "23:00",
		Targets:     []string{"panel-a", "panel-b"},
		Sources:     []config.Source{{Path: "poster.png", DisplayTime: 10 * time.Second}},
	}

	d, err := New(cfg, loader, sender, clock, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	recs := waitSends(t, sender, 2)
	for _, rec := range recs {
		if got := rec.img.RGBAAt(10, 10); got != (color.RGBA{A: 255}) {
			t.Errorf("expected black strip, pixel = %v", got)
		}
	}

	// Blanking repeats each interval while the window is closed.
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitSends(t, sender, 2)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_SkipsFailingSourceWithoutSpinning(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	loader := &fakeLoader{err: errors.New("corrupt image")}
	sender := newFakeSender()

	cfg := &config.Config{
		ActiveStart: "08:00",
		ActiveEnd:   "23:00",
		Targets:     []string{"panel-a"},
		Sources:     []config.Source{{Path: "broken.png", DisplayTime: 10 * time.Second}},
	}

	d, err := New(cfg, loader, sender, clock, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// The loop must settle into a timed wait rather than retrying hot.
	clock.BlockUntil(1)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sends) != 0 {
		t.Errorf("sends happened despite failing loader: %v", sender.sends)
	}
}

func TestShowOnce(t *testing.T) {
	loader := &fakeLoader{strips: testStrips()}
	sender := newFakeSender()

	cfg := &config.Config{
		ActiveStart: "08:00",
		ActiveEnd:   "23:00",
		Targets:     []string{"panel-a", "panel-b", "panel-c"},
	}

	d, err := New(cfg, loader, sender, clockwork.NewFakeClock(), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.ShowOnce(context.Background(), "poster.png"); err != nil {
		t.Fatalf("ShowOnce: %v", err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sends) != 3 {
		t.Errorf("expected 3 sends, got %d", len(sender.sends))
	}
}

func TestShowOnce_SendErrorPropagates(t *testing.T) {
	loader := &fakeLoader{strips: testStrips()}
	sender := newFakeSender()
	sender.err = errors.New("controller offline")

	cfg := &config.Config{
		ActiveStart: "08:00",
		ActiveEnd:   "23:00",
		Targets:     []string{"panel-a"},
	}

	d, err := New(cfg, loader, sender, clockwork.NewFakeClock(), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.ShowOnce(context.Background(), "poster.png"); err == nil {
		t.Fatal("expected send error")
	}
}
