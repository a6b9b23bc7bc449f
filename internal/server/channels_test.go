package server

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

func appendInput(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open input: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("write input: %v", err)
	}
}

func TestChannels_ReadKeepsPartialLines(t *testing.T) {
	ch, err := OpenChannels(t.TempDir())
	if err != nil {
		t.Fatalf("OpenChannels: %v", err)
	}
	defer ch.Close()

	appendInput(t, ch.InPath, "PING\nTT_")
	lines, err := ch.ReadLines()
	if err != nil || len(lines) != 1 || lines[0] != "PING" {
		t.Fatalf("first read: got=%q err=%v", lines, err)
	}
	if lines, _ := ch.ReadLines(); len(lines) != 0 {
		t.Fatalf("partial line returned early: %q", lines)
	}
	appendInput(t, ch.InPath, "ID 0\n")
	lines, err = ch.ReadLines()
	if err != nil || len(lines) != 1 || lines[0] != "TT_ID 0" {
		t.Fatalf("second read: got=%q err=%v", lines, err)
	}
}

func TestChannels_Liveness(t *testing.T) {
	ch, err := OpenChannels(t.TempDir())
	if err != nil {
		t.Fatalf("OpenChannels: %v", err)
	}
	defer ch.Close()

	raw, err := os.ReadFile(ch.OutPath)
	if err != nil {
		t.Fatalf("read out: %v", err)
	}
	if first := strings.SplitN(string(raw), "\n", 2)[0]; first != ch.Identity() {
		t.Fatalf("identity line: got=%q want=%q", first, ch.Identity())
	}
	if err := ch.CheckLiveness(); err != nil {
		t.Fatalf("CheckLiveness: %v", err)
	}
	if err := os.WriteFile(ch.OutPath, []byte("someone else 1\n"), 0o644); err != nil {
		t.Fatalf("overwrite out: %v", err)
	}
	if err := ch.CheckLiveness(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("got %v want ErrSuperseded", err)
	}
}

func TestChannels_WorldstateAndCleanup(t *testing.T) {
	ch, err := OpenChannels(t.TempDir())
	if err != nil {
		t.Fatalf("OpenChannels: %v", err)
	}
	if err := ch.Publish(3, "3\n5\n"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	raw, err := os.ReadFile(ch.WorldstatePath)
	if err != nil || string(raw) != "3\n5\n" {
		t.Fatalf("worldstate: got=%q err=%v", raw, err)
	}
	if err := ch.Withdraw(); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if _, err := os.Stat(ch.WorldstatePath); !os.IsNotExist(err) {
		t.Fatalf("worldstate still present: %v", err)
	}
	if err := ch.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for _, p := range []string{ch.InPath, ch.OutPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s still present: %v", p, err)
		}
	}
}

func TestRun_ObeysUntilQuit(t *testing.T) {
	ch, err := OpenChannels(t.TempDir())
	if err != nil {
		t.Fatalf("OpenChannels: %v", err)
	}
	defer ch.Close()
	w := world.New(world.Config{}, world.Hooks{MapGen: flatGen{}})
	e := New(w, Options{Out: ch, Exporter: ch, Logger: log.New(io.Discard, "", 0), Liveness: ch.CheckLiveness, SaveInterval: time.Hour})

	appendInput(t, ch.InPath, "PING\nTT_ID 0\nQUIT\n")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, e, ch, time.Millisecond, 10*time.Millisecond); !errors.Is(err, ErrQuit) {
		t.Fatalf("Run: got %v want ErrQuit", err)
	}
	raw, _ := os.ReadFile(ch.OutPath)
	if !strings.Contains(string(raw), "\nPONG\n") {
		t.Fatalf("out: %q", raw)
	}
	if w.Type(0) == nil {
		t.Fatalf("TT_ID line not obeyed")
	}
}

func TestRun_StopsWhenSuperseded(t *testing.T) {
	ch, err := OpenChannels(t.TempDir())
	if err != nil {
		t.Fatalf("OpenChannels: %v", err)
	}
	defer ch.Close()
	w := world.New(world.Config{}, world.Hooks{})
	e := New(w, Options{Out: ch, Logger: log.New(io.Discard, "", 0), SaveInterval: time.Hour})

	if err := os.WriteFile(ch.OutPath, []byte("rival\n"), 0o644); err != nil {
		t.Fatalf("overwrite out: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, e, ch, time.Millisecond, 5*time.Millisecond); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Run: got %v want ErrSuperseded", err)
	}
}

// slowSource hands out one line after a read slower than the poll interval
// and then stays empty, noting when each read happened.
type slowSource struct {
	delay time.Duration
	reads []time.Time
}

func (s *slowSource) ReadLines() ([]string, error) {
	s.reads = append(s.reads, time.Now())
	if len(s.reads) == 1 {
		time.Sleep(s.delay)
		return []string{"PING"}, nil
	}
	return nil, nil
}

func (s *slowSource) CheckLiveness() error { return nil }

func TestRun_EmptyReadsWaitFullPoll(t *testing.T) {
	const poll = 50 * time.Millisecond
	e := New(world.New(world.Config{}, world.Hooks{}), Options{Logger: log.New(io.Discard, "", 0), SaveInterval: time.Hour})
	src := &slowSource{delay: 3 * poll}

	ctx, cancel := context.WithTimeout(context.Background(), 8*poll)
	defer cancel()
	if err := Run(ctx, e, src, poll, time.Hour); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: got %v want deadline", err)
	}
	if len(src.reads) < 3 {
		t.Fatalf("reads: got=%d want at least 3", len(src.reads))
	}
	for i := 2; i < len(src.reads); i++ {
		if gap := src.reads[i].Sub(src.reads[i-1]); gap < poll*4/5 {
			t.Fatalf("read %d followed read %d after %v, want about %v", i, i-1, gap, poll)
		}
	}
}
