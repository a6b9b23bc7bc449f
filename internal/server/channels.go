package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plomlompom/plomrogue-sub000/internal/persistence/snapshot"
)

// Channels are the file-based IO channels of one server process: commands
// are appended to in, replies land in out, and worldstate holds the latest
// world-state export.
type Channels struct {
	InPath         string
	OutPath        string
	WorldstatePath string

	identity string
	in       *os.File
	out      *os.File
	partial  []byte
}

// OpenChannels creates dir/in empty and dir/out with a fresh process identity
// on its first line.
func OpenChannels(dir string) (*Channels, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	c := &Channels{
		InPath:         filepath.Join(dir, "in"),
		OutPath:        filepath.Join(dir, "out"),
		WorldstatePath: filepath.Join(dir, "worldstate"),
		identity:       uuid.NewString() + " " + strconv.FormatInt(time.Now().UnixNano(), 10),
	}
	if err := os.WriteFile(c.InPath, nil, 0o644); err != nil {
		return nil, fmt.Errorf("create input channel: %w", err)
	}
	in, err := os.Open(c.InPath)
	if err != nil {
		return nil, fmt.Errorf("open input channel: %w", err)
	}
	out, err := os.OpenFile(c.OutPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("open output channel: %w", err)
	}
	c.in, c.out = in, out
	if err := c.Send(c.identity); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Channels) Identity() string { return c.identity }

// ReadLines returns the complete lines appended since the last call. A
// trailing partial line is kept for the next call.
func (c *Channels) ReadLines() ([]string, error) {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.in.Read(buf)
		c.partial = append(c.partial, buf[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input channel: %w", err)
		}
	}
	i := strings.LastIndexByte(string(c.partial), '\n')
	if i < 0 {
		return nil, nil
	}
	lines := strings.Split(string(c.partial[:i]), "\n")
	c.partial = append(c.partial[:0], c.partial[i+1:]...)
	return lines, nil
}

func (c *Channels) Send(line string) error {
	if _, err := c.out.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write output channel: %w", err)
	}
	return nil
}

// CheckLiveness fails with ErrSuperseded once the output channel no longer
// starts with this process's identity.
func (c *Channels) CheckLiveness() error {
	f, err := os.Open(c.OutPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSuperseded, err)
	}
	defer f.Close()
	first, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrSuperseded, err)
	}
	if strings.TrimSuffix(first, "\n") != c.identity {
		return ErrSuperseded
	}
	return nil
}

// Publish replaces the world-state file atomically.
func (c *Channels) Publish(_ int, text string) error {
	return snapshot.WriteLines(c.WorldstatePath, strings.Split(strings.TrimSuffix(text, "\n"), "\n"))
}

// Withdraw removes the world-state file.
func (c *Channels) Withdraw() error {
	if err := os.Remove(c.WorldstatePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Channels) Close() error {
	var first error
	for _, f := range []*os.File{c.in, c.out} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Cleanup closes and removes the transient channel files. Snapshot and
// record files live elsewhere and are left alone.
func (c *Channels) Cleanup() error {
	_ = c.Close()
	var first error
	for _, p := range []string{c.InPath, c.OutPath, c.WorldstatePath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	return first
}
