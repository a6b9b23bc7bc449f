package main

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/plomlompom/plomrogue-sub000/internal/persistence/archive"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/indexdb"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/snapshot"
	"github.com/plomlompom/plomrogue-sub000/internal/server"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

// diskSaver appends the record log, replaces the save and indexes both.
// Every archiveEvery-th save is also archived.
type diskSaver struct {
	dataDir    string
	savePath   string
	recordPath string

	w            *world.World
	idx          *indexdb.SQLiteIndex
	archiveEvery int
	logger       *log.Logger

	saves int
}

func newDiskSaver(dataDir string, w *world.World, idx *indexdb.SQLiteIndex, archiveEvery int, logger *log.Logger) *diskSaver {
	return &diskSaver{
		dataDir:      dataDir,
		savePath:     filepath.Join(dataDir, "save"),
		recordPath:   filepath.Join(dataDir, "record_save"),
		w:            w,
		idx:          idx,
		archiveEvery: archiveEvery,
		logger:       logger,
	}
}

func (s *diskSaver) Save(snap, record []string) error {
	if err := snapshot.AppendLines(s.recordPath, record); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := snapshot.WriteLines(s.savePath, snap); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	s.saves++

	turn, seed, actors := s.w.Turn(), s.w.Rand().Seed(), len(s.w.Actors())
	s.idx.RecordSnapshot(indexdb.SnapshotRow{Turn: turn, Path: s.savePath, Seed: seed, Actors: actors, Lines: len(snap)})
	if s.archiveEvery <= 0 || s.saves%s.archiveEvery != 0 {
		return nil
	}
	path, err := archive.ArchiveSnapshot(s.dataDir, s.savePath, archive.Meta{Turn: turn, Seed: seed, Actors: actors})
	if err != nil {
		s.logger.Printf("archive snapshot: %v", err)
		return nil
	}
	s.idx.RecordArchive(turn, path)
	return nil
}

var _ server.Saver = (*diskSaver)(nil)

// multiTurnLogger writes each turn to both sinks. A failure is logged when it
// starts and again only after the sinks have recovered.
type multiTurnLogger struct {
	a      world.TurnLogger
	b      world.TurnLogger
	logger *log.Logger

	failing bool
}

func (m *multiTurnLogger) WriteTurn(entry world.TurnLogEntry) error {
	var errs []error
	for _, l := range []world.TurnLogger{m.a, m.b} {
		if l == nil {
			continue
		}
		if err := l.WriteTurn(entry); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil && !m.failing {
		m.logger.Printf("turn log: turn %d: %v", entry.Turn, err)
	}
	m.failing = err != nil
	return err
}

type multiExporter []server.Exporter

func (m multiExporter) Publish(turn int, text string) error {
	for _, x := range m {
		if err := x.Publish(turn, text); err != nil {
			return err
		}
	}
	return nil
}

func (m multiExporter) Withdraw() error {
	for _, x := range m {
		if err := x.Withdraw(); err != nil {
			return err
		}
	}
	return nil
}
