package main

import (
	"fmt"
	"io"

	"github.com/plomlompom/plomrogue-sub000/internal/persistence/indexdb"
	"github.com/plomlompom/plomrogue-sub000/internal/transport/observer"
)

// writeMetrics renders a minimal Prometheus exposition. The world itself is
// owned by the command loop, so only the observer's view of it is reported.
func writeMetrics(w io.Writer, obs *observer.Server, idx *indexdb.SQLiteIndex) {
	st := obs.Status()
	active := 0
	if st.Active {
		active = 1
	}
	fmt.Fprintf(w, "# HELP rogue_world_turn Turn of the last published world state.\n")
	fmt.Fprintf(w, "# TYPE rogue_world_turn gauge\n")
	fmt.Fprintf(w, "rogue_world_turn %d\n", st.Turn)

	fmt.Fprintf(w, "# HELP rogue_world_active Whether a world state is currently published.\n")
	fmt.Fprintf(w, "# TYPE rogue_world_active gauge\n")
	fmt.Fprintf(w, "rogue_world_active %d\n", active)

	fmt.Fprintf(w, "# HELP rogue_observers Connected observer sessions.\n")
	fmt.Fprintf(w, "# TYPE rogue_observers gauge\n")
	fmt.Fprintf(w, "rogue_observers %d\n", st.Observers)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(w, "# HELP rogue_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE rogue_index_queue_depth gauge\n")
	fmt.Fprintf(w, "rogue_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(w, "# HELP rogue_index_dropped_total Index writes dropped under backpressure.\n")
	fmt.Fprintf(w, "# TYPE rogue_index_dropped_total counter\n")
	fmt.Fprintf(w, "rogue_index_dropped_total{kind=%q} %d\n", "turn", s.DropTurnTotal)
	fmt.Fprintf(w, "rogue_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
	fmt.Fprintf(w, "rogue_index_dropped_total{kind=%q} %d\n", "archive", s.DropArchiveTotal)
}
