package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/plomlompom/plomrogue-sub000/internal/persistence/indexdb"
)

// openRuntimeIndex opens the read-model index. A nil index with a nil error
// means indexing is off; the index methods accept a nil receiver.
func openRuntimeIndex(dataDir, backend string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "none", "off", "disabled":
		return nil, nil
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index.db"))
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}
