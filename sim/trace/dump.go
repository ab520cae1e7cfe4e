package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Dump writes one JSON file per trace into dir, named
// trace_<gid>_<name>.json. Each file carries the trace identity and the time
// series as two equal-length ordered arrays:
//
//	{"name": ..., "units": ..., "id": ..., "data": {"time": [...], "<name>": [...]}}
//
// An empty dir writes into the current working directory.
func (s *Store) Dump(dir string) error {
	for _, tr := range s.traces {
		path := filepath.Join(dir, fmt.Sprintf("trace_%d_%s.json", tr.ID, tr.Name))
		if err := dumpOne(tr, path); err != nil {
			return err
		}
	}
	return nil
}

func dumpOne(tr *Trace, path string) error {
	times := tr.Times
	if times == nil {
		times = []float64{}
	}
	vals := tr.Vals
	if vals == nil {
		vals = []float64{}
	}
	rep := map[string]any{
		"name":  tr.Name,
		"units": tr.Units,
		"id":    tr.ID,
		"data": map[string]any{
			"time":  times,
			tr.Name: vals,
		},
	}
	buf, err := json.MarshalIndent(rep, "", " ")
	if err != nil {
		return fmt.Errorf("trace %q: %w", tr.Name, err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("trace %q: %w", tr.Name, err)
	}
	return nil
}
