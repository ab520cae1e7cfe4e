package trace

import "strconv"

// Summary aggregates statistics across the traces of one store.
type Summary struct {
	TotalTraces     int
	TotalSamples    int
	FirstSampleTime float64
	LastSampleTime  float64
	SamplesPerTrace map[string]int // "<gid>_<name>" → sample count
}

// Summarize computes aggregate statistics from a store.
// Safe for nil or empty stores (returns zero-value fields).
func Summarize(s *Store) *Summary {
	summary := &Summary{
		SamplesPerTrace: make(map[string]int),
	}
	if s == nil {
		return summary
	}

	summary.TotalTraces = len(s.traces)
	first := true
	for _, tr := range s.traces {
		summary.SamplesPerTrace[key(tr)] = len(tr.Times)
		summary.TotalSamples += len(tr.Times)
		for _, t := range tr.Times {
			if first || t < summary.FirstSampleTime {
				summary.FirstSampleTime = t
			}
			if first || t > summary.LastSampleTime {
				summary.LastSampleTime = t
			}
			first = false
		}
	}
	return summary
}

func key(tr *Trace) string {
	return Name(tr.ID, tr.Name)
}

// Name builds the canonical "<gid>_<name>" key used in summaries.
func Name(id int, name string) string {
	return strconv.Itoa(id) + "_" + name
}
