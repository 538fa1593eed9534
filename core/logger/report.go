package logger

import (
	"encoding/json"
	"io"
	"sort"
)

// Entry is the subset of a log line the report understands.
type Entry struct {
	Level    string `json:"level"`
	Event    string `json:"event"`
	Session  string `json:"session"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	TimedOut bool   `json:"timed_out"`
	Error    string `json:"error"`
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			return err
		}

		handler(&entry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries int        `json:"log_entries"`
	Sessions   StrCounter `json:"sessions"`

	// Commands counts dispatched commands by route and name.
	Commands *PathCounter `json:"commands"`
	// Rejected counts lines that couldn't be recorded, by reason.
	Rejected StrCounter `json:"rejected"`
	// Kills counts supervised commands killed at their deadline.
	Kills StrCounter `json:"deadline_kills"`
	// Diagnostics counts errors reported to the user, by kind.
	Diagnostics StrCounter `json:"diagnostics"`
	// Purges counts purge children by outcome.
	Purges StrCounter `json:"purges"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Commands: NewPathCounter("kind", "name"),
	}
}

func (r *Report) Update(le *Entry) {
	r.LogEntries++
	if le.Session != "" {
		r.Sessions.Increment(le.Session)
	}

	switch le.Event {
	case EventCommand:
		r.Commands.Increment(le.Kind, le.Name)
	case EventReject:
		r.Rejected.Increment(le.Error)
	case EventExectl:
		if le.TimedOut {
			r.Kills.Increment(le.Name)
		}
	case EventDiagnostic:
		r.Diagnostics.Increment(le.Kind)
	case EventPurge:
		r.Purges.Increment(le.Kind)
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for the key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of distinct tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
