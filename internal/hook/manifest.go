package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// maxTimeoutSeconds is the largest timeout a time.Duration can hold.
var maxTimeoutSeconds = float64(math.MaxInt64) / float64(time.Second)

// manifestFile mirrors hook.json on disk.
type manifestFile struct {
	Version *int        `json:"version"`
	Hooks   []hookEntry `json:"hooks"`
}

type hookEntry struct {
	ID              string   `json:"id"`
	Event           string   `json:"event"`
	Command         []string `json:"command"`
	Timeout         *float64 `json:"timeout,omitempty"`
	ContinueOnError bool     `json:"continue_on_error,omitempty"`
}

// LoadManifest reads and validates a manifest file without any caching.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Msg: "reading manifest", Err: err}
	}
	return ParseManifest(path, data)
}

// ParseManifest decodes and validates manifest JSON. path is used for errors.
// Unknown fields are rejected so typos such as "continue_on_eror" surface.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var mf manifestFile
	if err := dec.Decode(&mf); err != nil {
		return nil, &ManifestError{Path: path, Msg: "invalid manifest JSON", Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &ManifestError{Path: path, Msg: "unexpected data after the manifest object"}
	}

	m, err := mf.validate()
	if err != nil {
		return nil, &ManifestError{Path: path, Msg: err.Error()}
	}
	m.Path = path
	return m, nil
}

func (mf manifestFile) validate() (*Manifest, error) {
	if mf.Version == nil {
		return nil, fmt.Errorf("version is required")
	}
	if *mf.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported version %d (expected %d)", *mf.Version, ManifestVersion)
	}

	m := &Manifest{Version: *mf.Version, Hooks: make([]Definition, 0, len(mf.Hooks))}
	seen := make(map[string]int, len(mf.Hooks))

	for i, h := range mf.Hooks {
		if h.ID == "" {
			return nil, fmt.Errorf("hooks[%d].id is required", i)
		}
		if first, dup := seen[h.ID]; dup {
			return nil, fmt.Errorf("hooks[%d].id %q duplicates hooks[%d]", i, h.ID, first)
		}
		seen[h.ID] = i

		if h.Event == "" {
			return nil, fmt.Errorf("hooks[%d].event is required", i)
		}
		event := Event(h.Event)
		if !event.Valid() {
			return nil, fmt.Errorf("hooks[%d].event %q is not a known event", i, h.Event)
		}

		if len(h.Command) == 0 {
			return nil, fmt.Errorf("hooks[%d].command is required", i)
		}
		if h.Command[0] == "" {
			return nil, fmt.Errorf("hooks[%d].command[0] must name a program", i)
		}

		timeout := DefaultTimeout
		if h.Timeout != nil {
			secs := *h.Timeout
			if secs <= 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
				return nil, fmt.Errorf("hooks[%d].timeout must be a positive number of seconds", i)
			}
			if secs >= maxTimeoutSeconds {
				return nil, fmt.Errorf("hooks[%d].timeout %g is out of range (max %.0f seconds)", i, secs, maxTimeoutSeconds)
			}
			timeout = time.Duration(secs * float64(time.Second))
			if timeout < time.Nanosecond {
				return nil, fmt.Errorf("hooks[%d].timeout %g is below one nanosecond", i, secs)
			}
		}

		m.Hooks = append(m.Hooks, Definition{
			ID:              h.ID,
			Event:           event,
			Command:         append([]string(nil), h.Command...),
			Timeout:         timeout,
			ContinueOnError: h.ContinueOnError,
		})
	}
	return m, nil
}

// encodeManifest renders a manifest in the on-disk format.
func encodeManifest(m *Manifest) ([]byte, error) {
	version := m.Version
	mf := manifestFile{Version: &version, Hooks: make([]hookEntry, 0, len(m.Hooks))}
	for _, d := range m.Hooks {
		secs := d.Timeout.Seconds()
		mf.Hooks = append(mf.Hooks, hookEntry{
			ID:              d.ID,
			Event:           string(d.Event),
			Command:         d.Command,
			Timeout:         &secs,
			ContinueOnError: d.ContinueOnError,
		})
	}
	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return append(data, '\n'), nil
}
