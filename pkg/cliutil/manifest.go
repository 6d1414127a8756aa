// Package cliutil holds the pieces every hclust CLI binary shares: the
// run manifest / log-file writer, the success marker, a validated
// "two-int" pflag.Value (for --start/--finish R C), and small table/color
// reporting helpers.
package cliutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Manifest records a single CLI invocation's identity and timing. It
// seeds <tool>_log.txt.
type Manifest struct {
	Tool    string
	RunID   uuid.UUID
	Start   time.Time
	Flags   map[string]string
	stages  []stageTiming
	current *stageTiming
}

type stageTiming struct {
	Name     string
	Start    time.Time
	Duration time.Duration
}

// NewManifest starts a manifest for tool, stamping a fresh run id.
func NewManifest(tool string, start time.Time, flags map[string]string) *Manifest {
	return &Manifest{
		Tool:  tool,
		RunID: uuid.New(),
		Start: start,
		Flags: flags,
	}
}

// BeginStage records the start of a named stage (e.g. "norm pre-pass",
// "block (3,5)"). A stage still open is closed first, as by EndStage.
func (m *Manifest) BeginStage(name string) {
	if m.current != nil {
		m.EndStage()
	}
	m.current = &stageTiming{Name: name, Start: time.Now()}
}

// EndStage closes the currently open stage, if any.
func (m *Manifest) EndStage() {
	if m.current == nil {
		return
	}
	m.current.Duration = time.Since(m.current.Start)
	m.stages = append(m.stages, *m.current)
	m.current = nil
}

// WriteSuccessMarker writes an empty success.txt into outDir, the
// completion signal every tool-specific CLI surface promises its caller.
func WriteSuccessMarker(outDir string) error {
	return os.WriteFile(filepath.Join(outDir, "success.txt"), nil, 0o644)
}

// WriteLog renders "<tool>_log.txt": start time, resolved parameters,
// per-stage timings, and total elapsed time, the human-readable log every
// tool writes into its output folder.
func (m *Manifest) WriteLog(outDir string) error {
	m.EndStage()

	elapsed := time.Since(m.Start)

	var buf []byte
	buf = append(buf, []byte(fmt.Sprintf("tool:     %s\n", m.Tool))...)
	buf = append(buf, []byte(fmt.Sprintf("run id:   %s\n", m.RunID))...)
	buf = append(buf, []byte(fmt.Sprintf("started:  %s\n", m.Start.Format(time.RFC3339)))...)

	keys := make([]string, 0, len(m.Flags))
	for k := range m.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf = append(buf, []byte("parameters:\n")...)
	for _, k := range keys {
		buf = append(buf, []byte(fmt.Sprintf("  %-20s %s\n", k, m.Flags[k]))...)
	}

	buf = append(buf, []byte("stages:\n")...)
	for _, s := range m.stages {
		buf = append(buf, []byte(fmt.Sprintf("  %-30s %s\n", s.Name, s.Duration))...)
	}

	buf = append(buf, []byte(fmt.Sprintf("elapsed:  %s\n", elapsed))...)

	return os.WriteFile(filepath.Join(outDir, m.Tool+"_log.txt"), buf, 0o644)
}
