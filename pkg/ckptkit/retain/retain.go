// Package retain decides where each checkpoint is written and which
// prior checkpoints are removed to honor a top-K retention policy.
//
// The manager keeps a process-local ledger of (score, path) entries and
// the Best/Last pointers derived from it. Concurrent runs writing into
// the same directory get best-effort collision avoidance through -vN
// suffixing but no consistency guarantees.
package retain

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/randalmurphal/ckptkit/pkg/ckptkit/backend"
	ckpterrors "github.com/randalmurphal/ckptkit/pkg/ckptkit/errors"
)

// Mode selects which end of the score range counts as "best".
type Mode int

const (
	// ModeMin treats lower scores as better (losses).
	ModeMin Mode = iota
	// ModeMax treats higher scores as better (accuracies).
	ModeMax
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMin:
		return "min"
	case ModeMax:
		return "max"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string ("min" or "max") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "min":
		return ModeMin, nil
	case "max":
		return ModeMax, nil
	default:
		return ModeMin, &ckpterrors.ConfigError{Field: "mode", Message: "must be min or max"}
	}
}

// Retention limits for Policy.TopK.
const (
	// TopKAll retains every checkpoint.
	TopKAll = -1
	// TopKNone retains no checkpoint via top-K; every save is
	// immediately eligible for removal. Last tracking is unaffected.
	TopKNone = 0
)

// Policy configures naming and retention for one run.
type Policy struct {
	// Dir is the directory checkpoint files are written under.
	Dir string

	// Monitor names the quantity scores are taken from. Informational;
	// the manager only compares the float scores it is handed.
	Monitor string

	// Mode selects min-is-best or max-is-best comparison.
	Mode Mode

	// TopK is the number of best checkpoints to retain.
	// Use TopKAll (-1) for unbounded and TopKNone (0) for none.
	TopK int

	// SaveLast maintains a fixed-name "last" checkpoint alongside the
	// top-K files.
	SaveLast bool

	// Template is the filename template, rendered with {key} tokens.
	Template string

	// Ext is the checkpoint file extension, including the dot.
	Ext string
}

// DefaultTemplate names checkpoints after the iteration counters.
const DefaultTemplate = "epoch={epoch}-step={step}"

// DefaultExt is the default checkpoint file extension.
const DefaultExt = ".ckpt"

// DefaultPolicy returns the policy used when only a directory is
// configured: keep the single best checkpoint plus counter-based names.
func DefaultPolicy(dir string) Policy {
	return Policy{
		Dir:      dir,
		Mode:     ModeMin,
		TopK:     1,
		Template: DefaultTemplate,
		Ext:      DefaultExt,
	}
}

// entry is one ledger row.
type entry struct {
	score float64
	path  string
}

// Result reports what one checkpoint event did, for downstream
// bookkeeping by the caller driving the run.
type Result struct {
	// Path is where the checkpoint was written.
	Path string
	// LastPath is the current "last" checkpoint path, when enabled.
	LastPath string
	// Removed lists the paths deleted by this event.
	Removed []string
}

// Manager computes destination paths and enforces retention.
// Safe for concurrent use, though a checkpoint directory is expected to
// have a single writing run.
type Manager struct {
	policy Policy
	io     backend.Interface

	mu             sync.Mutex
	ledger         []entry         // sorted best-first
	owned          map[string]bool // paths written by this run
	bestPath       string
	lastPath       string
	lastDone       bool   // last filename resolved and written for this run
	lastSuperseded string // prior run's last file pending removal
}

// NewManager validates the policy and creates a retention manager
// writing through io.
func NewManager(policy Policy, io backend.Interface) (*Manager, error) {
	if policy.Dir == "" {
		return nil, &ckpterrors.ConfigError{Field: "dir", Message: "checkpoint directory is required"}
	}
	if policy.TopK < TopKAll {
		return nil, &ckpterrors.ConfigError{Field: "save_top_k", Message: "must be -1, 0, or positive"}
	}
	if policy.Mode != ModeMin && policy.Mode != ModeMax {
		return nil, &ckpterrors.ConfigError{Field: "mode", Message: "must be min or max"}
	}
	if policy.Template == "" {
		policy.Template = DefaultTemplate
	}
	if policy.Ext == "" {
		policy.Ext = DefaultExt
	}
	return &Manager{
		policy: policy,
		io:     io,
		owned:  make(map[string]bool),
	}, nil
}

// OnCheckpoint handles one checkpoint event: it resolves the versioned
// destination path, saves data through the backend, applies top-K
// eviction, updates the Best pointer, and maintains the "last" file.
//
// A failed save leaves the ledger and pointers untouched.
func (m *Manager) OnCheckpoint(ctx context.Context, values map[string]any, score float64, data []byte) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := FormatName(m.policy.Template, values)
	path, err := m.resolve(ctx, name)
	if err != nil {
		return Result{}, err
	}

	if err := m.io.Save(ctx, path, data); err != nil {
		return Result{}, err
	}
	m.owned[path] = true

	res := Result{Path: path}

	m.insert(entry{score: score, path: path})
	if m.policy.TopK >= 0 {
		for len(m.ledger) > m.policy.TopK {
			worst := m.ledger[len(m.ledger)-1]
			if err := m.io.Remove(ctx, worst.path); err != nil {
				return res, err
			}
			m.ledger = m.ledger[:len(m.ledger)-1]
			delete(m.owned, worst.path)
			res.Removed = append(res.Removed, worst.path)
		}
	}
	if len(m.ledger) > 0 {
		m.bestPath = m.ledger[0].path
	} else {
		m.bestPath = ""
	}

	if m.policy.SaveLast {
		removed, err := m.saveLast(ctx, data)
		res.Removed = append(res.Removed, removed...)
		if err != nil {
			return res, err
		}
	}
	res.LastPath = m.lastPath
	return res, nil
}

// saveLast writes the fixed-name "last" checkpoint and, once the first
// write lands, removes the superseded last file left by a prior run.
// Removal happens strictly after the new write so there is never a
// window with zero last files.
//
// The pointer and the pending superseded path are committed only after
// a successful write: a failed attempt leaves LastPath unchanged, and
// the superseded file stays marked until its removal actually happens.
func (m *Manager) saveLast(ctx context.Context, data []byte) ([]string, error) {
	path, superseded := m.lastPath, m.lastSuperseded
	if !m.lastDone {
		var err error
		path, superseded, err = m.resolveLast(ctx)
		if err != nil {
			return nil, err
		}
	}

	if err := m.io.Save(ctx, path, data); err != nil {
		return nil, err
	}
	m.lastPath = path
	m.lastSuperseded = superseded
	m.lastDone = true
	m.owned[path] = true

	if m.lastSuperseded != "" {
		victim := m.lastSuperseded
		if err := m.io.Remove(ctx, victim); err != nil {
			return nil, err
		}
		m.lastSuperseded = ""
		return []string{victim}, nil
	}
	return nil, nil
}

// resolve maps a rendered name onto a free path, appending the lowest
// -vN suffix when the unsuffixed path is occupied by a checkpoint this
// run does not own. Re-saving an owned path overwrites it.
func (m *Manager) resolve(ctx context.Context, name string) (string, error) {
	for n := 0; ; n++ {
		path := filepath.Join(m.policy.Dir, versioned(name, n)+m.policy.Ext)
		if m.owned[path] {
			return path, nil
		}
		exists, err := m.exists(ctx, path)
		if err != nil {
			return "", err
		}
		if !exists {
			return path, nil
		}
	}
}

// resolveLast picks this run's last-file path and identifies the
// checkpoint it supersedes: the highest-versioned last file already in
// the directory, if any.
func (m *Manager) resolveLast(ctx context.Context) (path, superseded string, err error) {
	prev := ""
	for n := 0; ; n++ {
		candidate := filepath.Join(m.policy.Dir, versioned(LastName, n)+m.policy.Ext)
		exists, err := m.exists(ctx, candidate)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return candidate, prev, nil
		}
		prev = candidate
	}
}

// exists consults the backend when it can check paths, otherwise the
// filesystem directly.
func (m *Manager) exists(ctx context.Context, path string) (bool, error) {
	if pc, ok := m.io.(backend.PathChecker); ok {
		return pc.Exists(ctx, path)
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &ckpterrors.IOError{Op: "stat", Path: path, Err: err}
}

// insert adds e keeping the ledger sorted best-first. Ties keep the
// earlier entry ranked higher.
func (m *Manager) insert(e entry) {
	m.ledger = append(m.ledger, e)
	less := func(i, j int) bool {
		if m.policy.Mode == ModeMax {
			return m.ledger[i].score > m.ledger[j].score
		}
		return m.ledger[i].score < m.ledger[j].score
	}
	sort.SliceStable(m.ledger, less)
}

// BestPath returns the path of the current top-ranked checkpoint, or ""
// when nothing is retained.
func (m *Manager) BestPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bestPath
}

// BestScore returns the score of the current top-ranked checkpoint.
// The boolean is false when nothing is retained.
func (m *Manager) BestScore() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ledger) == 0 {
		return 0, false
	}
	return m.ledger[0].score, true
}

// LastPath returns the current "last" checkpoint path, or "" when last
// tracking is disabled or nothing has been saved yet.
func (m *Manager) LastPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPath
}

// RetainedPaths returns the currently retained top-K paths, best first.
func (m *Manager) RetainedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, len(m.ledger))
	for i, e := range m.ledger {
		paths[i] = e.path
	}
	return paths
}
