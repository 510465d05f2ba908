package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brensch/broadside/game"
)

// Improvement records one strategy an agent adopted as its new best.
type Improvement struct {
	Side    string             `json:"side"`
	Episode int                `json:"episode"`
	Value   float64            `json:"value"`
	Weights map[string]float64 `json:"weights"`
	At      time.Time          `json:"at"`
}

// NewImprovement names every weight of p.
func NewImprovement(side game.Side, episode int, value float64, p game.Params) Improvement {
	w := make(map[string]float64, game.NumParams)
	for i, v := range p.Vector() {
		w[game.ParamNames[i]] = v
	}
	return Improvement{Side: side.String(), Episode: episode, Value: value, Weights: w, At: time.Now().UTC()}
}

// Params rebuilds the strategy vector. Missing weights are zero.
func (im Improvement) Params() game.Params {
	var v [game.NumParams]float64
	for i, name := range game.ParamNames {
		v[i] = im.Weights[name]
	}
	return game.ParamsFromVector(v)
}

// ImprovementLog is an append-only JSON-lines file, one Improvement per line.
// Every append is fsynced. A torn final line from a crash is skipped on
// load.
type ImprovementLog struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	count int
}

func OpenImprovementLog(path string) (*ImprovementLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	existing, err := LoadImprovements(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if torn, err := endsTorn(path); err == nil && torn {
		// Terminate the partial line so the next entry starts clean.
		if _, err := file.WriteString("\n"); err != nil {
			file.Close()
			return nil, fmt.Errorf("repair log: %w", err)
		}
	}
	return &ImprovementLog{path: path, file: file, count: len(existing)}, nil
}

func (l *ImprovementLog) Append(im Improvement) error {
	b, err := json.Marshal(im)
	if err != nil {
		return fmt.Errorf("encode improvement: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}
	if _, err := l.file.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	l.count++
	return nil
}

func (l *ImprovementLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *ImprovementLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func endsTorn(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.Size() == 0 {
		return false, err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// LoadImprovements reads every well-formed entry of the log at path.
func LoadImprovements(path string) ([]Improvement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Improvement
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var im Improvement
		if err := json.Unmarshal(line, &im); err != nil {
			continue
		}
		out = append(out, im)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}

// LatestBest returns the most recent adopted vector for side.
func LatestBest(entries []Improvement, side game.Side) (Improvement, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Side == side.String() {
			return entries[i], true
		}
	}
	return Improvement{}, false
}
