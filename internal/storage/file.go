package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// Sink receives saved articles without answering queries.
type Sink interface {
	Save(ctx context.Context, a *types.Article) error
	Close() error
	Name() string
}

// --- JSONL Journal ---

// JSONLJournal appends every saved article as one JSON object per line.
// It is an audit trail of writes, so the same href can appear many times.
type JSONLJournal struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	now    func() time.Time
	logger *slog.Logger
}

// NewJSONLJournal opens outputPath for appending, creating parent directories.
func NewJSONLJournal(outputPath string, logger *slog.Logger) (*JSONLJournal, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &JSONLJournal{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		now:    time.Now,
		logger: logger.With("component", "jsonl_journal"),
	}, nil
}

func (j *JSONLJournal) Name() string { return "jsonl" }

func (j *JSONLJournal) Save(ctx context.Context, a *types.Article) error {
	rec := *a
	rec.UpdatedTime = j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.enc.Encode(&rec); err != nil {
		return &types.StorageError{Backend: j.Name(), Op: "save", Err: err}
	}
	j.count++
	return nil
}

func (j *JSONLJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.logger.Info("JSONL journal closed", "path", j.path, "articles", j.count)
	return j.file.Close()
}

// ReadJournal loads every record from a journal file in write order.
func ReadJournal(path string) ([]types.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var out []types.Article
	dec := json.NewDecoder(f)
	for dec.More() {
		var a types.Article
		if err := dec.Decode(&a); err != nil {
			return out, fmt.Errorf("decode journal line %d: %w", len(out)+1, err)
		}
		out = append(out, a)
	}
	return out, nil
}
