package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"canvassync/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.runs.jsonl          (append-only JSON Lines)
//   - <prefix>.seen.snapshot.json  (periodic snapshot)
//   - <prefix>.seen.journal.jsonl  (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	runsFile *os.File

	seenSnapshotPath string
	seenJournalFile  *os.File
	seen             map[string]int64 // key -> first-seen unix milli

	seenWrites int
}

type seenRecord struct {
	Key       string `json:"key"`
	FirstSeen int64  `json:"first_seen"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	runsPath := prefix + ".runs.jsonl"
	snapPath := prefix + ".seen.snapshot.json"
	journalPath := prefix + ".seen.journal.jsonl"

	rf, err := os.OpenFile(runsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	// Load seen-set from snapshot + journal.
	seen := map[string]int64{}
	_ = loadSeenSnapshot(snapPath, seen)
	_ = replaySeenJournal(journalPath, seen)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = rf.Close()
		return nil, err
	}

	return &fileStore{
		log:              log,
		runsFile:         rf,
		seenSnapshotPath: snapPath,
		seenJournalFile:  jf,
		seen:             seen,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.runsFile != nil {
		err1 = s.runsFile.Close()
		s.runsFile = nil
	}
	if s.seenJournalFile != nil {
		err2 = s.seenJournalFile.Close()
		s.seenJournalFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendRun(ctx context.Context, r SyncRun) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runsFile == nil {
		return errors.New("runs file closed")
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	return json.NewEncoder(s.runsFile).Encode(r)
}

func (s *fileStore) MarkSeen(ctx context.Context, key string, at time.Time) (bool, error) {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}
	if at.IsZero() {
		at = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenJournalFile == nil {
		return false, errors.New("seen journal closed")
	}
	if s.seen == nil {
		s.seen = map[string]int64{}
	}
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	ms := at.UnixMilli()
	s.seen[key] = ms

	// Append journal record.
	enc := json.NewEncoder(s.seenJournalFile)
	if err := enc.Encode(seenRecord{Key: key, FirstSeen: ms}); err != nil {
		return false, err
	}
	s.seenWrites++
	if s.seenWrites%1000 == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("seen-set compact failed", logx.Err(err))
		}
	}
	return true, nil
}

func (s *fileStore) compactLocked() error {
	if s.seen == nil {
		return nil
	}

	tmp := s.seenSnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.seen); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.seenSnapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.seenJournalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.seenJournalFile.Seek(0, 2)
	return err
}

func loadSeenSnapshot(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]int64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replaySeenJournal(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r seenRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.Key == "" {
			continue
		}
		if _, ok := out[r.Key]; !ok {
			out[r.Key] = r.FirstSeen
		}
	}
	return sc.Err()
}
