package storage

// Package storage provides a minimal persistence layer used by the syncer.
//
// It currently supports:
//   - Sync-run audit appends (one record per sync pass)
//   - The seen-set (which Canvas objects were already exported), used to
//     count what is new per run and to survive restarts
