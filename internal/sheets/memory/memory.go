package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ports "tablero/internal/sheets"
)

// Store holds the ideas sheet in memory. Every Replace bumps the revision so
// the identity changes with the content.
type Store struct {
	mu       sync.Mutex
	rows     [][]string
	revision int
}

var _ ports.Source = (*Store)(nil)

func New(rows [][]string) *Store {
	return &Store{rows: cloneRows(rows), revision: 1}
}

// NewFromFile seeds the store from a CSV export of the ideas sheet.
// Blank lines and lines starting with '#' are skipped.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty seed file")
	}
	return New(rows), nil
}

// ReadRows returns a copy of the stored matrix.
func (s *Store) ReadRows(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, errors.New("memory store is empty")
	}
	return cloneRows(s.rows), nil
}

func (s *Store) Identity(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("mem:%d", s.revision), nil
}

// Replace swaps the stored matrix.
func (s *Store) Replace(rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cloneRows(rows)
	s.revision++
}

func cloneRows(in [][]string) [][]string {
	out := make([][]string, 0, len(in))
	for _, row := range in {
		cp := make([]string, len(row))
		for i, v := range row {
			cp[i] = strings.TrimRight(v, "\r")
		}
		out = append(out, cp)
	}
	return out
}
