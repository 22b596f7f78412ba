package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	journalFile = "identity.log"
	maxEntries  = 500
)

// Journal is the identity event history kept in the data directory.
// Entries are held newest first in memory and written oldest first.
type Journal struct {
	mu      sync.Mutex
	dataDir string
	entries []string
}

// OpenJournal loads any existing journal from dataDir
func OpenJournal(dataDir string) (*Journal, error) {
	lines, err := readLines(filepath.Join(dataDir, journalFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return &Journal{
		dataDir: dataDir,
		entries: reverse(lines),
	}, nil
}

// Record prepends an entry and persists the journal
func (j *Journal) Record(entry string) error {
	entry = strings.ReplaceAll(entry, "\n", " ")

	j.mu.Lock()
	j.entries = addEntry(j.entries, entry)
	snapshot := reverse(j.entries)
	j.mu.Unlock()

	return writeLines(filepath.Join(j.dataDir, journalFile), snapshot)
}

// Recent returns up to n entries, newest first
func (j *Journal) Recent(n int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || n > len(j.entries) {
		n = len(j.entries)
	}
	out := make([]string, n)
	copy(out, j.entries[:n])
	return out
}

// addEntry prepends a new entry (keeping newest first in memory)
func addEntry(entries []string, entry string) []string {
	entries = append([]string{entry}, entries...)
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	return entries
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func writeLines(path string, lines []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return w.Flush()
}

func reverse(s []string) []string {
	result := make([]string, len(s))
	for i, v := range s {
		result[len(s)-1-i] = v
	}
	return result
}
