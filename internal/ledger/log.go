package ledger

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppiankov/chainboard/internal/ident"
	"github.com/ppiankov/chainboard/internal/redact"
)

// GenesisHash is the prev_hash for the first entry in a new ledger.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log is an append-only JSONL operator ledger with SHA-256 hash chaining.
// Each entry's prev_hash is the hash of the previous entry's JSON line,
// forming a tamper-evident chain.
type Log struct {
	path     string
	file     *os.File
	prevHash string
	seq      int
	mu       sync.Mutex
}

// Open opens (or creates) a ledger file for appending.
// If the file already exists, it reads the last line to recover the chain
// tail and counts lines to continue the sequence.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}

	prevHash := GenesisHash
	seq := 0

	// Read existing file to find chain tail
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ledger: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			seq++
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("ledger: scan existing log: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("ledger: open file: %w", err)
	}

	return &Log{
		path:     path,
		file:     file,
		prevHash: prevHash,
		seq:      seq,
	}, nil
}

// Append writes an Entry to the ledger with hash chaining.
// It assigns Seq, PrevHash, Timestamp and EventID (if empty), redacts
// sensitive detail keys, marshals to JSON, writes the line, and syncs.
func (l *Log) Append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = ident.UTCNowISO()
	}
	if entry.EventID == "" {
		entry.EventID = ident.NewEventID()
	}
	if entry.Details != nil {
		entry.Details = redact.RedactAuto(entry.Details, nil)
	}
	l.seq++
	entry.Seq = l.seq
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		l.seq--
		return fmt.Errorf("ledger: marshal entry: %w", err)
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		l.seq--
		return fmt.Errorf("ledger: write entry: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
