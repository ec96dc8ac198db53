package ledger

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileHeader = "# Processed item identities, one per line, in discovery order.\n" +
	"# Lines starting with # are comments. Entries are appended automatically.\n"

// FileLedger keeps one identity per line in a text file. The file is read fully
// when opened and tailed on later reads; appends go through O_APPEND writes
// followed by fsync, serialized in-process by a mutex and across processes by an
// advisory file lock.
type FileLedger struct {
	path string

	mu           sync.RWMutex
	seen         map[string]struct{}
	order        []string
	offset       int64
	needsNewline bool
}

// OpenFile loads (or creates) the ledger file at path.
func OpenFile(path string) (*FileLedger, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &LoadError{Backend: BackendFile, Message: "failed to create ledger directory", Cause: err}
	}

	l := &FileLedger{path: path, seen: make(map[string]struct{})}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &LoadError{Backend: BackendFile, Message: "failed to open ledger file", Cause: err}
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return nil, &LoadError{Backend: BackendFile, Message: "failed to lock ledger file", Cause: err}
	}
	defer func() { _ = unlockFile(f) }()

	info, err := f.Stat()
	if err != nil {
		return nil, &LoadError{Backend: BackendFile, Message: "failed to stat ledger file", Cause: err}
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(fileHeader); err != nil {
			return nil, &LoadError{Backend: BackendFile, Message: "failed to write ledger header", Cause: err}
		}
		if err := f.Sync(); err != nil {
			return nil, &LoadError{Backend: BackendFile, Message: "failed to sync ledger header", Cause: err}
		}
	}

	if err := l.reload(f); err != nil {
		return nil, &LoadError{Backend: BackendFile, Message: "failed to read ledger file", Cause: err}
	}
	return l, nil
}

// Path returns the file backing this ledger.
func (l *FileLedger) Path() string {
	return l.path
}

// Contains reports membership. Lines other processes appended since the last
// read are loaded first, so long-lived processes see their entries.
func (l *FileLedger) Contains(_ context.Context, id string) (bool, error) {
	if err := l.refresh(); err != nil {
		return false, &LoadError{Backend: BackendFile, Message: "failed to refresh ledger", Cause: err}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[strings.TrimSpace(id)]
	return ok, nil
}

// refresh reads lines appended past the known offset under a shared file lock.
// It is a no-op while the file has not grown.
func (l *FileLedger) refresh() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if info.Size() <= l.offset {
		return nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := lockFileShared(f); err != nil {
		return err
	}
	defer func() { _ = unlockFile(f) }()
	return l.reload(f)
}

// Append writes id unless the file already holds it. Entries written by other
// processes since the last read are picked up under the file lock first, so two
// concurrent appends of the same id produce a single line.
func (l *FileLedger) Append(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "\r\n") || strings.HasPrefix(id, "#") {
		return &WriteError{Backend: BackendFile, ID: id, Message: "identity must be a single non-comment line"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return &WriteError{Backend: BackendFile, ID: id, Message: "failed to open ledger file", Cause: err}
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return &WriteError{Backend: BackendFile, ID: id, Message: "failed to lock ledger file", Cause: err}
	}
	defer func() { _ = unlockFile(f) }()

	if err := l.reload(f); err != nil {
		return &WriteError{Backend: BackendFile, ID: id, Message: "failed to refresh ledger", Cause: err}
	}
	if _, ok := l.seen[id]; ok {
		return nil
	}

	line := id + "\n"
	if l.needsNewline {
		line = "\n" + line
	}
	n, err := f.WriteString(line)
	if err != nil {
		return &WriteError{Backend: BackendFile, ID: id, Message: "write failed", Cause: err}
	}
	if err := f.Sync(); err != nil {
		return &WriteError{Backend: BackendFile, ID: id, Message: "fsync failed", Cause: err}
	}

	l.offset += int64(n)
	l.needsNewline = false
	l.add(id)
	return nil
}

// Entries returns every identity in file order.
func (l *FileLedger) Entries(_ context.Context) ([]string, error) {
	if err := l.refresh(); err != nil {
		return nil, &LoadError{Backend: BackendFile, Message: "failed to refresh ledger", Cause: err}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out, nil
}

// Len returns the number of identities.
func (l *FileLedger) Len(_ context.Context) (int, error) {
	if err := l.refresh(); err != nil {
		return 0, &LoadError{Backend: BackendFile, Message: "failed to refresh ledger", Cause: err}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order), nil
}

// Close is a no-op; files are opened per operation.
func (l *FileLedger) Close() error {
	return nil
}

// reload reads everything past the last known offset. Callers hold l.mu and the file lock.
func (l *FileLedger) reload(f *os.File) error {
	if _, err := f.Seek(l.offset, io.SeekStart); err != nil {
		return err
	}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			l.offset += int64(len(line))
			// A torn final write has no newline; the next append starts on a fresh line.
			l.needsNewline = !strings.HasSuffix(line, "\n")
			entry := strings.TrimSpace(line)
			if entry != "" && !strings.HasPrefix(entry, "#") {
				l.add(entry)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (l *FileLedger) add(id string) {
	if _, ok := l.seen[id]; ok {
		return
	}
	l.seen[id] = struct{}{}
	l.order = append(l.order, id)
}
