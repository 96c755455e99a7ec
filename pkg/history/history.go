// Package history implements C7: a named, file-backed history session in
// the fish on-disk format described by spec.md §4.7/§6 -- a format this
// package authors fresh rather than adapting from the teacher's bbolt-based
// pkg/store/cmd.go, since the two formats are incompatible (see DESIGN.md).
// The in-memory Session/search shape (new items first, a consumed-index
// stack driving prev/next search) is grounded on the teacher's
// pkg/cli/histutil (Store/Cursor, walker.go's dedup-on-walk stack).
package history

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"tide.sh/pkg/logging"
	"tide.sh/pkg/token"
)

var log = logging.New("history")

// Item is one history entry.
type Item struct {
	Timestamp     int64
	Command       string
	RequiredPaths []string
}

// onDiskItem references an item still living in the mmap region, decoded
// lazily on demand.
type onDiskItem struct {
	timestamp  int64
	textOffset int
	textLen    int
}

const (
	saveCountThreshold = 5
	saveInterval       = 5 * time.Minute
)

// Session is a single named history file's live state.
type Session struct {
	mu sync.Mutex

	name string
	path string

	mmapData []byte
	onDisk   []onDiskItem

	newItems []Item

	newSinceSave int
	lastSave     time.Time

	searchStack []int
	searchReady bool
}

// Open loads name's backing file under dir (creating nothing if the file
// does not yet exist; the file is only created on first Save).
func Open(dir, name string) (*Session, error) {
	s := &Session{name: name, path: filepath.Join(dir, name+"_history"), lastSave: time.Now()}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) loadFromDisk() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		// Fall back to a plain read if mmap is unavailable (e.g. on a
		// filesystem that does not support it); the history store does not
		// refuse to continue, per spec.md §7.
		log.Warn("mmap failed for %s, falling back to read: %v", s.path, err)
		data, err = os.ReadFile(s.path)
		if err != nil {
			return err
		}
	}
	s.mmapData = data
	s.onDisk = parseItems(data)
	return nil
}

// Close releases the mmap region, if any.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mmapData != nil {
		unix.Munmap(s.mmapData)
		s.mmapData = nil
	}
}

// parseItems scans data for "# <ts>\n<escaped text>\n" records, returning
// them oldest-first (disk order), without decoding the text eagerly.
func parseItems(data []byte) []onDiskItem {
	var items []onDiskItem
	pos := 0
	for pos < len(data) {
		if data[pos] != '#' {
			// Not a timestamp line; skip to the next newline defensively.
			pos = indexByteFrom(data, pos, '\n') + 1
			if pos == 0 {
				break
			}
			continue
		}
		lineEnd := indexByteFrom(data, pos, '\n')
		if lineEnd < 0 {
			break
		}
		tsStr := strings.TrimSpace(string(data[pos+1 : lineEnd]))
		ts, _ := strconv.ParseInt(tsStr, 10, 64)
		bodyStart := lineEnd + 1
		bodyEnd, next := scanItemBody(data, bodyStart)
		items = append(items, onDiskItem{timestamp: ts, textOffset: bodyStart, textLen: bodyEnd - bodyStart})
		pos = next
	}
	return items
}

func indexByteFrom(data []byte, from int, b byte) int {
	for i := from; i < len(data); i++ {
		if data[i] == b {
			return i
		}
	}
	return -1
}

// scanItemBody finds the end of the escaped-text run starting at start,
// honoring backslash+newline and backslash+backslash pairs as 2-byte
// escapes that do not terminate the item. It returns the offset just past
// the text (exclusive of the terminating newline) and the offset to resume
// scanning from (just past that terminating newline).
func scanItemBody(data []byte, start int) (bodyEnd, next int) {
	i := start
	for i < len(data) {
		if data[i] == '\\' && i+1 < len(data) && (data[i+1] == '\\' || data[i+1] == '\n') {
			i += 2
			continue
		}
		if data[i] == '\n' {
			return i, i + 1
		}
		i++
	}
	return i, i
}

func decodeBody(raw []byte) string {
	var b strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '\\' && i+1 < len(raw) && (raw[i+1] == '\\' || raw[i+1] == '\n') {
			b.WriteByte(raw[i+1])
			i += 2
			continue
		}
		b.WriteByte(raw[i])
		i++
	}
	return b.String()
}

func encodeBody(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString("\\\n")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Add records a new item in this process, fully decoded, with the current
// time as its timestamp.
func (s *Session) Add(command string, requiredPaths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newItems = append(s.newItems, Item{Timestamp: time.Now().Unix(), Command: command, RequiredPaths: requiredPaths})
	s.newSinceSave++
}

// Count returns the total number of items, new-items-first.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.newItems) + len(s.onDisk)
}

// ItemAt returns the item at the given 0-based index, where index 0 is the
// most recently added item, counting this process's new items before the
// on-disk ones, as spec.md §4.7 describes.
func (s *Session) ItemAt(index int) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 {
		return Item{}, false
	}
	if index < len(s.newItems) {
		return s.newItems[len(s.newItems)-1-index], true
	}
	diskIdx := index - len(s.newItems)
	if diskIdx >= len(s.onDisk) {
		return Item{}, false
	}
	od := s.onDisk[len(s.onDisk)-1-diskIdx]
	return Item{Timestamp: od.timestamp, Command: decodeBody(s.mmapData[od.textOffset : od.textOffset+od.textLen])}, true
}

// ResetSearch clears the consumed-index stack, as any non-search motion
// command does per spec.md §4.12.
func (s *Session) ResetSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchStack = nil
	s.searchReady = false
}

// PrevMatch walks items newest-first for the first whose command contains
// needle and was not already returned since the last ResetSearch.
func (s *Session) PrevMatch(needle string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.searchStack) > 0 {
		start = s.searchStack[len(s.searchStack)-1] + 1
	}
	n := len(s.newItems) + len(s.onDisk)
	for i := start; i < n; i++ {
		it, ok := s.itemAtLocked(i)
		if ok && strings.Contains(it.Command, needle) {
			s.searchStack = append(s.searchStack, i)
			return it, true
		}
	}
	return Item{}, false
}

// NextMatch unwinds one entry from PrevMatch's consumed-index stack,
// returning the item that was current before the last PrevMatch call.
func (s *Session) NextMatch() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.searchStack) == 0 {
		return Item{}, false
	}
	s.searchStack = s.searchStack[:len(s.searchStack)-1]
	if len(s.searchStack) == 0 {
		return Item{}, false
	}
	idx := s.searchStack[len(s.searchStack)-1]
	return s.itemAtLocked(idx)
}

// PrevTokenMatch is the token-search variant: it tokenizes each item and
// returns the first, newest-first, with a token whose text equals needle.
func (s *Session) PrevTokenMatch(needle string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.newItems) + len(s.onDisk)
	for i := 0; i < n; i++ {
		it, ok := s.itemAtLocked(i)
		if !ok {
			continue
		}
		for _, tok := range token.Tokenize(it.Command, token.Config{AcceptUnfinished: true}) {
			if tok.Type == token.STRING && tok.Text == needle {
				return it, true
			}
		}
	}
	return Item{}, false
}

func (s *Session) itemAtLocked(index int) (Item, bool) {
	if index < len(s.newItems) {
		return s.newItems[len(s.newItems)-1-index], true
	}
	diskIdx := index - len(s.newItems)
	if diskIdx >= len(s.onDisk) {
		return Item{}, false
	}
	od := s.onDisk[len(s.onDisk)-1-diskIdx]
	return Item{Timestamp: od.timestamp, Command: decodeBody(s.mmapData[od.textOffset : od.textOffset+od.textLen])}, true
}

// ShouldSave reports whether the accumulated new-item count or elapsed
// time since the last save has crossed the automatic-save threshold.
func (s *Session) ShouldSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newSinceSave >= saveCountThreshold || time.Since(s.lastSave) >= saveInterval
}

// Save re-reads the latest on-disk snapshot, dedups against this
// process's new items by command-text hash, and atomically rewrites the
// target file via temp-file + fsync + rename, per spec.md §4.7's
// numbered algorithm. It then remaps the freshly written file and clears
// the in-process new-item buffer.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := Open(filepath.Dir(s.path), s.name)
	if err != nil {
		log.Warn("re-reading snapshot of %s before save: %v", s.path, err)
		fresh = &Session{}
	}

	// A command added more than once in this process keeps only its last
	// occurrence; that occurrence's hash also shadows any matching on-disk
	// record, which is what makes A,B,A collapse to B,A (property 6).
	lastOccurrence := map[string]int{}
	for i, it := range s.newItems {
		lastOccurrence[it.Command] = i
	}
	newHashes := map[[32]byte]bool{}
	for _, it := range s.newItems {
		newHashes[sha256.Sum256([]byte(it.Command))] = true
	}

	tmpPath := s.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	n := len(fresh.onDisk)
	for i := 0; i < n; i++ {
		od := fresh.onDisk[i]
		text := decodeBody(fresh.mmapData[od.textOffset : od.textOffset+od.textLen])
		if newHashes[sha256.Sum256([]byte(text))] {
			continue
		}
		if _, err := fmt.Fprintf(tmp, "# %d\n%s\n", od.timestamp, encodeBody(text)); err != nil {
			tmp.Close()
			return err
		}
	}
	for i, it := range s.newItems {
		if lastOccurrence[it.Command] != i {
			continue
		}
		if _, err := fmt.Fprintf(tmp, "# %d\n%s\n", it.Timestamp, encodeBody(it.Command)); err != nil {
			tmp.Close()
			return err
		}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}

	if s.mmapData != nil {
		unix.Munmap(s.mmapData)
		s.mmapData = nil
	}
	if err := s.loadFromDisk(); err != nil {
		log.Warn("remapping %s after save: %v", s.path, err)
	}
	s.newItems = nil
	s.newSinceSave = 0
	s.lastSave = time.Now()
	fresh.Close()
	return nil
}
