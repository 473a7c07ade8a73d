package source

import (
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileID identifies a registered source file within a FileSet.
type FileID uint32

// File captures one registered piece of source text and the slice of the
// global address space it occupies.
type File struct {
	ID      FileID
	Name    string
	Content []byte
	Span    Span // base..base+len(Content) in the global space
}

// FileSet owns all loaded source text and hands every file a contiguous,
// non-overlapping range of the single global offset space. Spans from two
// different files therefore never collide, and a diagnostic span can be
// mapped back to its file without extra bookkeeping.
type FileSet struct {
	files  []File
	index  map[string]FileID // name -> latest id
	nextID uint32            // next free global offset
}

func NewFileSet() *FileSet {
	return &FileSet{index: make(map[string]FileID)}
}

// Add registers content under name and returns its file. A name may be
// registered more than once (re-parse); each registration gets a fresh
// range, the index tracks the latest.
func (fs *FileSet) Add(name string, content []byte) *File {
	length, err := safecast.Conv[uint32](len(content))
	if err != nil {
		panic(fmt.Errorf("source content overflow: %w", err))
	}
	numFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(numFiles)
	base := fs.nextID
	fs.nextID = base + length
	fs.files = append(fs.files, File{
		ID:      id,
		Name:    name,
		Content: content,
		Span:    New(base, base+length),
	})
	fs.index[name] = id
	return &fs.files[id]
}

// Load reads a file from disk and registers it.
func (fs *FileSet) Load(path string) (*File, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fs.Add(path, content), nil
}

// Get returns the file for id, or nil if the id was never issued.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Find returns the latest registration under name.
func (fs *FileSet) Find(name string) (*File, bool) {
	id, ok := fs.index[name]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

// FileFor maps a global span back to the file containing its start.
func (fs *FileSet) FileFor(span Span) (*File, bool) {
	for i := range fs.files {
		if fs.files[i].Span.Contains(span.Start) || fs.files[i].Span.Past() == span {
			return &fs.files[i], true
		}
	}
	return nil, false
}

// Len reports the number of registered files.
func (fs *FileSet) Len() int { return len(fs.files) }
