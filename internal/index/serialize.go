package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/hgrep/internal/types"
)

// Snapshot format: a single opaque dump of the finalized in-memory state.
// Little-endian throughout; every variable-size section is length-prefixed.
// The file ends with an xxhash64 of everything before it, verified on load.
// The commit hash→index map is not persisted; it is rebuilt from the hash
// vector.
var snapshotMagic = [8]byte{'H', 'G', 'R', 'P', 'I', 'D', 'X', '1'}

// Save writes the index snapshot to path.
func (ix *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ix.Write(f); err != nil {
		return err
	}
	return f.Sync()
}

// Write streams the snapshot to w.
func (ix *Index) Write(w io.Writer) error {
	digest := xxhash.New()
	out := bufio.NewWriter(io.MultiWriter(w, digest))

	if _, err := out.Write(snapshotMagic[:]); err != nil {
		return err
	}

	// Commit hashes.
	if err := writeU32(out, uint32(len(ix.CommitHashes))); err != nil {
		return err
	}
	for _, hash := range ix.CommitHashes {
		if _, err := out.Write(hash[:]); err != nil {
			return err
		}
	}

	// File paths and documents are parallel vectors.
	if err := writeU32(out, uint32(len(ix.FilePaths))); err != nil {
		return err
	}
	for _, path := range ix.FilePaths {
		if err := writeString(out, path); err != nil {
			return err
		}
	}
	for _, doc := range ix.Documents {
		if err := writeDocument(out, doc); err != nil {
			return err
		}
	}

	// Global word→files map, in key order for deterministic dumps.
	keys := make([]types.Key, 0, len(ix.WordToFiles))
	for k := range ix.WordToFiles {
		keys = append(keys, k)
	}
	types.SortKeys(keys)

	if err := writeU32(out, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeKey(out, k); err != nil {
			return err
		}
		if err := writeBitmap(out, ix.WordToFiles[k]); err != nil {
			return err
		}
	}

	if err := writeBytes(out, ix.allWords.data); err != nil {
		return err
	}
	if err := writeBitmap(out, ix.NotDeletedHead); err != nil {
		return err
	}

	if err := out.Flush(); err != nil {
		return err
	}

	// Checksum footer, outside the digested region.
	var footer [8]byte
	binary.LittleEndian.PutUint64(footer[:], digest.Sum64())
	_, err := w.Write(footer[:])
	return err
}

// Load reads a snapshot from path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(data)
}

// Read parses a snapshot dump.
func Read(data []byte) (*Index, error) {
	if len(data) < len(snapshotMagic)+8 {
		return nil, fmt.Errorf("snapshot truncated: %d bytes", len(data))
	}

	body, footer := data[:len(data)-8], data[len(data)-8:]
	want := binary.LittleEndian.Uint64(footer)
	if got := xxhash.Sum64(body); got != want {
		return nil, fmt.Errorf("snapshot checksum mismatch: got %x, want %x", got, want)
	}

	r := &snapshotReader{data: body}

	var magic [8]byte
	if err := r.read(magic[:]); err != nil {
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("not an index snapshot (magic %q)", magic[:])
	}

	commitCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	hashes := make([]types.CommitHash, commitCount)
	hashToIndex := make(map[types.CommitHash]types.CommitIndex, commitCount)
	for i := range hashes {
		if err := r.read(hashes[i][:]); err != nil {
			return nil, err
		}
		hashToIndex[hashes[i]] = types.CommitIndex(i)
	}

	fileCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	paths := make([]string, fileCount)
	for i := range paths {
		if paths[i], err = r.str(); err != nil {
			return nil, err
		}
	}

	documents := make([]*Document, fileCount)
	for i := range documents {
		if documents[i], err = readDocument(r); err != nil {
			return nil, err
		}
	}

	wordCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	wordToFiles := make(map[types.Key]*roaring.Bitmap, wordCount)
	for i := uint32(0); i < wordCount; i++ {
		key, err := r.key()
		if err != nil {
			return nil, err
		}
		b, err := r.bitmap()
		if err != nil {
			return nil, err
		}
		wordToFiles[key] = b
	}

	fstData, err := r.bytes()
	if err != nil {
		return nil, err
	}
	allWords, err := loadWordSet(fstData)
	if err != nil {
		return nil, err
	}

	notDeleted, err := r.bitmap()
	if err != nil {
		return nil, err
	}

	return &Index{
		CommitHashes:      hashes,
		commitHashToIndex: hashToIndex,
		FilePaths:         paths,
		Documents:         documents,
		WordToFiles:       wordToFiles,
		NotDeletedHead:    notDeleted,
		allWords:          allWords,
	}, nil
}

func writeDocument(w io.Writer, doc *Document) error {
	if doc == nil {
		return writeU8(w, 0)
	}
	if err := writeU8(w, 1); err != nil {
		return err
	}

	deleted := uint8(0)
	if doc.IsDeleted {
		deleted = 1
	}
	if err := writeU8(w, deleted); err != nil {
		return err
	}

	if err := writeBitmap(w, doc.ModifiedCommits); err != nil {
		return err
	}

	keys := make([]types.Key, 0, len(doc.Words))
	for k := range doc.Words {
		keys = append(keys, k)
	}
	types.SortKeys(keys)

	if err := writeU32(w, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeKey(w, k); err != nil {
			return err
		}

		wi := doc.Words[k]

		wordKeys := make([]types.WordKey, 0, len(wi.History))
		for wk := range wi.History {
			wordKeys = append(wordKeys, wk)
		}
		sort.Slice(wordKeys, func(i, j int) bool {
			if wordKeys[i].Commit != wordKeys[j].Commit {
				return wordKeys[i].Commit < wordKeys[j].Commit
			}
			return wordKeys[i].Line < wordKeys[j].Line
		})

		if err := writeU32(w, uint32(len(wordKeys))); err != nil {
			return err
		}
		for _, wk := range wordKeys {
			if err := writeU32(w, uint32(wk.Commit)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(wk.Line)); err != nil {
				return err
			}
		}

		if err := writeBitmap(w, wi.Inclusivity); err != nil {
			return err
		}
	}

	var fstData []byte
	if doc.allWords != nil {
		fstData = doc.allWords.data
	}
	return writeBytes(w, fstData)
}

func readDocument(r *snapshotReader) (*Document, error) {
	present, err := r.u8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}

	deleted, err := r.u8()
	if err != nil {
		return nil, err
	}

	modified, err := r.bitmap()
	if err != nil {
		return nil, err
	}

	wordCount, err := r.u32()
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Words:           make(map[types.Key]*WordIndex, wordCount),
		ModifiedCommits: modified,
		IsDeleted:       deleted == 1,
	}

	for i := uint32(0); i < wordCount; i++ {
		key, err := r.key()
		if err != nil {
			return nil, err
		}

		historyCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		history := make(map[types.WordKey]struct{}, historyCount)
		for j := uint32(0); j < historyCount; j++ {
			commit, err := r.u32()
			if err != nil {
				return nil, err
			}
			line, err := r.u32()
			if err != nil {
				return nil, err
			}
			history[types.WordKey{Commit: types.CommitIndex(commit), Line: int(line)}] = struct{}{}
		}

		inclusivity, err := r.bitmap()
		if err != nil {
			return nil, err
		}

		doc.Words[key] = &WordIndex{History: history, Inclusivity: inclusivity}
	}

	fstData, err := r.bytes()
	if err != nil {
		return nil, err
	}
	if len(fstData) > 0 {
		if doc.allWords, err = loadWordSet(fstData); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

type snapshotReader struct {
	data []byte
	pos  int
}

func (r *snapshotReader) read(dst []byte) error {
	if r.pos+len(dst) > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	copy(dst, r.data[r.pos:])
	r.pos += len(dst)
	return nil
}

func (r *snapshotReader) u8() (uint8, error) {
	var b [1]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *snapshotReader) u32() (uint32, error) {
	var b [4]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (r *snapshotReader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := r.read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *snapshotReader) str() (string, error) {
	b, err := r.bytes()
	return string(b), err
}

func (r *snapshotReader) key() (types.Key, error) {
	b, err := r.bytes()
	if err != nil {
		return types.Key{}, err
	}
	return types.KeyFromBytes(b), nil
}

func (r *snapshotReader) bitmap() (*roaring.Bitmap, error) {
	data, err := r.bytes()
	if err != nil {
		return nil, err
	}
	b := roaring.New()
	if _, err := b.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return b, nil
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func writeKey(w io.Writer, k types.Key) error {
	return writeBytes(w, k.Bytes())
}

func writeBitmap(w io.Writer, b *roaring.Bitmap) error {
	data, err := b.ToBytes()
	if err != nil {
		return err
	}
	return writeBytes(w, data)
}
