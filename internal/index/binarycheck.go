package index

import (
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/standardbeagle/hgrep/internal/types"
)

// signature is a magic-number fragment expected at a fixed offset.
type signature struct {
	offset int
	bytes  string
}

// extMagic maps a lowercased file extension to the magic numbers that mark it
// as binary. The table is deliberately extension-driven: misclassification is
// recoverable because nothing outside the index is modified.
var extMagic = map[string][]signature{
	"png":  {{0, "\x89PNG\r\n\x1a\n"}},
	"jpg":  {{0, "\xff\xd8\xff"}},
	"jpeg": {{0, "\xff\xd8\xff"}},
	"gif":  {{0, "GIF87a"}, {0, "GIF89a"}},
	"bmp":  {{0, "BM"}},
	"tif":  {{0, "II*\x00"}, {0, "MM\x00*"}},
	"tiff": {{0, "II*\x00"}, {0, "MM\x00*"}},
	"ico":  {{0, "\x00\x00\x01\x00"}},
	"webp": {{0, "RIFF"}, {8, "WEBP"}},
	"elf":  {{0, "\x7fELF"}},
	"so":   {{0, "\x7fELF"}},
	"o":    {{0, "\x7fELF"}},
	"exe":  {{0, "MZ"}},
	"dll":  {{0, "MZ"}},
	"sys":  {{0, "MZ"}},
	"zip":  {{0, "PK\x03\x04"}, {0, "PK\x05\x06"}, {0, "PK\x07\x08"}},
	"jar":  {{0, "PK\x03\x04"}},
	"apk":  {{0, "PK\x03\x04"}},
	"docx": {{0, "PK\x03\x04"}},
	"xlsx": {{0, "PK\x03\x04"}},
	"pptx": {{0, "PK\x03\x04"}},
	"gz":   {{0, "\x1f\x8b"}},
	"bz2":  {{0, "BZh"}},
	"xz":   {{0, "\xfd7zXZ\x00"}},
	"7z":   {{0, "7z\xbc\xaf\x27\x1c"}},
	"rar":  {{0, "Rar!\x1a\x07"}},
	"pdf":  {{0, "%PDF-"}},
	"mp3":  {{0, "ID3"}, {0, "\xff\xfb"}},
	"mp4":  {{4, "ftyp"}},
	"mov":  {{4, "ftyp"}},
	"avi":  {{0, "RIFF"}},
	"wav":  {{0, "RIFF"}},
	"mkv":  {{0, "\x1aE\xdf\xa3"}},
	"webm": {{0, "\x1aE\xdf\xa3"}},
	"ogg":  {{0, "OggS"}},
	"flac": {{0, "fLaC"}},
	"woff": {{0, "wOFF"}},
	"woff2": {{0, "wOF2"}},
	"ttf":  {{0, "\x00\x01\x00\x00"}},
	"otf":  {{0, "OTTO"}},
	"class": {{0, "\xca\xfe\xba\xbe"}},
	"wasm": {{0, "\x00asm"}},
	"sqlite": {{0, "SQLite format 3\x00"}},
}

// byteOrderMarks are rejected when found in the head of a blob: UTF-8,
// UTF-16 BE and UTF-16 LE.
var byteOrderMarks = []string{"\xef\xbb\xbf", "\xfe\xff", "\xff\xfe"}

// BinaryChecker decides whether a blob is indexable text.
type BinaryChecker struct {
	marks ahocorasick.AhoCorasick
}

// NewBinaryChecker builds the checker with its byte-order-mark automaton.
func NewBinaryChecker() *BinaryChecker {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.LeftMostFirstMatch,
	})
	return &BinaryChecker{marks: builder.Build(byteOrderMarks)}
}

// IsText reports whether content should be indexed. A magic-number match for
// the extension short-circuits to binary; otherwise the first 8 KiB are
// scanned for a byte-order mark and the blob is accepted when none is found.
func (bc *BinaryChecker) IsText(content []byte, ext string) bool {
	if matchesMagic(content, ext) {
		return false
	}

	head := content
	if len(head) > types.BinaryPreCheckBytes {
		head = head[:types.BinaryPreCheckBytes]
	}

	return len(bc.marks.FindAll(string(head))) == 0
}

func matchesMagic(content []byte, ext string) bool {
	for _, sig := range extMagic[ext] {
		end := sig.offset + len(sig.bytes)
		if len(content) < end {
			continue
		}
		if string(content[sig.offset:end]) == sig.bytes {
			return true
		}
	}
	return false
}
