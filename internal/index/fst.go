package index

import (
	"bytes"

	"github.com/blevesearch/vellum"

	"github.com/standardbeagle/hgrep/internal/types"
)

// wordSet is a finite-state set of trigram keys. The raw bytes back the
// loaded FST and are what the snapshot writer persists.
type wordSet struct {
	fst  *vellum.FST
	data []byte
}

// buildWordSet constructs the FST over keys. Keys are sorted in place into
// the builder's required order.
func buildWordSet(keys []types.Key) (*wordSet, error) {
	types.SortKeys(keys)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		if err := builder.Insert(k.Bytes(), 0); err != nil {
			return nil, err
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}

	return loadWordSet(buf.Bytes())
}

func loadWordSet(data []byte) (*wordSet, error) {
	fst, err := vellum.Load(data)
	if err != nil {
		return nil, err
	}
	return &wordSet{fst: fst, data: data}, nil
}
