// Package badgerstore serves taxonomy namespaces from a BadgerDB key space.
//
// Key layout (all ids and names are raw bytes, 0x00 separates components):
//
//	0x01 ns 0x00 id                                 -> taxon JSON
//	0x02 ns 0x00 parent 0x00 child                  -> empty
//	0x03 ns 0x00 lower(name) 0x00 id                -> rank/strain JSON
//	0x04 ns 0x00 taxon 0x00 obj_ref 0x00 created    -> expired
//	0x05 ns 0x00 obj_ref 0x00 taxon 0x00 created    -> expired
//	0x06 obj_ref                                    -> workspace object JSON
//
// Badger iterates keys in byte order, so child lists come out ordered by id
// and name index scans come out in search order without sorting.
package badgerstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/teranos/taxa/errors"
)

const (
	prefixTaxon       = byte(0x01)
	prefixChild       = byte(0x02)
	prefixName        = byte(0x03)
	prefixAssocTaxon  = byte(0x04)
	prefixAssocObject = byte(0x05)
	prefixObject      = byte(0x06)

	sep = byte(0x00)
)

// key joins a prefix byte and components with the separator.
func key(prefix byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	k := make([]byte, 0, n)
	k = append(k, prefix)
	for i, p := range parts {
		if i > 0 {
			k = append(k, sep)
		}
		k = append(k, p...)
	}
	return k
}

// scanPrefix is key() followed by a trailing separator, for iterating every
// key under the given components.
func scanPrefix(prefix byte, parts ...string) []byte {
	return append(key(prefix, parts...), sep)
}

// lastComponent returns the bytes after the final separator.
func lastComponent(k []byte) string {
	return string(k[bytes.LastIndexByte(k, sep)+1:])
}

func encodeInt(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, errors.Newf("expected 8 byte integer, got %d bytes", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// decodeJSON decodes v keeping numbers as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// Options configures Open.
type Options struct {
	// Dir is the data directory; ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   *zap.SugaredLogger
}

// DB is an open badger key space holding any number of namespaces.
type DB struct {
	db     *badger.DB
	logger *zap.SugaredLogger
}

// badgerLogger adapts a zap logger to badger.Logger.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

// Open opens (or creates) the key space.
func Open(opts Options) (*DB, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(badgerLogger{opts.Logger.Desugar().WithOptions(zap.IncreaseLevel(zap.WarnLevel)).Sugar()})
	} else {
		bopts = bopts.WithLogger(nil)
	}
	// The dataset is small next to badger's defaults
	bopts = bopts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", opts.Dir)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &DB{db: db, logger: log}, nil
}

// Close flushes and closes the key space.
func (d *DB) Close() error {
	return errors.Wrap(d.db.Close(), "close badger")
}

// Namespace returns a store scoped to ns.
func (d *DB) Namespace(ns string) *Store {
	return &Store{db: d.db, ns: ns}
}
