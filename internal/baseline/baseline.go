// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package baseline stores a generated template set and reports how a later
// generation differs from it.
//
// Each template's record is stored as JSON, keyed by its serial number,
// alongside a BLAKE2b-256 fingerprint of the whole ordered set.
package baseline

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/crypto/blake2b"

	"firefly-os.dev/tools/asmgen/internal/template"
)

var (
	recordPrefix   = []byte("t/")
	fingerprintKey = []byte("meta/fingerprint")
	modeKey        = []byte("meta/mode")
)

// ErrNoBaseline indicates that nothing has
// been saved to the store.
var ErrNoBaseline = errors.New("no baseline has been saved")

// ErrModeMismatch indicates that the
// baseline was saved in a different CPU
// mode.
var ErrModeMismatch = errors.New("baseline CPU mode mismatch")

// Store is a baseline database.
type Store struct {
	db *leveldb.DB
}

// Open opens the baseline database at path,
// creating it if necessary. If path is
// empty, the database is held in memory.
func Open(path string) (*Store, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open baseline: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(serial int) []byte {
	key := make([]byte, len(recordPrefix)+4)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint32(key[len(recordPrefix):], uint32(serial))

	return key
}

// Fingerprint is a BLAKE2b-256 hash of an
// ordered template set.
type Fingerprint [blake2b.Size256]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// Encode returns the JSON encoding of each
// template's record, in serial order, and
// the fingerprint of the set.
func Encode(templates []*template.Template) ([][]byte, Fingerprint, error) {
	var fp Fingerprint
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, fp, err
	}

	encoded := make([][]byte, len(templates))
	for i, t := range templates {
		data, err := json.Marshal(t.Record())
		if err != nil {
			return nil, fp, fmt.Errorf("failed to encode %s: %w", t, err)
		}

		encoded[i] = data
		h.Write(data)
		h.Write([]byte{'\n'})
	}

	copy(fp[:], h.Sum(nil))

	return encoded, fp, nil
}

// Save replaces the stored baseline with
// the given templates, generated in mode.
func (s *Store) Save(mode string, templates []*template.Template) (Fingerprint, error) {
	encoded, fp, err := Encode(templates)
	if err != nil {
		return fp, err
	}

	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	for iter.Next() {
		batch.Delete(bytes.Clone(iter.Key()))
	}

	iter.Release()
	if err := iter.Error(); err != nil {
		return fp, fmt.Errorf("failed to read baseline: %w", err)
	}

	for i, data := range encoded {
		batch.Put(recordKey(i), data)
	}

	batch.Put(fingerprintKey, fp[:])
	batch.Put(modeKey, []byte(mode))
	if err := s.db.Write(batch, nil); err != nil {
		return fp, fmt.Errorf("failed to write baseline: %w", err)
	}

	return fp, nil
}

// Fingerprint returns the fingerprint and
// CPU mode of the stored baseline.
func (s *Store) Fingerprint() (fp Fingerprint, mode string, err error) {
	data, err := s.db.Get(fingerprintKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return fp, "", ErrNoBaseline
	}

	if err != nil {
		return fp, "", err
	}

	if len(data) != len(fp) {
		return fp, "", fmt.Errorf("invalid baseline fingerprint: got %d bytes, want %d", len(data), len(fp))
	}

	copy(fp[:], data)
	m, err := s.db.Get(modeKey, nil)
	if err != nil {
		return fp, "", fmt.Errorf("failed to read baseline mode: %w", err)
	}

	return fp, string(m), nil
}

// Records returns the stored record JSON,
// in serial order.
func (s *Store) Records() ([][]byte, error) {
	iter := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	defer iter.Release()

	var records [][]byte
	for iter.Next() {
		key := iter.Key()
		serial := int(binary.BigEndian.Uint32(key[len(recordPrefix):]))
		if serial != len(records) {
			return nil, fmt.Errorf("baseline is missing record %d", len(records))
		}

		records = append(records, bytes.Clone(iter.Value()))
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	return records, nil
}
