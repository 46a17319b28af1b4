// Package storage persists serialized records in a pebble database, keyed by
// ksuid. Each value is a CBOR envelope naming the schema the payload was
// built with, so a read can hand the bytes back through the codec.
package storage

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/logging"
)

// ErrNotFound is returned when no record is stored under an id.
var ErrNotFound = errors.New("storage: record not found")

var recordPrefix = []byte("rec/")

// Resolver finds the schema a stored payload was serialized with.
// *catalog.Registry satisfies it.
type Resolver interface {
	Schema(name string) (*builder.Schema, error)
}

type envelope struct {
	Schema   string `cbor:"1,keyasint"`
	Payload  []byte `cbor:"2,keyasint"`
	StoredAt int64  `cbor:"3,keyasint"`
}

// Entry describes a stored record without decoding its payload.
type Entry struct {
	ID       ksuid.KSUID `json:"id"`
	Schema   string      `json:"schema"`
	Size     int         `json:"size"`
	StoredAt time.Time   `json:"stored_at"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

// RecordStore is a pebble-backed store of catbuffer records.
type RecordStore struct {
	db       *pebble.DB
	resolver Resolver
	now      func() time.Time
}

// Open opens (creating if needed) the store in dir.
func Open(dir string, resolver Resolver) (*RecordStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open record store at %s", dir)
	}
	logging.L().Info("record store opened", zap.String("dir", dir))
	return &RecordStore{db: db, resolver: resolver, now: time.Now}, nil
}

func recordKey(id ksuid.KSUID) []byte {
	key := make([]byte, 0, len(recordPrefix)+len(id))
	key = append(key, recordPrefix...)
	return append(key, id.Bytes()...)
}

// Create serializes rec and stores it under a new id.
func (s *RecordStore) Create(rec *builder.Record) (ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.put(id, rec); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// Update replaces the record stored under id.
func (s *RecordStore) Update(id ksuid.KSUID, rec *builder.Record) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	return s.put(id, rec)
}

func (s *RecordStore) put(id ksuid.KSUID, rec *builder.Record) error {
	payload, err := rec.Serialize()
	if err != nil {
		return err
	}
	value, err := encMode.Marshal(envelope{
		Schema:   rec.Schema().Name(),
		Payload:  payload,
		StoredAt: s.now().UnixNano(),
	})
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	if err := s.db.Set(recordKey(id), value, pebble.Sync); err != nil {
		logging.L().Error("record write failed", zap.Stringer("id", id), zap.Error(err))
		return errors.Wrapf(err, "write record %s", id)
	}
	return nil
}

func (s *RecordStore) get(id ksuid.KSUID) (envelope, error) {
	var env envelope
	value, closer, err := s.db.Get(recordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return env, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return env, errors.Wrapf(err, "read record %s", id)
	}
	defer closer.Close()

	// value is only valid until closer.Close
	if err := decMode.Unmarshal(value, &env); err != nil {
		return env, errors.Wrapf(err, "decode envelope %s", id)
	}
	return env, nil
}

// Read loads the record stored under id with the schema it was created with.
// A corrupt payload surfaces the codec error unchanged.
func (s *RecordStore) Read(id ksuid.KSUID) (*builder.Record, error) {
	env, err := s.get(id)
	if err != nil {
		return nil, err
	}
	schema, err := s.resolver.Schema(env.Schema)
	if err != nil {
		return nil, err
	}
	return schema.Load(env.Payload)
}

// Raw returns the serialized payload stored under id and its schema name.
func (s *RecordStore) Raw(id ksuid.KSUID) (string, []byte, error) {
	env, err := s.get(id)
	if err != nil {
		return "", nil, err
	}
	return env.Schema, env.Payload, nil
}

// Delete removes the record stored under id.
func (s *RecordStore) Delete(id ksuid.KSUID) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	if err := s.db.Delete(recordKey(id), pebble.Sync); err != nil {
		return errors.Wrapf(err, "delete record %s", id)
	}
	return nil
}

// List returns up to limit entries in id order, which for ksuids is creation
// order to the second. A limit of zero or less lists everything.
func (s *RecordStore) List(limit int) ([]Entry, error) {
	upper := append([]byte(nil), recordPrefix...)
	upper[len(upper)-1]++
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: recordPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open iterator")
	}
	defer iter.Close()

	entries := make([]Entry, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		id, err := ksuid.FromBytes(iter.Key()[len(recordPrefix):])
		if err != nil {
			return nil, errors.Wrap(err, "parse record key")
		}
		var env envelope
		if err := decMode.Unmarshal(iter.Value(), &env); err != nil {
			return nil, errors.Wrapf(err, "decode envelope %s", id)
		}
		entries = append(entries, Entry{
			ID:       id,
			Schema:   env.Schema,
			Size:     len(env.Payload),
			StoredAt: time.Unix(0, env.StoredAt).UTC(),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate records")
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *RecordStore) Close() error {
	logging.L().Info("record store closed")
	return s.db.Close()
}
