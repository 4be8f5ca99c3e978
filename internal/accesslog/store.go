package accesslog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// RecordRetention is how long an access record stays readable.
var RecordRetention = 30 * time.Minute

const keyPrefix = "al/"

// Record describes one handled request.
type Record struct {
	Client string    `json:"client"`
	Method string    `json:"method"`
	Path   string    `json:"path"`
	Proto  string    `json:"proto"`
	Time   time.Time `json:"time"`
}

// Store keeps recent access records in an in-memory badger database.
// Records expire after RecordRetention and never influence responses.
type Store struct {
	db  *badger.DB
	seq atomic.Uint64
}

func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Record persists rec under a time-ordered key with the retention TTL.
// Concurrent writers may get badger.ErrConflict; callers retry.
func (s *Store) Record(rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeRecord, err)
	}

	key := s.recordKey(rec.Time)
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, b).WithTTL(RecordRetention)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreRecord, err)
		}
		return nil
	})
}

// Recent returns up to n unexpired records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	var recs []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible record key.
		seek := append([]byte(keyPrefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seek); it.Valid() && len(recs) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var r Record
				if err := json.Unmarshal(val, &r); err != nil {
					return fmt.Errorf("%w: %v", ErrDecodeRecord, err)
				}
				recs = append(recs, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadRecords, err)
	}
	return recs, nil
}

// recordKey orders records by time; the sequence number breaks ties between
// requests landing on the same nanosecond.
func (s *Store) recordKey(t time.Time) []byte {
	key := make([]byte, 0, len(keyPrefix)+16)
	key = append(key, keyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(t.UnixNano()))
	key = binary.BigEndian.AppendUint64(key, s.seq.Add(1))
	return key
}
