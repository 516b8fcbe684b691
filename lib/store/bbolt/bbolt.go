// Package bbolt implements the solution store on top of bbolt[1], for single
// instance deployments that want challenges to survive a process restart.
//
// The database holds two top-level buckets: "data" maps keys to their raw
// values and "expiry" maps the same keys to their deadline as big-endian unix
// nanoseconds. Keeping deadlines in a separate bucket lets the cleanup pass
// scan them without decoding any payloads.
//
// bbolt locks the database file, so it is not suitable when multiple notegate
// instances need to share one backend store. Use the valkey backend for that.
//
// [1]: https://github.com/etcd-io/bbolt
package bbolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/notegate/notegate/lib/store"
)

var (
	bucketData   = []byte("data")
	bucketExpiry = []byte("expiry")

	// ErrNotExists is used in admin-visible error messages when a key is
	// absent from the database.
	ErrNotExists = errors.New("bbolt: value does not exist in store")
)

// Store implements store.Interface backed by a bbolt database.
type Store struct {
	bdb *bbolt.DB
}

func deadlineBytes(t time.Time) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.UnixNano()))
	return buf[:]
}

func deadlineFromBytes(raw []byte) (time.Time, error) {
	if len(raw) != 8 {
		return time.Time{}, fmt.Errorf("%w: deadline is %d bytes, want 8", store.ErrCantDecode, len(raw))
	}

	return time.Unix(0, int64(binary.BigEndian.Uint64(raw))), nil
}

// Delete removes a key and its deadline. Deleting an absent key is an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketData)
		if data == nil || data.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %q", ErrNotExists, key)
		}

		if err := data.Delete([]byte(key)); err != nil {
			return err
		}

		if expiry := tx.Bucket(bucketExpiry); expiry != nil {
			return expiry.Delete([]byte(key))
		}

		return nil
	})
}

// Get fetches a value, treating an expired entry as absent. Expired entries
// are reaped in the background rather than holding the read transaction open.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		data, expiry := tx.Bucket(bucketData), tx.Bucket(bucketExpiry)
		if data == nil || expiry == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		rawDeadline := expiry.Get([]byte(key))
		if rawDeadline == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		deadline, err := deadlineFromBytes(rawDeadline)
		if err != nil {
			return fmt.Errorf("[unexpected] %w (key %q)", err, key)
		}

		if time.Now().After(deadline) {
			go s.Delete(context.Background(), key)
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		raw := data.Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("[unexpected] %w: %q (deadline without data)", store.ErrNotFound, key)
		}

		// bbolt memory is only valid inside the transaction
		result = make([]byte, len(raw))
		copy(result, raw)

		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// Set stores a value with its deadline.
func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	deadline := time.Now().Add(expiry)

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		data, err := tx.CreateBucketIfNotExists(bucketData)
		if err != nil {
			return fmt.Errorf("%w: %w (data bucket)", store.ErrCantEncode, err)
		}

		deadlines, err := tx.CreateBucketIfNotExists(bucketExpiry)
		if err != nil {
			return fmt.Errorf("%w: %w (expiry bucket)", store.ErrCantEncode, err)
		}

		if err := data.Put([]byte(key), value); err != nil {
			return fmt.Errorf("%w: %q (data)", store.ErrCantEncode, key)
		}

		if err := deadlines.Put([]byte(key), deadlineBytes(deadline)); err != nil {
			return fmt.Errorf("%w: %q (expiry)", store.ErrCantEncode, key)
		}

		return nil
	})
}

func (s *Store) cleanup(ctx context.Context) error {
	now := time.Now()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		data, deadlines := tx.Bucket(bucketData), tx.Bucket(bucketExpiry)
		if data == nil || deadlines == nil {
			return nil
		}

		cur := deadlines.Cursor()
		for key, rawDeadline := cur.First(); key != nil; key, rawDeadline = cur.Next() {
			deadline, err := deadlineFromBytes(rawDeadline)
			if err != nil {
				slog.Warn("while running cleanup, deadline does not decode, file a bug?", "key", string(key), "err", err)
				continue
			}

			if now.After(deadline) {
				if err := cur.Delete(); err != nil {
					return err
				}
				if err := data.Delete(key); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (s *Store) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.cleanup(ctx); err != nil {
				slog.Error("error during bbolt cleanup", "err", err)
			}
		}
	}
}
