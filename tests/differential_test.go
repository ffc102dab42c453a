// Package tests cross-checks bpkv ordering and seek semantics against
// bbolt and libmdbx. Both stores are driven with the same workload and
// every ordered read must agree.
package tests

import (
	"bytes"
	"fmt"
	"math/rand"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/bpkv"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
	bolt "go.etcd.io/bbolt"
)

var bucket = []byte("kv")

type op struct {
	del   bool
	key   []byte
	value []byte
}

// randomWorkload produces puts and deletes over a small key space so that
// updates, deletes and reinserts of the same key are frequent. Keys are
// never empty; neither reference store accepts an empty key.
func randomWorkload(seed int64, n int) []op {
	rng := rand.New(rand.NewSource(seed))
	ops := make([]op, n)
	for i := range ops {
		key := make([]byte, 1+rng.Intn(6))
		for j := range key {
			// includes 0x00 and 0xff to exercise binary ordering
			key[j] = []byte{0x00, 'a', 'b', 'c', 0x7f, 0xff}[rng.Intn(6)]
		}
		ops[i] = op{key: key}
		if rng.Intn(4) == 0 {
			ops[i].del = true
			continue
		}
		ops[i].value = []byte(fmt.Sprintf("v%d", i))
	}
	return ops
}

func openBpkv(t *testing.T, order int) *bpkv.Engine {
	t.Helper()
	opts := bpkv.DefaultOptions()
	opts.ArenaSize = 32 << 20
	opts.Order = order
	e, err := bpkv.Open("", opts)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func openBolt(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "bolt.db"), 0600, &bolt.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}))
	return db
}

func apply(t *testing.T, e *bpkv.Engine, db *bolt.DB, ops []op) {
	t.Helper()
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for _, o := range ops {
			if o.del {
				err := e.Delete(o.key)
				if err != nil && !bpkv.IsNotFound(err) {
					return err
				}
				if err := b.Delete(o.key); err != nil {
					return err
				}
				continue
			}
			if err := e.Put(o.key, o.value); err != nil {
				return err
			}
			if err := b.Put(o.key, o.value); err != nil {
				return err
			}
		}
		return nil
	}))
}

type kv struct{ k, v string }

func boltScan(t *testing.T, db *bolt.DB, reverse bool) []kv {
	t.Helper()
	var out []kv
	require.NoError(t, db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		if reverse {
			for k, v := c.Last(); k != nil; k, v = c.Prev() {
				out = append(out, kv{string(k), string(v)})
			}
			return nil
		}
		for k, v := c.First(); k != nil; k, v = c.Next() {
			out = append(out, kv{string(k), string(v)})
		}
		return nil
	}))
	return out
}

func bpkvScan(t *testing.T, e *bpkv.Engine, reverse bool) []kv {
	t.Helper()
	c, err := e.OpenCursor()
	require.NoError(t, err)
	defer c.Close()

	var out []kv
	if reverse {
		for ok := c.Last(); ok; ok = c.Prev() {
			out = append(out, kv{string(c.Key()), string(c.Value())})
		}
		return out
	}
	for ok := c.First(); ok; ok = c.Next() {
		out = append(out, kv{string(c.Key()), string(c.Value())})
	}
	return out
}

func TestDifferentialBolt(t *testing.T) {
	for _, order := range []int{4, 9, 64} {
		t.Run(fmt.Sprintf("order=%d", order), func(t *testing.T) {
			e := openBpkv(t, order)
			db := openBolt(t)
			apply(t, e, db, randomWorkload(int64(order), 20000))

			fwd := boltScan(t, db, false)
			require.Equal(t, fwd, bpkvScan(t, e, false))
			require.Equal(t, boltScan(t, db, true), bpkvScan(t, e, true))
			require.Equal(t, len(fwd), e.Len())

			for _, p := range fwd {
				v, err := e.Get([]byte(p.k))
				require.NoError(t, err)
				require.Equal(t, p.v, string(v))
			}
		})
	}
}

func TestDifferentialBoltSeekAndRange(t *testing.T) {
	e := openBpkv(t, 5)
	db := openBolt(t)
	apply(t, e, db, randomWorkload(42, 10000))

	rng := rand.New(rand.NewSource(43))
	probes := randomWorkload(44, 500)

	c, err := e.OpenCursor()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, db.View(func(tx *bolt.Tx) error {
		bc := tx.Bucket(bucket).Cursor()
		for _, p := range probes {
			wk, wv := bc.Seek(p.key)
			ok := c.Seek(p.key)
			require.Equal(t, wk != nil, ok, "seek %x", p.key)
			if ok {
				require.Equal(t, wk, c.Key(), "seek %x", p.key)
				require.Equal(t, wv, c.Value(), "seek %x", p.key)
			}

			// range [from, to] against a bolt cursor loop
			from, to := p.key, probes[rng.Intn(len(probes))].key
			if bytes.Compare(from, to) > 0 {
				from, to = to, from
			}
			var want [][]byte
			for k, _ := bc.Seek(from); k != nil && bytes.Compare(k, to) <= 0; k, _ = bc.Next() {
				want = append(want, bytes.Clone(k))
			}
			var got [][]byte
			n := e.Range(from, to, func(k, _ []byte) {
				got = append(got, bytes.Clone(k))
			})
			require.Equal(t, len(want), n)
			require.Equal(t, want, got, "range %x..%x", from, to)
		}
		return nil
	}))
}

func TestSeekMatchesLibmdbx(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := mdbx.NewEnv(mdbx.Label("bpkv-seek"))
	require.NoError(t, err)
	defer env.Close()
	env.SetGeometry(-1, -1, 1<<30, -1, -1, 4096)
	require.NoError(t, env.Open(t.TempDir(), mdbx.Create, 0644))

	e := openBpkv(t, 6)
	ops := randomWorkload(7, 8000)

	txn, err := env.BeginTxn(nil, 0)
	require.NoError(t, err)
	dbi, err := txn.OpenRoot(0)
	require.NoError(t, err)
	for _, o := range ops {
		if o.del {
			if err := txn.Del(dbi, o.key, nil); err != nil && !mdbx.IsNotFound(err) {
				t.Fatal(err)
			}
			e.Delete(o.key)
			continue
		}
		require.NoError(t, txn.Put(dbi, o.key, o.value, 0))
		require.NoError(t, e.Put(o.key, o.value))
	}
	_, err = txn.Commit()
	require.NoError(t, err)

	rtxn, err := env.BeginTxn(nil, mdbx.Readonly)
	require.NoError(t, err)
	defer rtxn.Abort()
	mc, err := rtxn.OpenCursor(dbi)
	require.NoError(t, err)
	defer mc.Close()

	c, err := e.OpenCursor()
	require.NoError(t, err)
	defer c.Close()

	for _, p := range randomWorkload(8, 1000) {
		wk, wv, werr := mc.Get(p.key, nil, mdbx.SetRange)
		gk, gv, gerr := c.Get(p.key, bpkv.SetRange)
		if mdbx.IsNotFound(werr) {
			require.True(t, bpkv.IsNotFound(gerr), "SetRange %x: bpkv found %x", p.key, gk)
			continue
		}
		require.NoError(t, werr)
		require.NoError(t, gerr)
		require.Equal(t, wk, gk, "SetRange %x", p.key)
		require.Equal(t, wv, gv, "SetRange %x", p.key)

		// the next few entries agree as well
		for i := 0; i < 3; i++ {
			wk, _, werr = mc.Get(nil, nil, mdbx.Next)
			gk, _, gerr = c.Get(nil, bpkv.Next)
			require.Equal(t, mdbx.IsNotFound(werr), bpkv.IsNotFound(gerr))
			if werr != nil {
				break
			}
			require.Equal(t, wk, gk)
		}
	}
}
