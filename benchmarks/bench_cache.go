package benchmarks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/Giulio2002/bpkv"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

// Cached benchmark database directory
const benchCacheDir = "testdata/benchdb"

// benchArenaSize leaves room for tens of millions of value updates.
const benchArenaSize = 1 << 30

var (
	cacheMu  sync.Mutex
	engines  = make(map[string]*bpkv.Engine)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs  = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
)

var benchBucket = []byte("bench")

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func formatSize(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%dM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%dk", n/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// fill writes the big-endian key i and a 32-byte value derived from i.
func fill(key, val []byte, i int) {
	binary.BigEndian.PutUint64(key, uint64(i))
	binary.BigEndian.PutUint64(val, uint64(i))
}

func benchOptions() *bpkv.Options {
	opts := bpkv.DefaultOptions()
	opts.ArenaSize = benchArenaSize
	opts.NoLock = true
	return opts
}

// getCachedEngine returns a populated engine. The dump is kept in
// testdata/benchdb so later runs measure a load instead of a rebuild.
func getCachedEngine(b *testing.B, size int) *bpkv.Engine {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("plain_%d", size)
	if e, ok := engines[key]; ok {
		return e
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_bpkv.db", size))

	var (
		e   *bpkv.Engine
		err error
	)
	if fileExists(path) {
		b.Logf("Loading cached bpkv dump with %d keys", size)
		e, err = bpkv.Load(path, benchOptions())
		if err != nil {
			b.Fatal(err)
		}
	} else {
		b.Logf("Creating cached bpkv dump with %d keys...", size)
		e, err = bpkv.Open("", benchOptions())
		if err != nil {
			b.Fatal(err)
		}
		k, v := make([]byte, 8), make([]byte, 32)
		for i := 0; i < size; i++ {
			fill(k, v, i)
			if err := e.Put(k, v); err != nil {
				b.Fatal(err)
			}
		}
		if err := e.Save(path); err != nil {
			b.Fatal(err)
		}
	}

	engines[key] = e
	return e
}

// getCachedMdbx returns a populated libmdbx environment using the main DBI.
func getCachedMdbx(b *testing.B, size int) *mdbxgo.Env {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("mdbx_%d", size)
	if env, ok := mdbxEnvs[key]; ok {
		return env
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_mdbx.db", size))
	exists := fileExists(path)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		b.Fatal(err)
	}
	env.SetGeometry(-1, -1, 1<<32, -1, -1, 4096) // 4GB max
	if err := env.Open(path, mdbxgo.Create|mdbxgo.NoSubdir|mdbxgo.NoMetaSync|mdbxgo.WriteMap, 0644); err != nil {
		env.Close()
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached mdbx DB with %d keys...", size)
		txn, err := env.BeginTxn(nil, 0)
		if err != nil {
			b.Fatal(err)
		}
		dbi, err := txn.OpenRoot(0)
		if err != nil {
			txn.Abort()
			b.Fatal(err)
		}
		k, v := make([]byte, 8), make([]byte, 32)
		for i := 0; i < size; i++ {
			fill(k, v, i)
			if err := txn.Put(dbi, k, v, 0); err != nil {
				txn.Abort()
				b.Fatal(err)
			}
		}
		if _, err := txn.Commit(); err != nil {
			b.Fatal(err)
		}
	}

	mdbxEnvs[key] = env
	return env
}

func getCachedBoltDB(b *testing.B, size int) *bolt.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("bolt_%d", size)
	if db, ok := boltDBs[key]; ok {
		return db
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_bolt.db", size))
	exists := fileExists(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{
		NoSync:         true,
		NoFreelistSync: true,
	})
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached BoltDB with %d keys...", size)
		const batchSize = 100_000
		k, v := make([]byte, 8), make([]byte, 32)
		for written := 0; written < size; written += batchSize {
			err := db.Update(func(tx *bolt.Tx) error {
				bucket, err := tx.CreateBucketIfNotExists(benchBucket)
				if err != nil {
					return err
				}
				for i := written; i < min(written+batchSize, size); i++ {
					fill(k, v, i)
					if err := bucket.Put(k, v); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	boltDBs[key] = db
	return db
}

func getCachedRocksDB(b *testing.B, size int) *gorocksdb.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("rocks_%d", size)
	if db, ok := rocksDBs[key]; ok {
		return db
	}
	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_rocks.db", size))
	exists := fileExists(path)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetWriteBufferSize(64 * 1024 * 1024) // 64MB write buffer
	opts.SetMaxWriteBufferNumber(3)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached RocksDB with %d keys...", size)
		wo := gorocksdb.NewDefaultWriteOptions()
		defer wo.Destroy()
		batch := gorocksdb.NewWriteBatch()
		defer batch.Destroy()

		k, v := make([]byte, 8), make([]byte, 32)
		for i := 0; i < size; i++ {
			fill(k, v, i)
			batch.Put(k, v)
			if (i+1)%100_000 == 0 {
				if err := db.Write(wo, batch); err != nil {
					b.Fatal(err)
				}
				batch.Clear()
			}
		}
		if batch.Count() > 0 {
			if err := db.Write(wo, batch); err != nil {
				b.Fatal(err)
			}
		}
	}

	rocksDBs[key] = db
	return db
}

// CleanupBenchCache closes all cached stores.
func CleanupBenchCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	for _, e := range engines {
		e.Close()
	}
	for _, env := range mdbxEnvs {
		env.Close()
	}
	for _, db := range boltDBs {
		db.Close()
	}
	for _, db := range rocksDBs {
		db.Close()
	}
	engines = make(map[string]*bpkv.Engine)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
}

// DeleteBenchCache removes all cached database files.
func DeleteBenchCache() error {
	return os.RemoveAll(benchCacheDir)
}
