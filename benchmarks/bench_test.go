package benchmarks

import (
	"fmt"
	"os"
	"runtime"
	"testing"

	"github.com/Giulio2002/bpkv"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

var benchSizes = []int{10_000, 100_000, 1_000_000}

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupBenchCache()
	os.Exit(code)
}

// shuffled returns 0..n-1 in a fixed pseudo-random order.
func shuffled(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := int(uint64(i*17+31) % uint64(i+1))
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// BenchmarkInsert measures building a store from empty.
func BenchmarkInsert(b *testing.B) {
	b.Run("Seq/bpkv", func(b *testing.B) { benchInsertBpkv(b, false) })
	b.Run("Rand/bpkv", func(b *testing.B) { benchInsertBpkv(b, true) })
	b.Run("Seq/bolt", func(b *testing.B) { benchInsertBolt(b, false) })
	b.Run("Rand/bolt", func(b *testing.B) { benchInsertBolt(b, true) })
}

func benchInsertBpkv(b *testing.B, random bool) {
	e, err := bpkv.Open("", benchOptions())
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()

	order := shuffled(b.N)
	k, v := make([]byte, 8), make([]byte, 32)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		n := i
		if random {
			n = order[i]
		}
		fill(k, v, n)
		if err := e.Put(k, v); err != nil {
			b.Fatal(err)
		}
	}
}

func benchInsertBolt(b *testing.B, random bool) {
	db, err := bolt.Open(b.TempDir()+"/insert.db", 0644, &bolt.Options{NoSync: true, NoFreelistSync: true})
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	tx, err := db.Begin(true)
	if err != nil {
		b.Fatal(err)
	}
	defer tx.Rollback()
	bucket, err := tx.CreateBucket(benchBucket)
	if err != nil {
		b.Fatal(err)
	}

	order := shuffled(b.N)
	k, v := make([]byte, 8), make([]byte, 32)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		n := i
		if random {
			n = order[i]
		}
		fill(k, v, n)
		if err := bucket.Put(k, v); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGet measures point lookups of present and absent keys on
// pre-populated stores.
func BenchmarkGet(b *testing.B) {
	for _, size := range benchSizes {
		name := formatSize(size)
		for _, miss := range []bool{false, true} {
			kind := "Hit"
			if miss {
				kind = "Miss"
			}
			b.Run(fmt.Sprintf("%s_%s/bpkv", kind, name), func(b *testing.B) { benchGetBpkv(b, size, miss) })
			b.Run(fmt.Sprintf("%s_%s/mdbx", kind, name), func(b *testing.B) { benchGetMdbx(b, size, miss) })
			b.Run(fmt.Sprintf("%s_%s/bolt", kind, name), func(b *testing.B) { benchGetBolt(b, size, miss) })
			b.Run(fmt.Sprintf("%s_%s/rocksdb", kind, name), func(b *testing.B) { benchGetRocksDB(b, size, miss) })
		}
	}
}

// probe returns the i-th lookup key; misses land past every stored key.
func probe(k []byte, i, size int, miss bool) {
	n := (i * 7919) % size
	if miss {
		n += size
	}
	var v [32]byte
	fill(k, v[:], n)
}

func benchGetBpkv(b *testing.B, size int, miss bool) {
	e := getCachedEngine(b, size)
	k := make([]byte, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		probe(k, i, size, miss)
		e.Get(k)
	}
}

func benchGetMdbx(b *testing.B, size int, miss bool) {
	env := getCachedMdbx(b, size)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	txn, err := env.BeginTxn(nil, mdbxgo.Readonly)
	if err != nil {
		b.Fatal(err)
	}
	defer txn.Abort()
	dbi, err := txn.OpenRoot(0)
	if err != nil {
		b.Fatal(err)
	}
	k := make([]byte, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		probe(k, i, size, miss)
		txn.Get(dbi, k)
	}
}

func benchGetBolt(b *testing.B, size int, miss bool) {
	db := getCachedBoltDB(b, size)

	tx, err := db.Begin(false)
	if err != nil {
		b.Fatal(err)
	}
	defer tx.Rollback()
	bucket := tx.Bucket(benchBucket)
	k := make([]byte, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		probe(k, i, size, miss)
		bucket.Get(k)
	}
}

func benchGetRocksDB(b *testing.B, size int, miss bool) {
	db := getCachedRocksDB(b, size)
	ro := gorocksdb.NewDefaultReadOptions()
	defer ro.Destroy()
	k := make([]byte, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		probe(k, i, size, miss)
		s, err := db.Get(ro, k)
		if err != nil {
			b.Fatal(err)
		}
		s.Free()
	}
}

// BenchmarkUpdate overwrites existing keys in place.
func BenchmarkUpdate(b *testing.B) {
	for _, size := range benchSizes {
		name := formatSize(size)
		b.Run(fmt.Sprintf("Update_%s/bpkv", name), func(b *testing.B) {
			e := getCachedEngine(b, size)
			order := shuffled(size)
			k, v := make([]byte, 8), make([]byte, 32)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				fill(k, v, order[i%size])
				if err := e.Put(k, v); err != nil {
					b.Fatal(err)
				}
			}
		})
		b.Run(fmt.Sprintf("Update_%s/rocksdb", name), func(b *testing.B) {
			db := getCachedRocksDB(b, size)
			wo := gorocksdb.NewDefaultWriteOptions()
			wo.DisableWAL(true) // others don't sync either
			defer wo.Destroy()
			order := shuffled(size)
			k, v := make([]byte, 8), make([]byte, 32)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				fill(k, v, order[i%size])
				db.Put(wo, k, v)
			}
		})
	}
}

// BenchmarkScan walks every entry in key order once per iteration.
func BenchmarkScan(b *testing.B) {
	for _, size := range benchSizes {
		name := formatSize(size)
		b.Run(fmt.Sprintf("Scan_%s/bpkv", name), func(b *testing.B) {
			e := getCachedEngine(b, size)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if n := e.ForEach(nil); n != size {
					b.Fatalf("visited %d, want %d", n, size)
				}
			}
		})
		b.Run(fmt.Sprintf("Scan_%s/mdbx", name), func(b *testing.B) {
			env := getCachedMdbx(b, size)
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			txn, err := env.BeginTxn(nil, mdbxgo.Readonly)
			if err != nil {
				b.Fatal(err)
			}
			defer txn.Abort()
			dbi, err := txn.OpenRoot(0)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c, err := txn.OpenCursor(dbi)
				if err != nil {
					b.Fatal(err)
				}
				n := 0
				for _, _, err = c.Get(nil, nil, mdbxgo.First); err == nil; _, _, err = c.Get(nil, nil, mdbxgo.Next) {
					n++
				}
				c.Close()
				if n != size {
					b.Fatalf("visited %d, want %d", n, size)
				}
			}
		})
		b.Run(fmt.Sprintf("Scan_%s/bolt", name), func(b *testing.B) {
			db := getCachedBoltDB(b, size)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				n := 0
				db.View(func(tx *bolt.Tx) error {
					c := tx.Bucket(benchBucket).Cursor()
					for k, _ := c.First(); k != nil; k, _ = c.Next() {
						n++
					}
					return nil
				})
				if n != size {
					b.Fatalf("visited %d, want %d", n, size)
				}
			}
		})
		b.Run(fmt.Sprintf("Scan_%s/rocksdb", name), func(b *testing.B) {
			db := getCachedRocksDB(b, size)
			ro := gorocksdb.NewDefaultReadOptions()
			defer ro.Destroy()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				it := db.NewIterator(ro)
				n := 0
				for it.SeekToFirst(); it.Valid(); it.Next() {
					n++
				}
				it.Close()
				if n != size {
					b.Fatalf("visited %d, want %d", n, size)
				}
			}
		})
	}
}

// BenchmarkRange measures short bounded scans through the cursor.
func BenchmarkRange(b *testing.B) {
	const span = 100
	for _, size := range benchSizes {
		e := getCachedEngine(b, size)
		b.Run(fmt.Sprintf("Range100_%s/bpkv", formatSize(size)), func(b *testing.B) {
			from, to := make([]byte, 8), make([]byte, 8)
			var v [32]byte
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				start := (i * 7919) % (size - span)
				fill(from, v[:], start)
				fill(to, v[:], start+span-1)
				if n := e.Range(from, to, nil); n != span {
					b.Fatalf("visited %d, want %d", n, span)
				}
			}
		})
	}
}

// BenchmarkSaveLoad measures the dump round trip.
func BenchmarkSaveLoad(b *testing.B) {
	for _, size := range benchSizes {
		name := formatSize(size)
		e := getCachedEngine(b, size)
		path := b.TempDir() + "/dump.db"
		b.Run(fmt.Sprintf("Save_%s/bpkv", name), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := e.Save(path); err != nil {
					b.Fatal(err)
				}
			}
		})
		b.Run(fmt.Sprintf("Load_%s/bpkv", name), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				loaded, err := bpkv.Load(path, benchOptions())
				if err != nil {
					b.Fatal(err)
				}
				if loaded.Len() != size {
					b.Fatalf("loaded %d, want %d", loaded.Len(), size)
				}
				loaded.Close()
			}
		})
	}
}
