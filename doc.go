// Package bpkv is an embedded, single-process, in-memory ordered key-value
// store with optional persistence to a dump file.
//
// Key features:
//   - B+ tree index with a doubly linked leaf chain for ordered scans
//   - Keys and values stored in one fixed-size arena, never freed piecemeal
//   - Triple-hash membership filter in front of the tree that grows as the
//     store fills
//   - Tombstone deletes; saving writes live entries only, so a save and
//     reload compacts the store
//   - Cursors with seek, forward and reverse iteration
//
// Keys are arbitrary byte strings ordered by Compare. An Engine is not safe
// for concurrent use.
//
// Basic usage:
//
//	db, err := bpkv.Open("/path/to/store.db", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close() // writes the dump
//
//	if err := db.Put([]byte("apple"), []byte("red")); err != nil {
//	    log.Fatal(err)
//	}
//
//	val, err := db.Get([]byte("apple"))
//	if bpkv.IsNotFound(err) {
//	    // absent or deleted
//	}
//
//	db.Range([]byte("a"), []byte("m"), func(k, v []byte) {
//	    fmt.Printf("%s=%s\n", k, v)
//	})
package bpkv
