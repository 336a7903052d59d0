package store

import "sync"

// Key prefixes. Every document lives under one of these namespaces;
// secondary indexes nest under "<prefix>idx:<name>:".
const (
	bookPrefix     = "book:"
	loanPrefix     = "loan:"
	studentPrefix  = "student:"
	issuerPrefix   = "issuer:"
	borrowerPrefix = "borrow:"

	// Ordered catalog index: book:idx:title:<sortkey>:<bookID> -> bookID.
	bookTitleIdxPrefix = "book:idx:title:"
	// Per-student ledger index: loan:idx:student:<rollNo>:<loanID> -> loanID.
	loanStudentIdxPrefix = "loan:idx:student:"
	// Active loan set: loan:idx:active:<loanID> -> loanID.
	loanActiveIdxPrefix = "loan:idx:active:"
)

// keyPool provides reusable byte slices for building database keys,
// keeping key construction off the allocator on hot lookup paths.
//
// Pooled keys are for txn.Get only. Badger holds the slices handed to
// txn.Set and txn.Delete until the transaction commits, so write paths
// allocate fresh keys instead.
var keyPool = sync.Pool{
	New: func() any {
		// 256 bytes covers prefix + index name + nanoid comfortably.
		return make([]byte, 0, 256)
	},
}

// buildKey constructs a lookup key from prefix and suffix using a pooled
// buffer. Callers MUST call releaseKey when done with the key.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// indexKey builds an index key as a fresh allocation, safe to hand to
// txn.Set and txn.Delete.
func indexKey(prefix, indexName, value string) []byte {
	return []byte(prefix + "idx:" + indexName + ":" + value)
}

// buildIndexKey constructs an index lookup key from prefix, index name, and
// value using a pooled buffer. Callers MUST call releaseKey when done with
// the key.
func buildIndexKey(prefix, indexName, value string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, "idx:"...)
	buf = append(buf, indexName...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	// Don't pool oversized buffers.
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
