// Package tokenstore defines the session token Store and provides durable
// and in-memory implementations of it.
//
// FileStore keeps the pair in a JSON document and is what the CLI uses by
// default. RedisStore keeps it under two fixed keys so several processes can
// share one session. MemoryStore is process-local and mostly useful in tests.
package tokenstore
