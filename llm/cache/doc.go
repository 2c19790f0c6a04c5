/*
Package cache implements the fingerprint-keyed response cache for the query
pipeline.

A fingerprint is the SHA-256 hash of the canonical serialization of the
cache-relevant request fields (prompt, model, temperature, system prompt);
fields like session IDs or verbosity flags never influence cache identity.

ResponseCache sits on top of a pluggable Store. Three backends are provided:
one JSON file per fingerprint under a cache root (FileStore), Redis
(RedisStore), and SQLite (SQLiteStore). Entries carry their write timestamp
and are treated as absent once older than the configured TTL; stale entries
are deleted lazily on read.

Cache failures are absorbed: a read or write error is logged and the query
proceeds as if the cache were empty. Concurrent writers to the same
fingerprint race with last-writer-wins semantics, which is acceptable
because entries for identical fingerprints are interchangeable.
*/
package cache
