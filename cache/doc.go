// Package cache provides the cache and pub/sub collaborator used by the health
// probes, the recovery actions and the notification transport.
//
// Two implementations satisfy Client: MemoryCache for embedded use and tests,
// and RedisCache backed by go-redis, which also publishes notifications and
// can rebuild its connection pool on demand.
package cache
