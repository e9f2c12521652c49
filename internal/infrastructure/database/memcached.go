package database

import (
	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached opens the client the person repository uses as a
// read-through cache.
func NewMemcached(server string) *memcache.Client {
	return memcache.New(server)
}
