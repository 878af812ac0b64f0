package cache

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pokewin/pokewin/config"
)

// The cache holds large objects that are expensive to build and are shared
// read-only for the life of the process: loaded corpora, extraction
// contexts, type charts.
//
// A load function may itself load other keys (a context needs its training
// corpus), so the map lock is never held while loading. Concurrent requests
// for the same key wait for a single load.

type entry struct {
	once sync.Once
	obj  interface{}
	err  error
}

type cache struct {
	sync.Mutex
	objects map[string]*entry
}

type loadFunc func(cfg *config.Config, key string) (interface{}, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache
var createOnce sync.Once

func (c *cache) get(cfg *config.Config, key string, loadFunc loadFunc) (interface{}, error) {
	c.Lock()
	e, ok := c.objects[key]
	if !ok {
		e = &entry{}
		c.objects[key] = e
	}
	c.Unlock()

	if ok {
		log.Debug().Str("key", key).Msg("getting obj from cache")
	}
	e.once.Do(func() {
		log.Debug().Str("key", key).Msg("loading into cache")
		e.obj, e.err = loadFunc(cfg, key)
	})
	if e.err != nil {
		// Don't keep failures around; the next caller tries again.
		c.Lock()
		if c.objects[key] == e {
			delete(c.objects, key)
		}
		c.Unlock()
		return nil, e.err
	}
	return e.obj, nil
}

func CreateGlobalObjectCache() {
	createOnce.Do(func() {
		GlobalObjectCache = &cache{objects: make(map[string]*entry)}
	})
}

// Load returns the object stored under key, calling loadFunc to build it
// the first time.
func Load(cfg *config.Config, key string, loadFunc loadFunc) (interface{}, error) {
	CreateGlobalObjectCache()
	return GlobalObjectCache.get(cfg, key, loadFunc)
}

// Forget drops a key, so the next Load rebuilds it.
func Forget(key string) {
	CreateGlobalObjectCache()
	GlobalObjectCache.Lock()
	defer GlobalObjectCache.Unlock()
	delete(GlobalObjectCache.objects, key)
}
