package sources

import (
	"context"
	"fmt"
	"sync"
)

type Loader interface {
	Load(ctx context.Context, value string, maxItems int) ([]string, error)
}

var (
	loaders = make(map[string]Loader)
	mu      sync.RWMutex
)

func RegisterLoader(kind string, loader Loader) {
	mu.Lock()
	defer mu.Unlock()
	loaders[kind] = loader
}

func GetLoader(kind string) (Loader, error) {
	mu.RLock()
	defer mu.RUnlock()

	loader, exists := loaders[kind]
	if !exists {
		return nil, fmt.Errorf("unknown input type: %s", kind)
	}

	return loader, nil
}
