package system

import (
	"image"
	"sync"

	"github.com/ivlev/greenscreen/internal/chroma"
)

// FramePool reuses *chroma.Image buffers keyed by size, so a capture loop
// producing same-sized output frames does not allocate per frame.
type FramePool struct {
	pools map[image.Point]*sync.Pool
	mu    sync.RWMutex
}

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns a frame of the requested size. Contents are undefined.
func (p *FramePool) Get(width, height int) *chroma.Image {
	key := image.Pt(width, height)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return chroma.NewImage(width, height)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*chroma.Image)
}

// Put hands a frame back. Frames of sizes never requested are dropped.
func (p *FramePool) Put(img *chroma.Image) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Size()]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
