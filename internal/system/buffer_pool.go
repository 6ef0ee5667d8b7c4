package system

import (
	"image"
	"sync"
)

// FramePool recycles *image.RGBA frames by size to keep the garbage collector
// quiet while thousands of frames are rendered.
type FramePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// Get returns a frame with undefined contents.
func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put ignores frames of a size the pool never handed out.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
