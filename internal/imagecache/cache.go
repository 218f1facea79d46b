// Package imagecache memoizes dithered watermark images by source identity.
package imagecache

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jonathan/resume-watermark/internal/dither"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxSourceBytes caps how much of a source image is read.
const DefaultMaxSourceBytes = 20 << 20

// ErrSourceNotFound is returned when an identity does not resolve to a source image.
var ErrSourceNotFound = errors.New("watermark source not found")

// Source resolves a source identity to raw image bytes.
type Source interface {
	Read(identity string) ([]byte, error)
}

// DirSource serves source images from a single directory. Identities are
// paths relative to that directory and may not escape it.
type DirSource struct {
	root     *os.Root
	maxBytes int64
}

// NewDirSource opens dir as a source root.
func NewDirSource(dir string, maxBytes int64) (*DirSource, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open watermark directory %s: %w", dir, err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}
	return &DirSource{root: root, maxBytes: maxBytes}, nil
}

// Read returns the bytes of the named source image.
func (s *DirSource) Read(identity string) ([]byte, error) {
	f, err := s.root.Open(identity)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, identity)
		}
		// os.Root rejects paths that escape the directory; report those as missing too.
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceNotFound, identity, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark source %s: %w", identity, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("watermark source %s exceeds %d bytes", identity, s.maxBytes)
	}
	return data, nil
}

// Close releases the directory handle.
func (s *DirSource) Close() error {
	return s.root.Close()
}

// Cache maps source identities to dithered images. Entries are write-once and
// live for the life of the process; there is no eviction.
type Cache struct {
	source    Source
	size      int
	maxPixels int
	entries   sync.Map // identity -> *dither.Image
	group     singleflight.Group
	count     atomic.Int64

	// compute turns source bytes into a dithered image; Atkinson by default.
	compute func(data []byte, size int) (*dither.Image, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxPixels caps the canvas a source image may declare before it is decoded.
func WithMaxPixels(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// New creates a cache that dithers images from source to size x size.
// source may be nil when only content-keyed entries are used.
func New(source Source, size int, opts ...Option) *Cache {
	if size <= 0 {
		panic(fmt.Sprintf("imagecache: invalid watermark size %d", size))
	}
	c := &Cache{
		source:    source,
		size:      size,
		maxPixels: dither.DefaultMaxPixels,
	}
	c.compute = func(data []byte, size int) (*dither.Image, error) {
		return dither.ProcessLimit(data, dither.MethodAtkinson, size, c.maxPixels)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the dithered image for identity, computing and storing it on first use.
func (c *Cache) GetOrCompute(identity string) (*dither.Image, error) {
	if img, ok := c.load(identity); ok {
		return img, nil
	}
	if c.source == nil {
		return nil, fmt.Errorf("%w: %s (no source configured)", ErrSourceNotFound, identity)
	}
	return c.fill(identity, func() ([]byte, error) {
		return c.source.Read(identity)
	})
}

// GetOrComputeBytes caches data under its content key and returns the key with the image.
func (c *Cache) GetOrComputeBytes(data []byte) (string, *dither.Image, error) {
	key := ContentKey(data)
	if img, ok := c.load(key); ok {
		return key, img, nil
	}
	img, err := c.fill(key, func() ([]byte, error) {
		return bytes.Clone(data), nil
	})
	return key, img, err
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return int(c.count.Load())
}

func (c *Cache) load(identity string) (*dither.Image, bool) {
	v, ok := c.entries.Load(identity)
	if !ok {
		return nil, false
	}
	return v.(*dither.Image), true
}

// fill computes the entry for identity. Concurrent misses share one computation;
// if two computations still race, the first stored value wins for everyone.
func (c *Cache) fill(identity string, read func() ([]byte, error)) (*dither.Image, error) {
	v, err, _ := c.group.Do(identity, func() (any, error) {
		if img, ok := c.load(identity); ok {
			return img, nil
		}
		data, err := read()
		if err != nil {
			return nil, err
		}
		img, err := c.compute(data, c.size)
		if err != nil {
			return nil, err
		}
		actual, loaded := c.entries.LoadOrStore(identity, img)
		if !loaded {
			c.count.Add(1)
			log.Printf("[cache] stored watermark %s (%d bytes)", shortKey(identity), len(img.PNG))
		}
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dither.Image), nil
}

// ContentKey derives a stable identity from image bytes.
func ContentKey(data []byte) string {
	sum := blake2b.Sum256(data)
	return "blake2b-" + hex.EncodeToString(sum[:])
}

func shortKey(identity string) string {
	if len(identity) > 24 {
		return identity[:24] + "…"
	}
	return identity
}
