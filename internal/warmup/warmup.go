// Package warmup pays the renderer's cold-start cost once, before real traffic.
package warmup

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"image/png"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/types"
)

// DefaultTimeout bounds how long startup waits for the warmup render.
const DefaultTimeout = 15 * time.Second

// samplePNG is an already-dithered watermark, so warmup never runs the dither engine.
//
//go:embed sample.png
var samplePNG []byte

// Target is the renderer being warmed.
type Target interface {
	Fonts() *fonts.Registry
	Render(doc *types.Document, watermark *dither.Image) (*rendering.RenderedDocument, error)
}

// Driver runs the warmup render exactly once.
type Driver struct {
	target  Target
	timeout time.Duration

	once sync.Once
	warm atomic.Bool

	mu  sync.Mutex
	err error
}

// New creates a driver for target. A non-positive timeout uses DefaultTimeout.
func New(target Target, timeout time.Duration) *Driver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Driver{target: target, timeout: timeout}
}

// Run registers fonts and renders a placeholder document, discarding the output.
// Only the first call does any work. Failures and timeouts are logged, never
// returned: the first real request then pays the cost instead.
func (d *Driver) Run(ctx context.Context) {
	d.once.Do(func() {
		d.run(ctx)
	})
}

func (d *Driver) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result := make(chan error, 1)
	go func() {
		result <- d.render()
	}()

	select {
	case err := <-result:
		if err != nil {
			d.setErr(err)
			log.Printf("[warmup] failed after %v: %v", time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("[warmup] completed in %v", time.Since(start).Round(time.Millisecond))
	case <-ctx.Done():
		d.setErr(ctx.Err())
		log.Printf("[warmup] gave up after %v: %v; continuing startup", time.Since(start).Round(time.Millisecond), ctx.Err())
	}
}

// render marks the driver warm when it succeeds, even if Run already gave up waiting.
func (d *Driver) render() error {
	if err := d.target.Fonts().Register(); err != nil {
		return err
	}
	mark, err := Sample()
	if err != nil {
		return err
	}
	if _, err := d.target.Render(Placeholder(), mark); err != nil {
		return err
	}
	d.warm.Store(true)
	return nil
}

func (d *Driver) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Done reports whether a warmup render has completed successfully.
func (d *Driver) Done() bool {
	return d.warm.Load()
}

// Err returns the failure Run logged, if any.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Sample returns the embedded pre-dithered watermark.
func Sample() (*dither.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(samplePNG))
	if err != nil {
		return nil, fmt.Errorf("embedded sample watermark is corrupt: %w", err)
	}
	return &dither.Image{PNG: samplePNG, Width: cfg.Width, Height: cfg.Height}, nil
}

// Placeholder is the minimal document rendered during warmup. It touches every
// section so each font variant the layout uses is exercised.
func Placeholder() *types.Document {
	return &types.Document{
		Contact: types.Contact{
			Name:     "Warmup Placeholder",
			Email:    "warmup@example.com",
			Location: "Nowhere",
		},
		Summary: "Placeholder summary.",
		Experience: []types.Experience{
			{Title: "Role", Company: "Company", StartDate: "2020", Bullets: []string{"Placeholder bullet."}},
		},
		Education: []types.Education{
			{Degree: "Degree", School: "School", GPA: "4.0"},
		},
		Skills:         []string{"Go"},
		Certifications: []string{"Certification"},
	}
}
