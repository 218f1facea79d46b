package warmup

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	registry *fonts.Registry
	calls    atomic.Int32
	block    chan struct{}
	err      error
}

func (f *fakeTarget) Fonts() *fonts.Registry { return f.registry }

func (f *fakeTarget) Render(doc *types.Document, watermark *dither.Image) (*rendering.RenderedDocument, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &rendering.RenderedDocument{PDF: []byte("%PDF-"), Pages: 1}, nil
}

func TestRun_RealRenderer(t *testing.T) {
	r := rendering.New(fonts.NewRegistry(""), rendering.Options{})
	d := New(r, 0)

	d.Run(context.Background())

	assert.True(t, d.Done())
	assert.NoError(t, d.Err())
	assert.True(t, r.Fonts().Registered())
}

func TestRun_OnlyOnce(t *testing.T) {
	target := &fakeTarget{registry: fonts.NewRegistry("")}
	d := New(target, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(context.Background())
		}()
	}
	wg.Wait()
	d.Run(context.Background())

	assert.Equal(t, int32(1), target.calls.Load())
	assert.True(t, d.Done())
}

func TestRun_FailureIsSwallowed(t *testing.T) {
	boom := errors.New("boom")
	target := &fakeTarget{registry: fonts.NewRegistry(""), err: boom}
	d := New(target, time.Second)

	d.Run(context.Background())

	assert.False(t, d.Done())
	assert.ErrorIs(t, d.Err(), boom)
}

func TestRun_FontFailureIsSwallowed(t *testing.T) {
	target := &fakeTarget{registry: fonts.NewRegistry(t.TempDir())}
	d := New(target, time.Second)

	d.Run(context.Background())

	assert.False(t, d.Done())
	var regErr *fonts.RegistrationError
	assert.ErrorAs(t, d.Err(), &regErr)
	assert.Zero(t, target.calls.Load())
}

func TestRun_Timeout(t *testing.T) {
	target := &fakeTarget{registry: fonts.NewRegistry(""), block: make(chan struct{})}
	d := New(target, 20*time.Millisecond)

	start := time.Now()
	d.Run(context.Background())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, d.Err(), context.DeadlineExceeded)
	assert.False(t, d.Done())

	// the abandoned render still marks the driver warm once it finishes
	close(target.block)
	assert.Eventually(t, d.Done, 2*time.Second, 5*time.Millisecond)
}

func TestRun_CancelledContext(t *testing.T) {
	target := &fakeTarget{registry: fonts.NewRegistry(""), block: make(chan struct{})}
	defer close(target.block)
	d := New(target, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.ErrorIs(t, d.Err(), context.Canceled)
}

func TestSample(t *testing.T) {
	img, err := Sample()
	require.NoError(t, err)
	assert.Equal(t, 128, img.Width)
	assert.Equal(t, 128, img.Height)

	decoded, err := dither.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	b := decoded.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := color.GrayModel.Convert(decoded.At(x, y)).(color.Gray).Y
			require.True(t, v == 0 || v == 255, "pixel (%d,%d) = %d", x, y, v)
		}
	}
}

func TestPlaceholderIsValid(t *testing.T) {
	assert.NoError(t, Placeholder().Validate())
}
