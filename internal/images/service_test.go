package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/johnrirwin/devicedesk/internal/cache"
	"github.com/johnrirwin/devicedesk/internal/testutil"
)

type fakeDownloader struct {
	body  []byte
	err   error
	calls int
}

func (f *fakeDownloader) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.body)), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnail_FitsWithinBounds(t *testing.T) {
	dl := &fakeDownloader{body: pngBytes(t, 400, 200)}
	svc := NewService(dl, nil, Config{Width: 100, Height: 100}, testutil.NullLogger())

	out, err := svc.Thumbnail(context.Background(), "https://img.example.net/phone.png")
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %s, want jpeg", format)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("size = %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

func TestThumbnail_SmallImageKeepsSize(t *testing.T) {
	dl := &fakeDownloader{body: pngBytes(t, 40, 30)}
	svc := NewService(dl, nil, Config{Width: 100, Height: 100}, testutil.NullLogger())

	out, err := svc.Thumbnail(context.Background(), "https://img.example.net/small.png")
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("size = %dx%d, want 40x30", b.Dx(), b.Dy())
	}
}

func TestThumbnail_Cached(t *testing.T) {
	dl := &fakeDownloader{body: pngBytes(t, 50, 50)}
	c := cache.NewMemory(time.Minute)
	defer c.Stop()
	svc := NewService(dl, c, Config{}, testutil.NullLogger())

	first, err := svc.Thumbnail(context.Background(), "https://img.example.net/a.png")
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	second, err := svc.Thumbnail(context.Background(), "https://img.example.net/a.png")
	if err != nil {
		t.Fatalf("Thumbnail() second error = %v", err)
	}
	if dl.calls != 1 {
		t.Errorf("downloads = %d, want 1", dl.calls)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached thumbnail differs")
	}
}

func TestThumbnail_Errors(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dl      *fakeDownloader
		cfg     Config
		wantErr error
	}{
		{"no url", "  ", &fakeDownloader{}, Config{}, ErrNoImage},
		{"not an image", "https://x/a", &fakeDownloader{body: []byte("<html>nope</html>")}, Config{}, ErrUnsupportedImage},
		{"too large", "https://x/a", &fakeDownloader{body: bytes.Repeat([]byte{0xFF}, 64)}, Config{MaxBytes: 32}, ErrImageTooLarge},
		{"download failure", "https://x/a", &fakeDownloader{err: errors.New("boom")}, Config{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.dl, nil, tt.cfg, testutil.NullLogger())
			_, err := svc.Thumbnail(context.Background(), tt.url)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && !strings.Contains(err.Error(), "download") {
				t.Errorf("error = %v, want download error", err)
			}
		})
	}
}
