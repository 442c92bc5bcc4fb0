package render

import (
	"image"
	_ "image/gif"  // Support GIF format
	_ "image/jpeg" // Support JPEG format
	_ "image/png"  // Support PNG format
	"io/fs"
	"log"
	"sync"

	"sparkfx/internal/fxerr"

	_ "golang.org/x/image/webp" // Support WebP format
)

// AssetLoader decodes images from a filesystem and keeps them for the
// process lifetime. Only table cell renderers call it.
type AssetLoader struct {
	mu     sync.RWMutex
	fsys   fs.FS
	images map[string]image.Image
}

// NewAssetLoader creates a loader reading from fsys (os.DirFS in production,
// fstest.MapFS in tests).
func NewAssetLoader(fsys fs.FS) *AssetLoader {
	return &AssetLoader{
		fsys:   fsys,
		images: make(map[string]image.Image),
	}
}

// Load returns the decoded image for name. Missing or undecodable files are
// reported as ErrResourceUnavailable.
func (l *AssetLoader) Load(name string) (image.Image, error) {
	l.mu.RLock()
	img, ok := l.images[name]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	if l.fsys == nil {
		return nil, fxerr.Unavailable(nil, "no asset filesystem for %q", name)
	}

	f, err := l.fsys.Open(name)
	if err != nil {
		return nil, fxerr.Unavailable(err, "open asset %q", name)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fxerr.Unavailable(err, "decode asset %q", name)
	}

	l.mu.Lock()
	l.images[name] = img
	l.mu.Unlock()

	log.Printf("🖼️ Asset loaded: %s (%s, %dx%d)", name, format, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

// Len returns the number of cached images.
func (l *AssetLoader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.images)
}
