package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxGallerySelection caps how many files of one gallery pick are kept
	MaxGallerySelection = 5
	DefaultMaxBytes     = 10 << 20
)

var (
	ErrNotImage = errors.New("not an image")
	ErrTooLarge = errors.New("image too large")
)

// Encoder turns image files into inline data URIs
type Encoder struct {
	maxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// Encode reads f and returns "data:<mime>;base64,<payload>"
func (e *Encoder) Encode(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, e.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name(), err)
	}
	if int64(len(data)) > e.maxBytes {
		return "", fmt.Errorf("%s: %w (limit %d bytes)", f.Name(), ErrTooLarge, e.maxBytes)
	}

	mime := mimetype.Detect(data).String()
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s: %w (%s)", f.Name(), ErrNotImage, mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// EncodeGallery encodes at most MaxGallerySelection files concurrently and
// returns the successes in selection order once every conversion finished.
// Files that cannot be encoded are skipped; their errors are combined into
// the returned error. A canceled context stops the remaining conversions and
// discards the whole selection.
func (e *Encoder) EncodeGallery(ctx context.Context, files []File) ([]string, error) {
	if len(files) > MaxGallerySelection {
		files = files[:MaxGallerySelection]
	}

	uris := make([]string, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			uri, err := e.Encode(gctx, f)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			uris[i], errs[i] = uri, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		out    []string
		failed error
	)
	for i := range files {
		if errs[i] != nil {
			failed = multierr.Append(failed, errs[i])
			continue
		}
		out = append(out, uris[i])
	}
	return out, failed
}
