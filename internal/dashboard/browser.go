package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned by Enter for empty names and "." or ".."
// segments.
var ErrInvalidPath = errors.New("invalid directory name")

// Browser walks the directory tree of one PVC. It never moves above the PVC
// root.
type Browser struct {
	pvc     PVC
	current string
}

// NewBrowser starts a browser at the root of pvc.
func NewBrowser(pvc PVC) *Browser {
	return &Browser{pvc: pvc, current: cleanPath(pvc.Path)}
}

// PVC returns the claim being browsed.
func (b *Browser) PVC() PVC { return b.pvc }

// Path returns the current absolute path.
func (b *Browser) Path() string { return b.current }

// AtRoot reports whether the browser is at the PVC root.
func (b *Browser) AtRoot() bool {
	return len(segments(b.current)) <= len(segments(b.pvc.Path))
}

// Relative returns the current path relative to the PVC root, or "/" at the
// root.
func (b *Browser) Relative() string {
	if b.AtRoot() {
		return "/"
	}
	rel := segments(b.current)[len(segments(b.pvc.Path)):]
	return "/" + strings.Join(rel, "/")
}

// Enter descends into the named subdirectory. The path is left unchanged
// when dir is rejected.
func (b *Browser) Enter(dir string) error {
	segs := segments(dir)
	if len(segs) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, dir)
	}
	for _, s := range segs {
		if s == "." || s == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, dir)
		}
	}
	b.current = cleanPath(b.current + "/" + dir)
	return nil
}

// Back moves to the parent directory. It returns false, leaving the path
// unchanged, when already at the PVC root; the caller should return to the
// PVC list.
func (b *Browser) Back() bool {
	if b.AtRoot() {
		return false
	}
	segs := segments(b.current)
	b.current = "/" + strings.Join(segs[:len(segs)-1], "/")
	return true
}

// List fetches the current directory.
func (b *Browser) List(ctx context.Context, s *Service) (*Listing, error) {
	return s.Browse(ctx, b.pvc.ID, b.current)
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cleanPath(p string) string {
	return "/" + strings.Join(segments(p), "/")
}
