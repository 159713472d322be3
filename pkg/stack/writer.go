package stack

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// MaskWriter receives finished masks from the exporter. Implementations
// must tolerate concurrent calls for distinct (colorKey, z) pairs; the
// exporter never produces the same pair twice.
type MaskWriter interface {
	WriteMask(colorKey string, z int, mask *image.Gray) error
}

// DirWriter writes masks as an image tree on disk: one subdirectory per
// color key, one file per slice index inside it.
type DirWriter struct {
	// Root is the output directory; created on first use
	Root string

	// Ext is the image file extension including the dot. Defaults to
	// ".png" when empty.
	Ext string
}

// NewDirWriter creates a writer rooted at dir, producing PNG files.
func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{Root: dir, Ext: ".png"}
}

// WriteMask saves one mask as <root>/<colorKey>/<z><ext>. Directory
// creation is idempotent, so concurrent writers for the same color do not
// conflict.
func (w *DirWriter) WriteMask(colorKey string, z int, mask *image.Gray) error {
	ext := w.Ext
	if ext == "" {
		ext = ".png"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir := filepath.Join(w.Root, colorKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d%s", z, ext))
	if err := imaging.Save(mask, path); err != nil {
		return fmt.Errorf("writing mask %s: %w", path, err)
	}
	return nil
}
