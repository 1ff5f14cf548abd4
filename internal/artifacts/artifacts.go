// Package artifacts lists the searchable files of an investigation directory.
package artifacts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/checksum"
	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/storage"
)

// List returns every file under baseDir with one of exts, sorted by path.
// With checksums set, each entry carries its SHA-256; a file that cannot be
// hashed keeps an empty checksum.
func List(ctx context.Context, baseDir string, exts []string, checksums bool) ([]models.ArtifactInfo, error) {
	store, err := storage.NewFS(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrBaseDirNotFound, baseDir)
	}
	files, err := store.Find("", exts...)
	if err != nil {
		return nil, fmt.Errorf("artifacts: list %s: %w", baseDir, err)
	}

	out := make([]models.ArtifactInfo, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("artifacts: %w", err)
		}
		info := models.ArtifactInfo{
			Name:       f.Name,
			Path:       filepath.Join(baseDir, filepath.FromSlash(f.Path)),
			SizeBytes:  f.Size,
			ModifiedAt: f.ModTime,
		}
		if checksums {
			if sum, err := checksum.File(f.Abs); err == nil {
				info.Checksum = sum
			}
		}
		out = append(out, info)
	}
	return out, nil
}
