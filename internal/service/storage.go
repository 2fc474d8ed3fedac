package service

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"

	"framesync/internal/model"
)

// StorageService computes disk usage across the original and thumbnail
// trees and enforces the configured quota. Usage is always computed by
// walking the trees on demand; there is no running counter to drift.
type StorageService struct {
	uploadDir        string
	thumbnailDir     string
	quotaBytes       int64
	warningThreshold float64
}

func NewStorageService(uploadDir, thumbnailDir string, quotaBytes int64, warningThreshold float64) *StorageService {
	return &StorageService{
		uploadDir:        uploadDir,
		thumbnailDir:     thumbnailDir,
		quotaBytes:       quotaBytes,
		warningThreshold: warningThreshold,
	}
}

// Usage walks both storage trees and reports byte totals, counts, quota
// and headroom. Per-file errors are skipped with a warning; if a walk
// fails entirely the affected category reports zero rather than erroring.
func (s *StorageService) Usage(ctx context.Context) *model.StorageUsage {
	origBytes, origCount := walkTree(s.uploadDir, s.thumbnailDir)
	thumbBytes, thumbCount := walkTree(s.thumbnailDir, "")

	usage := &model.StorageUsage{
		OriginalsBytes:  origBytes,
		OriginalsCount:  origCount,
		ThumbnailsBytes: thumbBytes,
		ThumbnailsCount: thumbCount,
		TotalBytes:      origBytes + thumbBytes,
		QuotaBytes:      s.quotaBytes,
	}
	if s.quotaBytes > 0 {
		usage.UsedFraction = float64(usage.TotalBytes) / float64(s.quotaBytes)
		if avail := s.quotaBytes - usage.TotalBytes; avail > 0 {
			usage.AvailableBytes = avail
		}
	}

	return usage
}

// IsWarning reports whether usage has crossed the warning threshold.
func (s *StorageService) IsWarning(ctx context.Context) bool {
	return s.Usage(ctx).UsedFraction >= s.warningThreshold
}

// CanStore reports whether n more bytes fit under the quota.
func (s *StorageService) CanStore(ctx context.Context, n int64) bool {
	if s.quotaBytes <= 0 {
		return true
	}
	return s.Usage(ctx).TotalBytes+n <= s.quotaBytes
}

// walkTree totals regular files under root, skipping the subtree rooted at
// exclude (the thumbnail tree nests inside the upload tree by default).
func walkTree(root, exclude string) (int64, int) {
	var total int64
	var count int

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[Storage] skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if exclude != "" && path == exclude {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Printf("[Storage] skipping %s: %v", path, err)
			return nil
		}
		total += info.Size()
		count++
		return nil
	})
	if err != nil {
		log.Printf("[Storage] walk of %s failed: %v", root, err)
		return 0, 0
	}

	return total, count
}
