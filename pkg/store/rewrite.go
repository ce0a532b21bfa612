package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/segmentio/ksuid"
)

// rewriteAtomic builds the new file next to the old one and renames it into
// place, so a crash leaves either the old or the new contents. The new file
// keeps the old file's mode and becomes the store's handle; no reopen is
// needed. A head shorter than pos is zero-extended, as SetLength does.
func (s *RecordStore[T]) rewriteAtomic(op string, pos int64, data []byte) (err error) {
	path := s.config.FilePath
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir,
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), ksuid.New().String()))

	info, err := s.file.Stat()
	if err != nil {
		return s.fail(op, KindPointerQueryFailed, err)
	}
	mode := info.Mode().Perm()

	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	defer func() {
		if err != nil {
			if closeErr := tmp.Close(); closeErr != nil {
				s.logger.Warn("failed to close temp file", "path", tmpPath, "error", closeErr)
			}
			if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
				s.logger.Warn("failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	// umask may have narrowed the create mode
	if err := tmp.Chmod(mode); err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	if _, err := io.Copy(tmp, io.NewSectionReader(s.file, 0, pos)); err != nil {
		return s.fail(op, KindWriteFailed, fmt.Errorf("copy head: %w", err))
	}
	if err := tmp.Truncate(pos); err != nil {
		return s.fail(op, KindTruncateFailed, err)
	}
	if _, err := tmp.Seek(pos, io.SeekStart); err != nil {
		return s.fail(op, KindPointerSeekFailed, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	if err := syncDir(dir); err != nil {
		s.logger.Warn("failed to sync directory after rename", "dir", dir, "error", err)
	}

	old := s.file
	s.file = tmp
	if closeErr := old.Close(); closeErr != nil {
		s.logger.Warn("failed to close replaced file", "error", closeErr)
	}

	s.logger.Debug("file rewritten", "op", op, "temp", tmpPath, "size", pos+int64(len(data)))
	return nil
}

// syncDir flushes a directory entry change such as a rename
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return err
	}
	return d.Close()
}
