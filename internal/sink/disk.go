package sink

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsage returns the total size in bytes of the given backend paths.
// A path may be a file (the SQLite database) or a directory (the bleve
// index). A file also counts its -wal and -shm sidecars. Empty and missing
// paths count as zero.
func DiskUsage(paths ...string) (int64, error) {
	var total int64
	for _, p := range withSidecars(paths) {
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

func withSidecars(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		out = append(out, p)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			for _, suffix := range sqliteSidecars {
				out = append(out, p+suffix)
			}
		}
	}
	return out
}
