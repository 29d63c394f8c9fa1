package storage

import (
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of the job journal and the annotation index.
type Usage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	IndexBytes    int64 `json:"index_bytes"`
}

// Total is the combined size in bytes.
func (u Usage) Total() int64 { return u.DatabaseBytes + u.IndexBytes }

// MeasureUsage sizes the SQLite database (with its WAL and shared-memory
// files) and the index directory.
func MeasureUsage(dbPath, indexPath string) (Usage, error) {
	var u Usage
	var err error
	if dbPath != "" {
		if u.DatabaseBytes, err = DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
			return Usage{}, err
		}
	}
	if u.IndexBytes, err = DiskUsageBytes(indexPath); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths contribute 0; errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.Walk(p, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				total += fi.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
