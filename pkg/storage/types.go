package storage

import (
	"fmt"
	"path/filepath"
	"time"
)

// DiskStorage reads and writes gzipped JSON snapshots under a root folder.
type DiskStorage struct {
	RootFolder string
}

func NewDiskStorage(rootFolder string) *DiskStorage {
	return &DiskStorage{RootFolder: rootFolder}
}

// GetFileName returns the target path and a unique temp path next to it.
func (ds *DiskStorage) GetFileName(name string) (string, string) {
	fileName := name
	if !filepath.IsAbs(name) {
		fileName = filepath.Join(ds.RootFolder, name)
	}
	tmpFileName := fileName + ".tmp-" + fmt.Sprintf("%d", time.Now().UnixMilli())
	return fileName, tmpFileName
}
