package storage

import (
	"compress/gzip"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
)

// SaveGzippedJson writes data to a temp file and renames it into place, so
// readers never see a partial snapshot.
func (ds *DiskStorage) SaveGzippedJson(data any, name string) error {
	fileName, tmpFileName := ds.GetFileName(name)
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}
	zipWriter := gzip.NewWriter(file)
	encodeErr := jsoncompat.NewEncoder(zipWriter).Encode(data)
	closeErr := errors.Join(zipWriter.Close(), file.Close())
	if err = errors.Join(encodeErr, closeErr); err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	if err = os.Rename(tmpFileName, fileName); err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	log.Printf("Saved file: %s", fileName)
	return nil
}

func (ds *DiskStorage) LoadGzippedJson(data any, name string) error {
	fileName, _ := ds.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer zipReader.Close()

	return jsoncompat.NewDecoder(zipReader).Decode(data)
}
