package options

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/storage"
	"github.com/matst80/slask-audience/pkg/types"
	"gopkg.in/yaml.v3"
)

// FileSource reads options from a .json, .yaml/.yml or gzipped JSON file.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := &types.CampaignOptions{}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".gz":
		if err := storage.NewDiskStorage("").LoadGzippedJson(opts, f.Path); err != nil {
			return nil, fmt.Errorf("load options snapshot %s: %w", f.Path, err)
		}
		return opts, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read options file: %w", err)
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("parse options yaml %s: %w", f.Path, err)
		}
		return opts, nil
	default:
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read options file: %w", err)
		}
		if err := jsoncompat.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("parse options json %s: %w", f.Path, err)
		}
		return opts, nil
	}
}

// SnapshotWriter saves every successful fetch as a gzipped snapshot that a
// FileSource can read back when the primary source is down.
type SnapshotWriter struct {
	Source Source
	Disk   *storage.DiskStorage
	Name   string
}

func NewSnapshotWriter(src Source, path string) *SnapshotWriter {
	return &SnapshotWriter{Source: src, Disk: storage.NewDiskStorage(""), Name: path}
}

func (s *SnapshotWriter) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	opts, err := s.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Disk.SaveGzippedJson(opts, s.Name); err != nil {
		log.Printf("failed to save options snapshot: %v", err)
	}
	return opts, nil
}
