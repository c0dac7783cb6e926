package collection

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// ManifestFileName is written next to the shards when requested.
const ManifestFileName = "manifest.json"

// Manifest summarizes a completed conversion.
type Manifest struct {
	CollectionPath string      `json:"collection_path"`
	TextField      string      `json:"text_field"`
	MaxDocsPerFile int         `json:"max_docs_per_file"`
	Documents      int         `json:"documents"`
	Skipped        int         `json:"skipped"`
	Shards         []ShardInfo `json:"shards"`
}

// WriteManifest writes m to dir/manifest.json via a temporary file.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.InternalError("encoding manifest", err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, ManifestFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.IOError("writing manifest", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.IOError("renaming manifest", path, err)
	}
	return nil
}

// ReadManifest loads dir/manifest.json.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError("reading manifest", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.CodeParse, "decoding manifest", err).WithDetail("path", path)
	}
	return &m, nil
}
