// Package jsonfile reads and writes the bot's flat JSON documents. Files are
// written with four-space indentation so they stay diffable against the
// documents the community already keeps by hand.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const indent = "    "

// Encode renders v the way it is stored on disk.
func Encode(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Read decodes the file at path into v. A missing file is reported with an
// error satisfying errors.Is(err, fs.ErrNotExist).
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %v: %w", path, err)
	}
	return nil
}

// Write replaces the file at path with the encoding of v. The new content is
// written to a sibling temp file and renamed over the old one, so a failed
// write never leaves a truncated document behind.
func Write(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode %v: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Ensure writes def to path unless a file already exists there. It reports
// whether the file was created.
func Ensure(path string, def any) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := Write(path, def); err != nil {
		return false, err
	}
	return true, nil
}
