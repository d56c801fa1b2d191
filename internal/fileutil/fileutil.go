package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileExists checks if a file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over filePath, so readers never observe a partial file.
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		return errors.Join(cause, tmp.Close(), os.Remove(tmpName))
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpName))
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.Join(fmt.Errorf("failed to set permissions: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return errors.Join(fmt.Errorf("failed to replace %s: %w", filePath, err), os.Remove(tmpName))
	}

	return nil
}

// WriteJSONFile writes data as indented JSON to filePath atomically
func WriteJSONFile(data any, filePath string) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	slog.Debug("Writing JSON file", "filename", filePath, "bytes", len(jsonData))
	if err := WriteFileAtomic(filePath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

// ReadJSONFile decodes the JSON document at filePath into v.
// A missing file is not an error: found is false and v is left untouched.
func ReadJSONFile(filePath string, v any) (found bool, err error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read JSON file: %w", err)
	}

	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse JSON file %s: %w", filePath, err)
	}

	return true, nil
}
