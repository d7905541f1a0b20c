package services

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"lms-ai-backend/internal/logger"
	"lms-ai-backend/utils"
)

var pdfMagic = []byte("%PDF")

// FileStorageManager keeps uploaded files under <base>/documents. Uploads are
// written to <base>/temp first and only moved into place once validated.
type FileStorageManager struct {
	uploadDir string
	tempDir   string
}

// StoredFile describes an upload after it has been moved into storage.
type StoredFile struct {
	Path string
	Name string
	Hash string
	Size int64
}

func NewFileStorageManager(baseDir string) (*FileStorageManager, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}

	sm := &FileStorageManager{
		uploadDir: filepath.Join(baseDir, "documents"),
		tempDir:   filepath.Join(baseDir, "temp"),
	}
	for _, dir := range []string{sm.uploadDir, sm.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return sm, nil
}

// StorePDF streams r into a temp file while hashing it, checks that the content
// is a PDF and renames it to documents/<uuid>.pdf.
func (sm *FileStorageManager) StorePDF(r io.Reader) (*StoredFile, error) {
	tempPath := filepath.Join(sm.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := md5.New()
	written, err := io.Copy(io.MultiWriter(tempFile, hasher), r)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := validatePDF(tempPath, written); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	name := uuid.NewString() + ".pdf"
	finalPath := filepath.Join(sm.uploadDir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	return &StoredFile{
		Path: finalPath,
		Name: name,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
		Size: written,
	}, nil
}

func validatePDF(path string, size int64) error {
	if size == 0 {
		return utils.NewBadRequest("File is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return utils.NewBadRequest("Only PDF files are allowed")
	}
	return nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (sm *FileStorageManager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if !sm.owns(path) {
		return fmt.Errorf("refusing to remove %s outside of storage", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func (sm *FileStorageManager) owns(path string) bool {
	rel, err := filepath.Rel(sm.uploadDir, path)
	return err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// CleanupTemp removes *.tmp files older than maxAge and returns how many were
// removed. They are leftovers from uploads interrupted before the rename.
func (sm *FileStorageManager) CleanupTemp(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(sm.tempDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".tmp" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(sm.tempDir, entry.Name())); err != nil {
			logger.Warn("Failed to remove temp file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
