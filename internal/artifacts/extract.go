package artifacts

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const archiveName = "archive.zip"

// Extractor downloads an artifact archive into a scratch directory, unpacks
// it and reads the report files from the extraction root.
type Extractor struct {
	source     Source
	files      Files
	scratchDir string
}

// NewExtractor returns an Extractor. An empty scratchDir uses the system temp dir.
func NewExtractor(source Source, files Files, scratchDir string) *Extractor {
	return &Extractor{source: source, files: files, scratchDir: scratchDir}
}

// Files returns the file names the extractor reads.
func (e *Extractor) Files() Files {
	return e.files
}

// Extract never fails: problems are reported per file through Status.
// Scratch files are removed before it returns.
func (e *Extractor) Extract(ctx context.Context, bucket, key string) Results {
	if bucket == "" || key == "" {
		return Unavailable(e.files, errors.New("no artifact location"))
	}

	dir, err := os.MkdirTemp(e.scratchDir, "artifact-*")
	if err != nil {
		log.Printf("[artifacts] creating scratch dir failed: %v", err)
		return Unavailable(e.files, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[artifacts] removing %s failed: %v", dir, err)
		}
	}()

	archivePath := filepath.Join(dir, archiveName)
	if err := e.download(ctx, bucket, key, archivePath); err != nil {
		log.Printf("[artifacts] downloading %s/%s failed: %v", bucket, key, err)
		return Unavailable(e.files, err)
	}

	extracted := filepath.Join(dir, "extracted")
	if err := unzip(archivePath, extracted); err != nil {
		log.Printf("[artifacts] unpacking %s/%s failed: %v", bucket, key, err)
		return Unavailable(e.files, err)
	}

	return Results{
		Lint:     readFile(extracted, e.files.Lint),
		Tests:    readFile(extracted, e.files.Test),
		Coverage: readFile(extracted, e.files.Coverage),
	}
}

func (e *Extractor) download(ctx context.Context, bucket, key, dst string) error {
	rc, err := e.source.Open(ctx, bucket, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return f.Close()
}

func unzip(archivePath, dst string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		if err := extractEntry(f, dst); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dst string) error {
	path := filepath.Join(dst, filepath.FromSlash(f.Name))
	if path != dst && !strings.HasPrefix(path, dst+string(filepath.Separator)) {
		return fmt.Errorf("archive entry %q escapes extraction root", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract entry %q: %w", f.Name, err)
	}
	return out.Close()
}

func readFile(root, name string) FileResult {
	res := FileResult{Name: name}
	if name == "" {
		res.Status = StatusFileUnreadable
		res.Err = errors.New("no file name configured")
		return res
	}
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		res.Status = StatusFileUnreadable
		res.Err = err
		return res
	}
	res.Status = StatusRead
	res.Content = strings.TrimSpace(string(data))
	return res
}
