package artifacts

import (
	"archive/zip"
	"fmt"
	"io"
	"slices"
)

// WriteZip writes files, keyed by archive path, as a zip archive to w.
func WriteZip(w io.Writer, files map[string]string) error {
	zw := zip.NewWriter(w)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return zw.Close()
}
