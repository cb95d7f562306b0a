// Package latex stages per-request source files and drives the external
// typesetting engine.
package latex

import (
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

// Workspace holds the three per-request file paths sharing one unique base
// name under the shared temp directory. Nothing cleans these up; the temp
// directory's lifecycle belongs to the execution environment.
type Workspace struct {
	Dir     string
	Base    string
	TexPath string
	PDFPath string
	LogPath string
}

// NewWorkspace derives a fresh workspace under dir (os.TempDir when empty).
// The generated base name is unique per call, which is the sole isolation
// mechanism between concurrent requests sharing the temp directory.
func NewWorkspace(dir string) Workspace {
	if dir == "" {
		dir = os.TempDir()
	}
	base := "document_" + xid.New().String()
	return Workspace{
		Dir:     dir,
		Base:    base,
		TexPath: filepath.Join(dir, base+".tex"),
		PDFPath: filepath.Join(dir, base+".pdf"),
		LogPath: filepath.Join(dir, base+".log"),
	}
}

// WriteSource writes the LaTeX source to the .tex path. The file is closed
// before returning so the compiler never races the write.
func (w Workspace) WriteSource(source string) error {
	f, err := os.Create(w.TexPath)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadPDF returns the compiled PDF bytes.
func (w Workspace) ReadPDF() ([]byte, error) {
	return os.ReadFile(w.PDFPath)
}
