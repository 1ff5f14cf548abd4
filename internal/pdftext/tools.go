package pdftext

import "os/exec"

// Tools holds the resolved locations of the external binaries used by the
// fallback stages. An empty field means the binary was not found.
type Tools struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
}

// OCRAvailable reports whether pages can be rasterized and recognized.
func (t Tools) OCRAvailable() bool {
	return t.Pdftoppm != "" && t.Tesseract != ""
}

// LookPathFunc resolves a binary name to a path.
type LookPathFunc func(file string) (string, error)

// DetectTools resolves the binaries named in cfg once. Callers pass the
// result to New so availability is fixed for the life of the process.
func DetectTools(cfg Config, lookPath LookPathFunc) Tools {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	cfg = cfg.withDefaults()
	resolve := func(name string) string {
		p, err := lookPath(name)
		if err != nil {
			return ""
		}
		return p
	}
	return Tools{
		Pdftotext: resolve(cfg.Pdftotext),
		Pdftoppm:  resolve(cfg.Pdftoppm),
		Tesseract: resolve(cfg.Tesseract),
	}
}
