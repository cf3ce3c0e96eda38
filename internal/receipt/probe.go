package receipt

import (
	"log/slog"
	"os/exec"
)

// ProbeOCR reports whether the OCR engine binary is reachable on the host.
// It runs once at startup; the result is injected into the pipeline and
// read-only afterwards. The probe never fails the surrounding process: any
// lookup error simply downgrades the capability to false.
func ProbeOCR(binary string, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if binary == "" {
		binary = "tesseract"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		logger.Warn("ocr engine not found; receipts will be saved without extraction",
			"binary", binary, "error", err)
		return false
	}
	logger.Info("ocr engine available", "binary", binary, "path", path)
	return true
}
