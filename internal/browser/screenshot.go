package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page screenshots for post-mortem of failed attempts.
type ScreenshotDebugger struct {
	outputDir string
	logger    *zap.Logger
}

func NewScreenshotDebugger(dir string, logger *zap.Logger) *ScreenshotDebugger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = filepath.Join(".", "logs", "screenshots")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("⚠️ could not create screenshot dir", zap.String("dir", dir), zap.Error(err))
	}
	return &ScreenshotDebugger{outputDir: dir, logger: logger}
}

func (s *ScreenshotDebugger) Capture(session Session, name string) (string, error) {
	filename := fmt.Sprintf("%s_%s.png", name, time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(s.outputDir, filename)
	if err := session.Screenshot(path); err != nil {
		s.logger.Warn("⚠️ failed to capture screenshot", zap.String("name", name), zap.Error(err))
		return "", err
	}
	s.logger.Info("📸 screenshot saved", zap.String("path", path))
	return path, nil
}
