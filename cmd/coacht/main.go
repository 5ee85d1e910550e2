package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/coacht/internal/app"
	"github.com/ayusman/coacht/internal/capture"
	"github.com/ayusman/coacht/internal/server"
	"github.com/ayusman/coacht/internal/store"
	"github.com/ayusman/coacht/internal/tray"
)

const defaultAddr = ":8080"

// settingReferencePath is the settings key remembering the last loaded
// reference media across restarts.
const settingReferencePath = "reference_path"

func main() {
	fmt.Println("CoachT - Martial Arts Training Assistant")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Fatal("failed to get home directory", zap.Error(err))
	}

	dataDir := filepath.Join(homeDir, ".coacht")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	st, err := store.New(filepath.Join(dataDir, "coacht.db"))
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:       st,
		ExporterDir: filepath.Join(dataDir, "exporters"),
		Logger:      logger,
	})

	if err := a.LoadSignatures(); err != nil {
		logger.Warn("failed to load signatures", zap.Error(err))
	}
	if err := a.DiscoverExporters(); err != nil {
		logger.Warn("failed to discover exporters", zap.Error(err))
	}

	refPath := os.Getenv("COACHT_REFERENCE")
	if refPath == "" {
		if saved, err := st.Settings().Get(settingReferencePath); err == nil {
			refPath = saved
		}
	}
	if refPath != "" {
		a.SetReference(referenceSource(refPath), filepath.Base(refPath))
		if err := st.Settings().Set(settingReferencePath, refPath); err != nil {
			logger.Warn("failed to remember reference path", zap.Error(err))
		}
		logger.Info("reference media loaded", zap.String("path", refPath))
	}

	if err := a.Start(); err != nil {
		logger.Warn("failed to start frame pipeline", zap.Error(err))
	}
	defer a.Stop()

	webDir := findWebDir()
	if webDir != "" {
		logger.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
		Logger:    logger.Named("server"),
	})

	addr := os.Getenv("COACHT_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(addr); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	runTray(a, logger, addr)
}

// runTray blocks in the system tray loop, bridging menu clicks to the
// test lifecycle.
func runTray(a *app.App, logger *zap.Logger, addr string) {
	t := tray.New()

	t.OnStartTest(func() {
		if _, err := a.StartTest(); err != nil {
			logger.Warn("failed to start test", zap.Error(err))
			t.TestDone()
		}
	})
	t.OnStopTest(func() {
		res, err := a.StopTest()
		if err != nil {
			logger.Warn("failed to stop test", zap.Error(err))
			return
		}
		t.SetLastScore(res.OverallScore)
	})
	t.OnDashboard(func() {
		openBrowser("http://localhost" + addr)
	})
	t.OnQuit(func() {
		logger.Info("shutting down")
	})

	t.Run()
}

// referenceSource picks a video or image source from the file extension.
func referenceSource(path string) capture.Source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return capture.NewImageSource(path)
	default:
		return capture.NewVideoSource(path)
	}
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.coacht/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".coacht", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
