package gateway

import (
	"os"
	"runtime"
	"strings"
	"time"

	"quiz-player/internal/domain"
)

const clientName = "quiz-player"

func userAgent() string {
	return clientName + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}

// DetectDevice describes the terminal the player runs in. The screen
// resolution is the terminal size in cells when the shell exports it.
func DetectDevice() domain.DeviceMetadata {
	device := domain.DeviceMetadata{
		UserAgent: userAgent(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Timezone:  time.Local.String(),
	}
	cols, rows := strings.TrimSpace(os.Getenv("COLUMNS")), strings.TrimSpace(os.Getenv("LINES"))
	if cols != "" && rows != "" {
		device.ScreenResolution = cols + "x" + rows
	}
	if term := os.Getenv("TERM"); term != "" {
		device.UserAgent += " " + term
	}
	return device
}
