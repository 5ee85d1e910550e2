// Package exporter discovers and runs external programs that receive
// completed test session results, for example to sync scores to a
// coaching dashboard or write report files.
package exporter

import "encoding/json"

// Manifest describes an exporter's metadata.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Formats     []string `json:"formats,omitempty"`
}

// Request is sent to an exporter on stdin when a test completes.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"sessionId"`
	Result    json.RawMessage `json:"result"`
}

// Response is what an exporter reports back on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Exporter is a discovered exporter with its manifest and location.
type Exporter struct {
	Manifest   Manifest
	Path       string
	Executable string
}
