// Package main provides a JSON report exporter.
// It writes the completed test result to a file next to the exporter.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Request represents the input from the exporter executor.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"sessionId"`
	Result    json.RawMessage `json:"result"`
}

// Response represents the output to the exporter executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "test_completed" {
		writeErrorResponse(fmt.Sprintf("unsupported event: %s", req.Event))
		return
	}

	path, err := writeReport(req.SessionID, req.Result)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("failed to write report: %v", err))
		return
	}

	data, _ := json.Marshal(map[string]string{"path": path})
	writeResponse(Response{Success: true, Data: data})
}

// writeReport writes the raw result JSON to reports/session-<id>.json.
// The output directory can be overridden with COACHT_REPORT_DIR.
func writeReport(sessionID string, result json.RawMessage) (string, error) {
	dir := os.Getenv("COACHT_REPORT_DIR")
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("session-%s.json", sessionID))
	if err := os.WriteFile(path, result, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func writeErrorResponse(msg string) {
	writeResponse(Response{Success: false, Error: msg})
}
