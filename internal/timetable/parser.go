package timetable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// Parser shells out to the external PDF-to-JSON converter. The conversion
// itself is opaque to this service; we only run the command and relay its
// stdout.
type Parser struct {
	command string
	timeout time.Duration
}

func NewParser(command string, timeout time.Duration) *Parser {
	return &Parser{command: command, timeout: timeout}
}

func (p *Parser) Parse(ctx context.Context, pdfPath string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, pdfPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("timetable parser: %w: %s", err, stderr.String())
	}

	raw := json.RawMessage(stdout.Bytes())
	if !json.Valid(raw) {
		return nil, fmt.Errorf("timetable parser: invalid JSON output")
	}
	return raw, nil
}
