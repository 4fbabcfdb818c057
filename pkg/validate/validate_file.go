package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"  // одно событие или массив событий
	FormatJSONL InputFormat = "jsonl" // событие на строку
)

// Summary — итог проверки входа.
type Summary struct {
	Valid   int
	Invalid int
}

func (s Summary) String() string { return fmt.Sprintf("%d valid / %d invalid", s.Valid, s.Invalid) }

// DetectFormat — формат по расширению: .jsonl — JSONL, остальное — JSON.
func DetectFormat(path string) InputFormat {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return FormatJSONL
	}
	return FormatJSON
}

// ValidateFile — ValidateReader для файла; FormatAuto определяется по расширению.
func ValidateFile(ctx context.Context, validator ports.EventValidator, filePath string, format InputFormat, ow io.Writer) (Summary, error) {
	if format == FormatAuto {
		format = DetectFormat(filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Summary{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return ValidateReader(ctx, validator, file, format, ow)
}

// ValidateReader — проверяет события и пишет в writer строки, которые ушли бы в очереди:
// "<очередь>\t<строка>". Невалидные события пропускаются; если такие были,
// возвращается ошибка с ErrInvalidEvent и позицией первого из них.
func ValidateReader(ctx context.Context, validator ports.EventValidator, ir io.Reader, format InputFormat, ow io.Writer) (Summary, error) {
	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(ir)
		if err != nil {
			return Summary{}, fmt.Errorf("read input: %w", err)
		}
		return validateJSON(ctx, validator, raw, ow)

	case FormatJSONL:
		result, err := ValidateJSONLStream(ctx, validator, ir, ow)
		summary := Summary{Valid: result.ValidLinesCount, Invalid: result.InvalidLinesCount}
		if err != nil {
			return summary, err
		}
		if result.FirstInvalidErr != nil {
			return summary, fmt.Errorf("%w: first invalid line %d: %v", ErrInvalidEvent, result.FirstInvalidLine, result.FirstInvalidErr)
		}
		return summary, nil

	default:
		return Summary{}, fmt.Errorf("unsupported format: %s", format)
	}
}

// validateJSON — одно событие (ошибка возвращается как есть) или массив событий.
func validateJSON(ctx context.Context, validator ports.EventValidator, raw []byte, ow io.Writer) (Summary, error) {
	trimmed := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(trimmed, []byte("[")) {
		event, err := validator.Validate(ctx, raw)
		if err != nil {
			return Summary{Invalid: 1}, err
		}
		if err := writeEvent(ow, event.Name, event.Line()); err != nil {
			return Summary{}, err
		}
		return Summary{Valid: 1}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return Summary{}, &EventError{Code: CodeBadJSON, Key: "array", Err: err}
	}

	var (
		summary  Summary
		firstIdx int
		firstErr error
	)
	for i, item := range items {
		event, err := validator.Validate(ctx, item)
		if err != nil {
			summary.Invalid++
			if firstErr == nil {
				firstIdx, firstErr = i, err
			}
			continue
		}
		if err := writeEvent(ow, event.Name, event.Line()); err != nil {
			return summary, err
		}
		summary.Valid++
	}
	if firstErr != nil {
		return summary, fmt.Errorf("%w: first invalid element %d: %v", ErrInvalidEvent, firstIdx, firstErr)
	}
	return summary, nil
}

func writeEvent(ow io.Writer, queue, line string) error {
	if _, err := fmt.Fprintf(ow, "%s\t%s\n", queue, line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
