package validate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// JSONLResult — статистика валидации потока JSONL.
type JSONLResult struct {
	ValidLinesCount   int
	InvalidLinesCount int
	FirstInvalidLine  int // номер строки (с 1) первой невалидной записи
	FirstInvalidErr   error
}

// ValidateJSONLStream — читает JSONL из reader'а, валидирует каждую строку, валидные пишет в writer
// в виде "<очередь>\t<строка>". Пустые строки пропускаются, невалидные — считаются.
func ValidateJSONLStream(ctx context.Context, validator ports.EventValidator, ir io.Reader, ow io.Writer) (JSONLResult, error) {
	var res JSONLResult

	scanner := bufio.NewScanner(ir)
	// запас на большие строки
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		lineBytes := bytes.TrimSpace(scanner.Bytes())
		if len(lineBytes) == 0 {
			continue
		}

		event, err := validator.Validate(ctx, lineBytes)
		if err != nil {
			res.InvalidLinesCount++
			if res.FirstInvalidErr == nil {
				res.FirstInvalidLine, res.FirstInvalidErr = lineNo, err
			}
			// не возвращаем ошибку — просто пропускаем невалидную строку
			continue
		}

		if err := writeEvent(ow, event.Name, event.Line()); err != nil {
			return res, err
		}
		res.ValidLinesCount++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}
