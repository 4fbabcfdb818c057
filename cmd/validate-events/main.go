package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Gunvolt24/datapipe/pkg/validate"
)

// CLI-приложение для проверки событий до отправки в POST /.
// Печатает строки, которые ушли бы в очереди; код выхода 1, если есть невалидные события.
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	maxLen := flag.Int("max-len", validate.DefaultInputMaxLen, "maximum event length in characters")
	flag.Parse()

	ctx := context.Background()
	eventValidator := validate.NewEventValidator(*maxLen)
	format := validate.InputFormat(*formatStr)

	var (
		summary validate.Summary
		err     error
	)
	if *inputPath == "" {
		if format == validate.FormatAuto {
			format = validate.FormatJSONL
		}
		summary, err = validate.ValidateReader(ctx, eventValidator, os.Stdin, format, os.Stdout)
	} else {
		summary, err = validate.ValidateFile(ctx, eventValidator, *inputPath, format, os.Stdout)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "validation: %v (%s)\n", err, summary)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "validation ok (%s)\n", summary)
}
