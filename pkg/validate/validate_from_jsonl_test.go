package validate

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestValidateJSONLStream_Mixed(t *testing.T) {
	ctx := context.Background()
	validator := NewEventValidator(0)

	input := strings.Join([]string{
		`{"event_name":"purchase","user_id":1,"timestamp":10,"sku":"a"}`,
		`{"event_name":"purchase","user_id":"2","timestamp":20,"sku":"b"}`, // user_id не число
		``, // пустая строка — ок
		`{"event_name":"install","user_id":3,"timestamp":30}`,
	}, "\n")
	var out bytes.Buffer

	res, err := ValidateJSONLStream(ctx, validator, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ValidLinesCount != 2 || res.InvalidLinesCount != 1 || res.FirstInvalidLine != 2 {
		t.Fatalf("unexpected counters: %+v", res)
	}

	want := "purchase\t1,10,a\ninstall\t3,30\n"
	if out.String() != want {
		t.Fatalf("output: want %q, got %q", want, out.String())
	}
}

func TestValidateJSONLStream_LongLineRejected(t *testing.T) {
	ctx := context.Background()
	validator := NewEventValidator(0)

	// > 64KB: сканер справляется, валидатор отвергает по длине
	big := `{"event_name":"crash_report","user_id":1,"timestamp":1,"message":"` + strings.Repeat("X", 200_000) + `"}`

	var out bytes.Buffer
	res, err := ValidateJSONLStream(ctx, validator, strings.NewReader(big+"\n"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ValidLinesCount != 0 || res.InvalidLinesCount != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
