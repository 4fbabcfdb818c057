package domain_test

import (
	"testing"

	"github.com/Gunvolt24/datapipe/internal/domain"
)

func TestEventLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   domain.Event
		want string
	}{
		{"crash report", domain.Event{Name: domain.EventCrashReport, UserID: 666, Timestamp: 1000, Content: "TheFirstHeroku", HasContent: true}, "666,1000,TheFirstHeroku"},
		{"purchase", domain.Event{Name: domain.EventPurchase, UserID: 666, Timestamp: 1000, Content: "TheFirstHeroku", HasContent: true}, "666,1000,TheFirstHeroku"},
		{"install", domain.Event{Name: domain.EventInstall, UserID: 666, Timestamp: 1000}, "666,1000"},
		{"escaped content", domain.Event{Name: domain.EventCrashReport, UserID: 1, Timestamp: 2, Content: "a,b\nc\\d", HasContent: true}, `1,2,a\,b\nc\\d`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.ev.Line(); got != tt.want {
				t.Fatalf("Line: want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestKindByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{domain.EventCrashReport, domain.EventPurchase, domain.EventInstall} {
		if k, ok := domain.KindByName(name); !ok || k.Name != name {
			t.Fatalf("KindByName(%q): got %+v, %v", name, k, ok)
		}
	}
	if _, ok := domain.KindByName("not_supported"); ok {
		t.Fatalf("unknown event should not resolve")
	}
	if _, ok := domain.KindByName(""); ok {
		t.Fatalf("empty event name should not resolve")
	}
}
