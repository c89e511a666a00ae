package mail

import (
	"reflect"
	"testing"
)

func TestRecipients(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"ops@example.com", []string{"ops@example.com"}},
		{"a@example.com, b@example.com", []string{"a@example.com", "b@example.com"}},
		{" a@example.com ,, ", []string{"a@example.com"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := Recipients(tt.in)
		if len(got) == 0 {
			got = nil
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("Recipients(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompose(t *testing.T) {
	if got := Compose("", "body"); got != "body" {
		t.Fatalf("empty template: got %q", got)
	}
	if got := Compose("Hello,\n%s\nRegards", "the report"); got != "Hello,\nthe report\nRegards" {
		t.Fatalf("Compose = %q", got)
	}
}
