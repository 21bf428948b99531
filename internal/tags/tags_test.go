package tags

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"no mentions", "hello world", []string{}},
		{"single", "hello @G2", []string{"G2"}},
		{"multiple in order", "@north and @south", []string{"north", "south"}},
		{"duplicates collapsed", "@G2 @G2 @G3 @G2", []string{"G2", "G3"}},
		{"punctuation ends token", "ping @east, @west!", []string{"east", "west"}},
		{"underscore and dash", "@west_coast @north-1", []string{"west_coast", "north-1"}},
		{"bare at sign", "mail me @ home", []string{}},
		{"unicode letters", "hola @méxico", []string{"méxico"}},
		{"email address", "write to bob@north.com", []string{}},
		{"email next to mention", "bob@north.com cc @G2", []string{"G2"}},
		{"after newline", "hi\n@SBY", []string{"SBY"}},
		{"adjacent at signs", "@east@west", []string{"east"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractCaseSensitive(t *testing.T) {
	got := Extract("@Team @team")
	if len(got) != 2 {
		t.Fatalf("Extract() = %v, want two distinct tags", got)
	}
}
