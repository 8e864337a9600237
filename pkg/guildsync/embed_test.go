package guildsync

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEmbedBuilderTruncatesAndClamps(t *testing.T) {
	t.Parallel()

	builder := NewEmbed().
		Title(strings.Repeat("t", EmbedTitleLimit+10)).
		Description("  body  ").
		Color(0x1FFFFFF).
		Footer("footer", "")
	for i := 0; i < EmbedFieldLimit+3; i++ {
		builder.Field("name", strings.Repeat("v", EmbedFieldValueLimit+1), i%2 == 0)
	}
	embed := builder.Build()

	if got := utf8.RuneCountInString(embed.Title); got != EmbedTitleLimit {
		t.Fatalf("title runes = %d, want %d", got, EmbedTitleLimit)
	}
	if embed.Description != "body" {
		t.Fatalf("description = %q, want body", embed.Description)
	}
	if embed.Color != 0xFFFFFF {
		t.Fatalf("color = %#x, want 0xffffff", embed.Color)
	}
	if len(embed.Fields) != EmbedFieldLimit {
		t.Fatalf("fields = %d, want %d", len(embed.Fields), EmbedFieldLimit)
	}
	if got := utf8.RuneCountInString(embed.Fields[0].Value); got != EmbedFieldValueLimit {
		t.Fatalf("field value runes = %d, want %d", got, EmbedFieldValueLimit)
	}
	if embed.Footer == nil || embed.Footer.Text != "footer" {
		t.Fatalf("footer = %+v", embed.Footer)
	}
}

func TestEmbedBuildIsDetached(t *testing.T) {
	t.Parallel()

	builder := NewEmbed().Field("a", "1", false)
	first := builder.Build()
	builder.Field("b", "2", false)

	if len(first.Fields) != 1 {
		t.Fatalf("first build fields = %d, want 1", len(first.Fields))
	}
	if empty := NewEmbed().Build(); empty.Fields != nil {
		t.Fatalf("empty build fields = %v, want nil", empty.Fields)
	}
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "#ff0000", want: 0xFF0000},
		{input: "00ff00", want: 0x00FF00},
		{input: "0x0000FF", want: 0x0000FF},
		{input: "#abc", want: 0xAABBCC},
		{input: "#12345", wantErr: true},
		{input: "zzzzzz", wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseColor(testCase.input)
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidColor) {
					t.Fatalf("ParseColor() error = %v, want ErrInvalidColor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor() error = %v", err)
			}
			if got != testCase.want {
				t.Fatalf("ParseColor() = %#x, want %#x", got, testCase.want)
			}
		})
	}
}
