package guildsync

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"guildsync/pkg/wire"
)

// Embed size limits enforced by the remote service.
const (
	EmbedTitleLimit       = 256
	EmbedDescriptionLimit = 2048
	EmbedFieldLimit       = 25
	EmbedFieldNameLimit   = 256
	EmbedFieldValueLimit  = 1024
	EmbedFooterLimit      = 2048
	EmbedAuthorLimit      = 256
	maxEmbedColor         = 0xFFFFFF
)

// ErrInvalidColor indicates a color that is not a 24-bit RGB value.
var ErrInvalidColor = errors.New("guildsync: invalid embed color")

// EmbedBuilder assembles a wire.ChatEmbed, truncating text to service limits.
type EmbedBuilder struct {
	embed wire.ChatEmbed
}

// NewEmbed starts an empty embed.
func NewEmbed() *EmbedBuilder {
	return &EmbedBuilder{}
}

// Title sets the title.
func (b *EmbedBuilder) Title(title string) *EmbedBuilder {
	b.embed.Title = truncate(title, EmbedTitleLimit)
	return b
}

// Description sets the body text.
func (b *EmbedBuilder) Description(description string) *EmbedBuilder {
	b.embed.Description = truncate(description, EmbedDescriptionLimit)
	return b
}

// URL links the title.
func (b *EmbedBuilder) URL(url string) *EmbedBuilder {
	b.embed.URL = strings.TrimSpace(url)
	return b
}

// Color sets the accent color, clamped to 24 bits.
func (b *EmbedBuilder) Color(color int) *EmbedBuilder {
	b.embed.Color = min(max(color, 0), maxEmbedColor)
	return b
}

// HexColor sets the accent color from "#rrggbb", "rrggbb" or "0xrrggbb".
func (b *EmbedBuilder) HexColor(hex string) (*EmbedBuilder, error) {
	color, err := ParseColor(hex)
	if err != nil {
		return b, err
	}
	b.embed.Color = color

	return b, nil
}

// Timestamp sets the footer timestamp.
func (b *EmbedBuilder) Timestamp(at time.Time) *EmbedBuilder {
	utc := at.UTC()
	b.embed.Timestamp = &utc
	return b
}

// Footer sets the footer line.
func (b *EmbedBuilder) Footer(text, iconURL string) *EmbedBuilder {
	b.embed.Footer = &wire.EmbedFooter{Text: truncate(text, EmbedFooterLimit), IconURL: iconURL}
	return b
}

// Author sets the author line.
func (b *EmbedBuilder) Author(name, url, iconURL string) *EmbedBuilder {
	b.embed.Author = &wire.EmbedAuthor{Name: truncate(name, EmbedAuthorLimit), URL: url, IconURL: iconURL}
	return b
}

// Image sets the large image.
func (b *EmbedBuilder) Image(url string) *EmbedBuilder {
	b.embed.Image = &wire.EmbedMedia{URL: url}
	return b
}

// Thumbnail sets the small image.
func (b *EmbedBuilder) Thumbnail(url string) *EmbedBuilder {
	b.embed.Thumbnail = &wire.EmbedMedia{URL: url}
	return b
}

// Field appends a name/value cell. Fields beyond the limit are ignored.
func (b *EmbedBuilder) Field(name, value string, inline bool) *EmbedBuilder {
	if len(b.embed.Fields) >= EmbedFieldLimit {
		return b
	}
	b.embed.Fields = append(b.embed.Fields, wire.EmbedField{
		Name:   truncate(name, EmbedFieldNameLimit),
		Value:  truncate(value, EmbedFieldValueLimit),
		Inline: inline,
	})

	return b
}

// Build returns the assembled embed. The builder may be reused.
func (b *EmbedBuilder) Build() wire.ChatEmbed {
	embed := b.embed
	embed.Fields = append([]wire.EmbedField(nil), b.embed.Fields...)
	if len(embed.Fields) == 0 {
		embed.Fields = nil
	}

	return embed
}

// ParseColor converts a hex color string into a 24-bit RGB value.
func ParseColor(hex string) (int, error) {
	trimmed := strings.TrimSpace(hex)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(trimmed) == 3 {
		trimmed = string([]byte{trimmed[0], trimmed[0], trimmed[1], trimmed[1], trimmed[2], trimmed[2]})
	}
	if len(trimmed) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	value, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}

	return int(value), nil
}

// truncate shortens s to limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)

	return string(runes[:limit-1]) + "…"
}
