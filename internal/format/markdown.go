package format

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Rendered is chat text with its Telegram formatting entities.
type Rendered struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len is the length of s in UTF-16 code units, the unit Telegram uses
// for entity offsets.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// markers recognised by ParseMarkdown. Single * and _ are left alone since
// plan descriptions routinely contain them.
var markers = []struct {
	open   string
	entity string
}{
	{"**", "bold"},
	{"`", "code"},
}

// escaper backslash-escapes every character ParseMarkdown treats as markup.
var escaper = strings.NewReplacer(`\`, `\\`, "`", "\\`", "*", `\*`)

// Escape makes user text render verbatim through ParseMarkdown.
func Escape(s string) string {
	return escaper.Replace(s)
}

// ParseMarkdown strips **bold** and `code` markers and returns the plain
// text with matching entities, ordered by offset. An unclosed marker is kept
// as literal text, and a backslash before \, ` or * emits that character
// as is.
func ParseMarkdown(text string) Rendered {
	var (
		out      strings.Builder
		entities []tgbotapi.MessageEntity
		offset   int
	)

	rest := text
	for len(rest) > 0 {
		if len(rest) > 1 && rest[0] == '\\' && strings.IndexByte("\\`*", rest[1]) >= 0 {
			out.WriteByte(rest[1])
			offset++
			rest = rest[2:]
			continue
		}

		matched := false
		for _, m := range markers {
			if !strings.HasPrefix(rest, m.open) {
				continue
			}
			body := rest[len(m.open):]
			end := strings.Index(body, m.open)
			if end <= 0 {
				continue
			}
			inner := body[:end]
			length := UTF16Len(inner)
			entities = append(entities, tgbotapi.MessageEntity{Type: m.entity, Offset: offset, Length: length})
			out.WriteString(inner)
			offset += length
			rest = body[end+len(m.open):]
			matched = true
			break
		}
		if matched {
			continue
		}

		_, size := utf8.DecodeRuneInString(rest)
		out.WriteString(rest[:size])
		offset += UTF16Len(rest[:size])
		rest = rest[size:]
	}

	return Rendered{Text: strings.TrimRight(out.String(), " \n"), Entities: entities}
}
