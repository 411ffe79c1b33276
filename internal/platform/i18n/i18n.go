// Package i18n resolves supported locales and formats locale-aware values.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	supported = []language.Tag{
		language.AmericanEnglish,
		language.BrazilianPortuguese,
	}
	matcher = language.NewMatcher(supported)
)

// DefaultTag returns the fallback language tag.
func DefaultTag() language.Tag {
	return language.AmericanEnglish
}

// SupportedTags returns the supported language tags.
func SupportedTags() []language.Tag {
	tags := make([]language.Tag, len(supported))
	copy(tags, supported)
	return tags
}

// ParseTag parses a locale string into a supported tag.
// The bool reports whether the value matched a supported locale.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTag(), false
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return DefaultTag(), false
	}
	_, index, confidence := matcher.Match(parsed)
	if confidence == language.No {
		return DefaultTag(), false
	}
	return supported[index], true
}

// MatchTags picks the best supported tag for an Accept-Language preference list.
func MatchTags(preferred []language.Tag) language.Tag {
	if len(preferred) == 0 {
		return DefaultTag()
	}
	_, index, confidence := matcher.Match(preferred...)
	if confidence == language.No {
		return DefaultTag()
	}
	return supported[index]
}

// FormatQuantity renders a quantity with the locale's decimal separator.
// At most two fraction digits are kept and trailing zeros are trimmed.
func FormatQuantity(tag language.Tag, value float64) string {
	printer := message.NewPrinter(tag)
	return printer.Sprintf("%v", number.Decimal(value,
		number.MaxFractionDigits(2),
		number.MinFractionDigits(0),
	))
}
