package models

import "strings"

const (
	LangDe = "de"
	LangEn = "en"
)

// NormalizeLanguage maps any requested language to one of the two supported ones.
// German is the default.
func NormalizeLanguage(lang string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), LangEn) {
		return LangEn
	}
	return LangDe
}

func localized(lang, de, en string) string {
	if lang == LangEn && strings.TrimSpace(en) != "" {
		return en
	}
	return de
}

func (p Product) LocalizedName(lang string) string {
	return localized(lang, p.NameDe, p.NameEn)
}

func (p Product) LocalizedDescription(lang string) string {
	return localized(lang, p.DescriptionDe, p.DescriptionEn)
}

func (o Option) LocalizedName(lang string) string {
	return localized(lang, o.NameDe, o.NameEn)
}

func (o Option) LocalizedDescription(lang string) string {
	return localized(lang, o.DescriptionDe, o.DescriptionEn)
}
