package pagetran

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageNames maps locale codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	// Tier 1 (High Quality)
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",

	// Tier 2 (Good Quality)
	"ar_SA": "Arabic (Saudi Arabia)",
	"bn_BD": "Bengali (Bangladesh)",
	"cs_CZ": "Czech (Czech Republic)",
	"da_DK": "Danish (Denmark)",
	"el_GR": "Greek (Greece)",
	"fi_FI": "Finnish (Finland)",
	"he_IL": "Hebrew (Israel)",
	"hi_IN": "Hindi (India)",
	"hu_HU": "Hungarian (Hungary)",
	"id_ID": "Indonesian (Indonesia)",
	"ko_KR": "Korean (South Korea)",
	"nl_NL": "Dutch (Netherlands)",
	"nb_NO": "Norwegian Bokmål (Norway)",
	"pl_PL": "Polish (Poland)",
	"ro_RO": "Romanian (Romania)",
	"ru_RU": "Russian (Russia)",
	"sv_SE": "Swedish (Sweden)",
	"th_TH": "Thai (Thailand)",
	"tr_TR": "Turkish (Turkey)",
	"uk_UA": "Ukrainian (Ukraine)",
	"vi_VN": "Vietnamese (Vietnam)",

	// Tier 3 (Functional)
	"bg_BG": "Bulgarian (Bulgaria)",
	"ca_ES": "Catalan (Spain)",
	"fa_IR": "Persian (Iran)",
	"hr_HR": "Croatian (Croatia)",
	"lt_LT": "Lithuanian (Lithuania)",
	"lv_LV": "Latvian (Latvia)",
	"ms_MY": "Malay (Malaysia)",
	"sk_SK": "Slovak (Slovakia)",
	"sl_SI": "Slovenian (Slovenia)",
	"sr_RS": "Serbian (Serbia)",
	"sw_KE": "Swahili (Kenya)",
	"tl_PH": "Tagalog (Philippines)",
	"ur_PK": "Urdu (Pakistan)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"ja": "ja_JP",
	"pt": "pt_BR",
	"zh": "zh_CN",
	"ko": "ko_KR",
	"ru": "ru_RU",
	"ar": "ar_SA",
	"he": "he_IL",
	"hi": "hi_IN",
	"nl": "nl_NL",
	"pl": "pl_PL",
	"tr": "tr_TR",
	"vi": "vi_VN",
}

// ParseLanguage validates a language code ("fr", "pt-BR", "pt_BR") and
// returns its BCP 47 tag.
func ParseLanguage(code string) (language.Tag, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return language.Und, fmt.Errorf("language code is empty")
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", code, err)
	}
	if base, conf := tag.Base(); conf == language.No || base.String() == "und" {
		return language.Und, fmt.Errorf("invalid language code %q", code)
	}
	return tag, nil
}

// BaseLanguage returns the lowercase primary subtag (e.g., "pt" from "pt_BR").
func BaseLanguage(code string) string {
	tag, err := ParseLanguage(code)
	if err != nil {
		return strings.ToLower(strings.Split(NormalizeLocale(code), "_")[0])
	}
	base, _ := tag.Base()
	return base.String()
}

// localeKey maps a language code to the LanguageNames key format ("pt_BR").
func localeKey(code string) string {
	tag, err := ParseLanguage(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	if region, conf := tag.Region(); conf == language.Exact {
		return base.String() + "_" + region.String()
	}
	return base.String()
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	key := localeKey(langCode)
	if name, ok := LanguageNames[key]; ok {
		return name
	}
	// Try expanding short code
	if locale, ok := ShortCodeToLocale[key]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	if tag, err := ParseLanguage(langCode); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return langCode
}

// localeHints holds regional conventions the model should follow.
var localeHints = map[string]string{
	"es_ES": "Use Castilian Spanish (Spain) vocabulary and conventions, including vosotros where natural.",
	"es_MX": "Use Mexican Spanish vocabulary and conventions.",
	"pt_BR": "Use Brazilian Portuguese spelling and vocabulary.",
	"pt_PT": "Use European Portuguese spelling and vocabulary.",
	"nb_NO": "Write in Norwegian Bokmål, not Nynorsk.",
	"zh_CN": "Use Simplified Chinese characters.",
	"zh_TW": "Use Traditional Chinese characters with Taiwanese vocabulary.",
	"fr_CA": "Use Canadian French vocabulary and conventions.",
	"en_GB": "Use British English spelling.",
}

// GetLocaleClarification returns a regional hint for the language, or "".
func GetLocaleClarification(langCode string) string {
	return localeHints[localeKey(langCode)]
}

// GetStyleDescription describes the register for a translation style.
func GetStyleDescription(style TranslationStyle) string {
	switch style {
	case StyleFormal:
		return "Use a formal, professional register suitable for official documents."
	case StyleCasual:
		return "Use a casual, conversational register suitable for blogs and social media."
	case StyleMarketing:
		return "Use persuasive, engaging language suitable for promotional content."
	case StyleTechnical:
		return "Use precise technical language suitable for documentation. Keep terminology consistent."
	default:
		return "Use a neutral, professional tone suitable for general web content."
	}
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	if RTLLanguages[BaseLanguage(langCode)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(langCode string) bool {
	return GetDirection(langCode) == "rtl"
}

// NormalizeLocale converts a language code to the standard format (e.g., "es-ES" → "es_ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "es_ES" → "es-ES").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}
