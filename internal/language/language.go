package language

import "strings"

// Language is a spoken language a recognizer can be told to expect.
type Language struct {
	Code       string // ISO 639-1 code (e.g., "en", "es", "zh")
	Name       string // English name (e.g., "English", "Spanish")
	NativeName string // Native name (e.g., "English", "Espanol", "中文")
}

// Auto lets the recognizer detect the language per segment.
var Auto = Language{Code: "", Name: "Auto-detect", NativeName: ""}

// Whisper's 57 supported languages.
var languages = []Language{
	{Code: "af", Name: "Afrikaans", NativeName: "Afrikaans"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية"},
	{Code: "hy", Name: "Armenian", NativeName: "Հայերեն"},
	{Code: "az", Name: "Azerbaijani", NativeName: "Azərbaycan"},
	{Code: "be", Name: "Belarusian", NativeName: "Беларуская"},
	{Code: "bs", Name: "Bosnian", NativeName: "Bosanski"},
	{Code: "bg", Name: "Bulgarian", NativeName: "Български"},
	{Code: "ca", Name: "Catalan", NativeName: "Català"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "hr", Name: "Croatian", NativeName: "Hrvatski"},
	{Code: "cs", Name: "Czech", NativeName: "Čeština"},
	{Code: "da", Name: "Danish", NativeName: "Dansk"},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "et", Name: "Estonian", NativeName: "Eesti"},
	{Code: "fi", Name: "Finnish", NativeName: "Suomi"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "gl", Name: "Galician", NativeName: "Galego"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "el", Name: "Greek", NativeName: "Ελληνικά"},
	{Code: "he", Name: "Hebrew", NativeName: "עברית"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "hu", Name: "Hungarian", NativeName: "Magyar"},
	{Code: "is", Name: "Icelandic", NativeName: "Íslenska"},
	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ"},
	{Code: "kk", Name: "Kazakh", NativeName: "Қазақ"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "lv", Name: "Latvian", NativeName: "Latviešu"},
	{Code: "lt", Name: "Lithuanian", NativeName: "Lietuvių"},
	{Code: "mk", Name: "Macedonian", NativeName: "Македонски"},
	{Code: "ms", Name: "Malay", NativeName: "Bahasa Melayu"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी"},
	{Code: "mi", Name: "Maori", NativeName: "Māori"},
	{Code: "ne", Name: "Nepali", NativeName: "नेपाली"},
	{Code: "no", Name: "Norwegian", NativeName: "Norsk"},
	{Code: "fa", Name: "Persian", NativeName: "فارسی"},
	{Code: "pl", Name: "Polish", NativeName: "Polski"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "ro", Name: "Romanian", NativeName: "Română"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "sr", Name: "Serbian", NativeName: "Српски"},
	{Code: "sk", Name: "Slovak", NativeName: "Slovenčina"},
	{Code: "sl", Name: "Slovenian", NativeName: "Slovenščina"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "sw", Name: "Swahili", NativeName: "Kiswahili"},
	{Code: "sv", Name: "Swedish", NativeName: "Svenska"},
	{Code: "tl", Name: "Tagalog", NativeName: "Tagalog"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	{Code: "th", Name: "Thai", NativeName: "ไทย"},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "uk", Name: "Ukrainian", NativeName: "Українська"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt"},
	{Code: "cy", Name: "Welsh", NativeName: "Cymraeg"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages)+1)
	m[""] = Auto
	for _, lang := range languages {
		m[lang.Code] = lang
	}
	return m
}()

// Label renders the language for pickers, e.g. "German (Deutsch)".
func (l Language) Label() string {
	if l.Code == "" {
		return l.Name
	}
	if l.NativeName == "" || l.NativeName == l.Name {
		return l.Name
	}
	return l.Name + " (" + l.NativeName + ")"
}

// Normalize lowercases a configured code and maps "auto" to "".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "auto" {
		return ""
	}
	return code
}

// FromCode returns the Language for code, or Auto when it is unknown.
func FromCode(code string) Language {
	if lang, ok := byCode[Normalize(code)]; ok {
		return lang
	}
	return Auto
}

// List returns all languages, excluding Auto.
func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

func Codes() []string {
	codes := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
	}
	return codes
}

// IsValidCode accepts known codes plus "" and "auto".
func IsValidCode(code string) bool {
	_, ok := byCode[Normalize(code)]
	return ok
}

var deepgramLocales = map[string]string{
	"en": "en-US",
	"pt": "pt-BR",
	"zh": "zh-CN",
}

// ForProvider converts a code to the form a recognizer backend expects.
// whisper.cpp wants "auto" for detection; Deepgram wants regional locales
// for a few languages.
func ForProvider(code, provider string) string {
	code = Normalize(code)
	switch provider {
	case "whisper-cli", "whisper-cpp":
		if code == "" {
			return "auto"
		}
	case "deepgram":
		if locale, ok := deepgramLocales[code]; ok {
			return locale
		}
	}
	return code
}
