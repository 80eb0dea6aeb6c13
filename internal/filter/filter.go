package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Reason explains why a result was discarded.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonEmpty       Reason = "empty"
	ReasonPunctuation Reason = "punctuation"
	ReasonAnnotation  Reason = "annotation"
	ReasonPhrase      Reason = "phrase"
	ReasonRepetition  Reason = "repetition"
)

// minRepeatWords is the shortest text checked for degenerate repetition.
const minRepeatWords = 4

// creditPhrases are outputs Whisper-family models produce on silence or noise.
var creditPhrases = []string{
	"thank you for watching",
	"thanks for watching",
	"thank you for watching please subscribe to my channel",
	"please subscribe to my channel",
	"like and subscribe",
	"subtitles by the amara org community",
	"subtitles by",
	"transcribed by",
	"thank you",
	"thank you very much",
	"bye",
	"you",
}

var annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*|♪+|♫+`)

type Config struct {
	Enabled        bool
	ExtraPhrases   []string
	MaxRepeatRatio float64
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		MaxRepeatRatio: 0.6,
	}
}

func (c Config) Validate() error {
	if c.MaxRepeatRatio <= 0 || c.MaxRepeatRatio > 1 {
		return fmt.Errorf("invalid MaxRepeatRatio: %f (must be in (0, 1])", c.MaxRepeatRatio)
	}
	return nil
}

// Filter drops degenerate recognizer output before it reaches the display.
type Filter struct {
	cfg     Config
	phrases map[string]struct{}
}

func New(cfg Config) *Filter {
	phrases := make(map[string]struct{}, len(creditPhrases)+len(cfg.ExtraPhrases))
	for _, p := range creditPhrases {
		phrases[normalize(p)] = struct{}{}
	}
	for _, p := range cfg.ExtraPhrases {
		if n := normalize(p); n != "" {
			phrases[n] = struct{}{}
		}
	}
	return &Filter{cfg: cfg, phrases: phrases}
}

// Keep returns the cleaned text and whether it should be displayed.
func (f *Filter) Keep(text string) (string, bool) {
	cleaned, reason := f.Check(text)
	if reason != ReasonNone {
		log.Debug().Str("reason", string(reason)).Str("text", text).Msg("Filter: discarded result")
		return "", false
	}
	return cleaned, true
}

// Check classifies text. A ReasonNone result means keep.
func (f *Filter) Check(text string) (string, Reason) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ReasonEmpty
	}
	if !f.cfg.Enabled {
		return trimmed, ReasonNone
	}

	stripped := strings.Join(strings.Fields(annotationPattern.ReplaceAllString(trimmed, " ")), " ")
	if stripped == "" {
		return "", ReasonAnnotation
	}
	if !hasAlphanumeric(stripped) {
		return "", ReasonPunctuation
	}

	norm := normalize(stripped)
	if _, ok := f.phrases[norm]; ok {
		return "", ReasonPhrase
	}
	if f.repetitive(norm) {
		return "", ReasonRepetition
	}
	return stripped, ReasonNone
}

func (f *Filter) repetitive(norm string) bool {
	words := strings.Fields(norm)
	if len(words) < minRepeatWords {
		return false
	}
	counts := make(map[string]int, len(words))
	top := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > top {
			top = counts[w]
		}
	}
	return float64(top)/float64(len(words)) > f.cfg.MaxRepeatRatio
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// normalize lowercases and drops everything except letters, digits and
// single spaces.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
