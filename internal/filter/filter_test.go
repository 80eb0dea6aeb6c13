package filter

import "testing"

func TestCheck(t *testing.T) {
	f := New(DefaultConfig())

	tests := []struct {
		name       string
		text       string
		wantText   string
		wantReason Reason
	}{
		{"plain sentence", "  The meeting starts at noon.  ", "The meeting starts at noon.", ReasonNone},
		{"empty", "", "", ReasonEmpty},
		{"whitespace", " \n\t ", "", ReasonEmpty},
		{"punctuation only", "...", "", ReasonPunctuation},
		{"exclamation hang", "!!!!!!", "", ReasonPunctuation},
		{"blank audio", "[BLANK_AUDIO]", "", ReasonAnnotation},
		{"music", "(upbeat music)", "", ReasonAnnotation},
		{"music notes", "♪ ♪", "", ReasonAnnotation},
		{"laughs", "*laughs*", "", ReasonAnnotation},
		{"annotation stripped from speech", "[MUSIC] so here we are", "so here we are", ReasonNone},
		{"credit phrase", "Thanks for watching!", "", ReasonPhrase},
		{"credit phrase case", "THANK YOU FOR WATCHING.", "", ReasonPhrase},
		{"amara credit", "Subtitles by the Amara.org community", "", ReasonPhrase},
		{"phrase inside sentence kept", "thank you for watching the demo with us", "thank you for watching the demo with us", ReasonNone},
		{"repetition", "the the the the the", "", ReasonRepetition},
		{"repetition with punctuation", "Okay. Okay. Okay. Okay. Fine.", "", ReasonRepetition},
		{"short repetition kept", "no no no", "no no no", ReasonNone},
		{"numbers", "42", "42", ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotReason := f.Check(tt.text)
			if gotReason != tt.wantReason {
				t.Errorf("Check(%q) reason = %q, want %q", tt.text, gotReason, tt.wantReason)
			}
			if gotText != tt.wantText {
				t.Errorf("Check(%q) text = %q, want %q", tt.text, gotText, tt.wantText)
			}
		})
	}
}

func TestExtraPhrases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraPhrases = []string{"ご視聴ありがとうございました", "  ", "Hello everyone, welcome to my channel."}
	f := New(cfg)

	if _, ok := f.Keep("ご視聴ありがとうございました"); ok {
		t.Error("configured phrase was kept")
	}
	if _, ok := f.Keep("hello everyone welcome to my channel"); ok {
		t.Error("configured phrase with different punctuation was kept")
	}
	if got, ok := f.Keep("hello everyone"); !ok || got != "hello everyone" {
		t.Errorf("Keep() = %q, %v; want kept", got, ok)
	}
}

func TestDisabledFilterOnlyRejectsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	f := New(cfg)

	if got, ok := f.Keep(" [BLANK_AUDIO] "); !ok || got != "[BLANK_AUDIO]" {
		t.Errorf("Keep() = %q, %v; want trimmed text kept", got, ok)
	}
	if _, ok := f.Keep("   "); ok {
		t.Error("empty text kept with filter disabled")
	}
}

func TestRepeatRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRepeatRatio = 0.9
	f := New(cfg)

	if _, reason := f.Check("go go go go stop"); reason != ReasonNone {
		t.Errorf("reason = %q, want kept below ratio", reason)
	}
	if _, reason := f.Check("go go go go go"); reason != ReasonRepetition {
		t.Errorf("reason = %q, want repetition", reason)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		ratio   float64
		wantErr bool
	}{
		{0.6, false},
		{1, false},
		{0, true},
		{1.5, true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.MaxRepeatRatio = tt.ratio
		if err := cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate() with ratio %v error = %v, wantErr %v", tt.ratio, err, tt.wantErr)
		}
	}
}
