package models

import "sort"

// Model is a ggml whisper.cpp model published on huggingface.
type Model struct {
	ID           string
	Name         string
	Filename     string
	Size         string
	SizeBytes    int64
	Multilingual bool
}

// DefaultModel is a multilingual model small enough to keep up with live speech.
const DefaultModel = "base"

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

var catalogue = []Model{
	{ID: "tiny.en", Name: "Tiny English", Filename: "ggml-tiny.en.bin", Size: "75MB", SizeBytes: 75_000_000},
	{ID: "base.en", Name: "Base English", Filename: "ggml-base.en.bin", Size: "142MB", SizeBytes: 142_000_000},
	{ID: "small.en", Name: "Small English", Filename: "ggml-small.en.bin", Size: "466MB", SizeBytes: 466_000_000},
	{ID: "medium.en", Name: "Medium English", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_500_000_000},

	{ID: "tiny", Name: "Tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Name: "Base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Name: "Small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Name: "Medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large-v3", Name: "Large V3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000, Multilingual: true},
	{ID: "large-v3-turbo", Name: "Large V3 Turbo", Filename: "ggml-large-v3-turbo.bin", Size: "1.6GB", SizeBytes: 1_620_000_000, Multilingual: true},
}

var byID = func() map[string]Model {
	m := make(map[string]Model, len(catalogue))
	for _, model := range catalogue {
		m[model.ID] = model
	}
	return m
}()

// Get returns the catalogue entry for id.
func Get(id string) (Model, bool) {
	m, ok := byID[id]
	return m, ok
}

// List returns the catalogue, English-only models first.
func List() []Model {
	out := make([]Model, len(catalogue))
	copy(out, catalogue)
	return out
}

// IDs returns every model ID in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(catalogue))
	for _, m := range catalogue {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

// Multilingual returns models that can transcribe and translate non-English speech.
func Multilingual() []Model {
	var out []Model
	for _, m := range catalogue {
		if m.Multilingual {
			out = append(out, m)
		}
	}
	return out
}
