// Package detector identifies the language a document is written in.
package detector

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters is the shortest sample worth classifying.
const minLetters = 12

var (
	buildOnce sync.Once
	shared    lingua.LanguageDetector
)

// languageDetector builds the process-wide lingua detector on first use.
// High accuracy mode: the low accuracy models mistake short English
// passages for Latin.
func languageDetector() lingua.LanguageDetector {
	buildOnce.Do(func() {
		shared = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build()
	})
	return shared
}

// Detector classifies text samples with lingua.
type Detector struct {
	detector lingua.LanguageDetector
}

// New returns a detector over every language lingua knows. All detectors
// share one set of models, loaded lazily.
func New() *Detector {
	return &Detector{detector: languageDetector()}
}

// Detect returns the most likely language of text.
func (d *Detector) Detect(text string) (lingua.Language, bool) {
	sample := strings.TrimSpace(text)
	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(sample)
}

// DetectISO returns the lowercase ISO 639-1 code of the language of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	code := strings.ToLower(lang.IsoCode639_1().String())
	if len(code) != 2 {
		return "", false
	}
	return code, true
}
