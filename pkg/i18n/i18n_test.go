package i18n

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewTranslationSetUnknownLanguageFallsBackToEnglish(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	set := NewTranslationSet(log, "xx")
	if set.ConnectionFailed != englishSet().ConnectionFailed {
		t.Fatalf("expected unknown language to fall back to English, got %q", set.ConnectionFailed)
	}
}

func TestDetectLanguageFallsBackToC(t *testing.T) {
	failing := func() (string, error) { return "", errUnset }
	if got := detectLanguage(failing); got != "C" {
		t.Fatalf("expected fallback locale %q, got %q", "C", got)
	}
}

var errUnset = &unsetLocaleError{}

type unsetLocaleError struct{}

func (e *unsetLocaleError) Error() string { return "locale not set" }
