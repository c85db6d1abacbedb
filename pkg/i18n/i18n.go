// Package i18n supplies the handful of localized strings srun attaches to
// user-facing error reports (spec.md §7's Error Taxonomy carries a machine
// Kind; the CLI layer is free to append a human hint, the same role
// lazydocker's pkg/i18n plays for its own error/status strings).
package i18n

import (
	"github.com/cloudfoundry/jibber_jabber"
	"github.com/imdario/mergo"
	"github.com/sirupsen/logrus"
)

// Localizer carries the active TranslationSet for a run.
type Localizer struct {
	Log *logrus.Entry
	S   TranslationSet
}

// NewTranslationSet resolves language (an ISO code, or "auto" to detect the
// user's locale via jibber_jabber) to a TranslationSet, always merging onto
// the English set as a base so every field is populated even when language
// only partially overrides it — the same merge lazydocker's
// NewTranslationSetFromConfig performs with mergo before falling back.
func NewTranslationSet(log *logrus.Entry, language string) TranslationSet {
	resolved := language
	if resolved == "auto" {
		resolved = detectLanguage(jibber_jabber.DetectLanguage)
	}
	log.Debugf("language: %s", resolved)

	set, ok := translationSets[resolved]
	if !ok {
		return englishSet()
	}

	base := englishSet()
	if err := mergo.Merge(&set, base); err != nil {
		log.Warnf("failed to merge %s translations onto English base: %v", resolved, err)
		return base
	}
	return set
}

var translationSets = map[string]TranslationSet{
	"en": englishSet(),
}

// detectLanguage extracts the user's language from the environment,
// falling back to the POSIX "C" locale when detection fails.
func detectLanguage(langDetector func() (string, error)) string {
	if userLang, err := langDetector(); err == nil {
		return userLang
	}
	return "C"
}
