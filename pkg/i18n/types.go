package i18n

// TranslationSet is the small set of localized, user-facing strings srun
// emits — a few hint lines attached to error reports, not a full UI
// vocabulary.
type TranslationSet struct {
	ErrorOccurred            string
	ConnectionFailed         string
	PermissionDeniedReadHint string
	PermissionDeniedWriteHint string
	PermissionDeniedNetHint  string
}
