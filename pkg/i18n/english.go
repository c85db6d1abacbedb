package i18n

func englishSet() TranslationSet {
	return TranslationSet{
		ErrorOccurred:             "An error occurred while running the task.",
		ConnectionFailed:          "connection to the container engine failed; confirm it is running and reachable",
		PermissionDeniedReadHint:  "grant read access to this path with --allow-read",
		PermissionDeniedWriteHint: "grant write access to this path with --allow-write",
		PermissionDeniedNetHint:   "grant network access with --allow-net",
	}
}
