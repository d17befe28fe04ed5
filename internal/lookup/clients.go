package lookup

// Clients bundles the service clients the editor talks to. Fields may
// be nil when a service is not configured; callers check before use.
type Clients struct {
	Citations    *CitationClient
	Quotes       *QuoteClient
	Translations *TranslationClient
	Glossaries   *GlossaryClient
}
