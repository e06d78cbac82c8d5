package extract

import (
	"net/url"
	"strings"
)

// Strategy describes per-site handling resolved once per job from the source
// URL. The zero value is the default pipeline behavior.
type Strategy struct {
	// SkipExtraction passes noise-stripped raw HTML straight to the
	// translator instead of running the readability heuristic.
	SkipExtraction bool
	// SkipChunking treats the whole document as a single chunk.
	SkipChunking bool
	// TranslatorCleans instructs the translation model to do its own
	// extraction and return a cleaned original field.
	TranslatorCleans bool
}

// hostOverrides maps hostname suffixes to strategies for sites whose markup
// defeats generic extraction or is already a clean translation candidate.
var hostOverrides = map[string]Strategy{
	// Text-only mirrors: already clean, short enough to translate whole.
	"lite.cnn.com":        {SkipExtraction: true, TranslatorCleans: true},
	"text.npr.org":        {SkipExtraction: true, TranslatorCleans: true, SkipChunking: true},
	"lite.duckduckgo.com": {SkipExtraction: true, TranslatorCleans: true},
}

// ResolveStrategy returns the strategy for the given source URL. Unknown
// hosts get the zero-value default.
func ResolveStrategy(rawURL string) Strategy {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Strategy{}
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	for suffix, strategy := range hostOverrides {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return strategy
		}
	}
	return Strategy{}
}
