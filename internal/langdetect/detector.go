// Package langdetect classifies the source language of extracted article
// text. An external model call is the primary strategy; a local statistical
// detector backs it up so a missing API key or a flaky model reply degrades
// softly instead of blocking the job.
package langdetect

import (
	"context"
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pretzelai/openlingo/pkg/log"
)

// Unknown is the soft-failure language name; jobs proceed with it recorded.
const Unknown = "Unknown"

const (
	// sampleLimit caps how much text is sent to the model.
	sampleLimit = 1000
	// offlineConfidenceFloor gates the local detector; below it the sample
	// is too ambiguous to name a language.
	offlineConfidenceFloor = 0.7
)

const detectSystemPrompt = "You identify the language a text is written in. " +
	"Reply with only the English name of the language as a single word, for example: Spanish"

type chatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// Detector names the language of a text sample.
type Detector struct {
	client chatClient
}

// New creates a Detector. A nil client skips the model call and relies on
// the local detector alone.
func New(client chatClient) *Detector {
	return &Detector{client: client}
}

// Detect returns the English name of the sample's language, or Unknown.
// It never fails: model errors and unusable replies fall through to the
// local detector, and an unconfident local result yields Unknown.
func (d *Detector) Detect(ctx context.Context, sample string) string {
	sample = truncate(strings.TrimSpace(sample), sampleLimit)
	if sample == "" {
		return Unknown
	}

	if d.client != nil {
		reply, err := d.client.SimpleChat(ctx, "Text:\n"+sample, detectSystemPrompt)
		if err != nil {
			log.Warn("Language detection model call failed: %v", err)
		} else if name := NormalizeName(reply); name != "" {
			return name
		}
	}

	return offlineDetect(sample)
}

var alphaTokenRe = regexp.MustCompile(`[A-Za-z]+`)

// NormalizeName reduces a model reply to a single capitalized alphabetic
// token. Returns "" when the reply holds no usable token.
func NormalizeName(reply string) string {
	token := alphaTokenRe.FindString(reply)
	if token == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(token))
}

// offlineDetect runs the trigram detector and maps the ISO code to an
// English display name.
func offlineDetect(sample string) string {
	info := whatlanggo.Detect(sample)
	if info.Confidence < offlineConfidenceFloor {
		return Unknown
	}
	iso := info.Lang.Iso6391()
	if iso == "" {
		return Unknown
	}
	tag, err := language.Parse(iso)
	if err != nil {
		return Unknown
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return Unknown
	}
	return name
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
