package translator

import "strings"

// CEFR writing constraints per level. These are consumed as opaque guideline
// strings; the prompt builder does not interpret them.
var genericGuidelines = map[string]string{
	"A1": "Use only the most common 500-1000 words. Sentences of at most 8 words. " +
		"Present tense only. One idea per sentence. No subordinate clauses, no idioms.",
	"A2": "Use high-frequency vocabulary (top 2000 words). Sentences of at most 12 words. " +
		"Present and simple past tense. Simple connectors only (and, but, because).",
	"B1": "Use everyday vocabulary, explaining rare terms in simple words. Sentences of at most 16 words. " +
		"Common tenses allowed; avoid passive voice and literary constructions.",
	"B2": "Use a broad vocabulary but avoid rare or archaic words. Sentences of at most 22 words. " +
		"All common tenses and moods allowed; limit nested subordinate clauses to one level.",
	"C1": "Use natural, varied vocabulary including some idiomatic expressions. " +
		"No hard sentence-length ceiling, but keep paragraphs readable.",
	"C2": "Write at full native complexity. Preserve the register, nuance and idiom of the source.",
}

// languageGuidelines holds curated grammar constraints for languages with
// level-specific pitfalls. Other languages fall back to the generic table.
var languageGuidelines = map[string]map[string]string{
	"Spanish": {
		"A1": "Use only present indicative. Avoid subjunctive entirely. Prefer 'tener que' over imperative forms.",
		"A2": "Present and preterite only. Avoid imperfect vs preterite contrasts and all subjunctive forms.",
		"B1": "Indicative tenses plus present subjunctive after common triggers (querer que, es importante que).",
	},
	"French": {
		"A1": "Present indicative only. Use 'il y a' constructions. Avoid pronominal verbs beyond s'appeler.",
		"A2": "Present and passé composé. Avoid imparfait, subjonctif and inversion questions.",
		"B1": "Add imparfait and futur proche. Subjonctif only after 'il faut que'.",
	},
	"German": {
		"A1": "Main clauses only, verb in second position. Present tense. Avoid subordinate clauses and cases other than nominative and accusative.",
		"A2": "Add 'weil' and 'dass' clauses and the perfect tense. Avoid genitive and Konjunktiv II.",
		"B1": "Add relative clauses and common dative constructions. Konjunktiv II only for 'würde' + infinitive politeness.",
	},
	"Italian": {
		"A1": "Present indicative only. Avoid clitic pronoun combinations and the congiuntivo.",
		"A2": "Present and passato prossimo. Avoid imperfetto contrasts and the congiuntivo.",
	},
}

// Guideline returns the writing constraints for a target language and CEFR
// level: the generic level guideline, plus the language-specific grammar
// guideline when one is curated. Unrecognized levels get the B1 guideline.
func Guideline(targetLanguage string, cefrLevel string) string {
	level := strings.ToUpper(strings.TrimSpace(cefrLevel))
	generic, ok := genericGuidelines[level]
	if !ok {
		level = "B1"
		generic = genericGuidelines[level]
	}

	if perLevel, ok := languageGuidelines[normalizeLanguage(targetLanguage)]; ok {
		if specific, ok := perLevel[level]; ok {
			return generic + " " + specific
		}
	}
	return generic
}

func normalizeLanguage(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}
