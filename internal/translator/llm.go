package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pretzelai/openlingo/pkg/log"
)

type chatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// llmTranslator adapts chunks through an external chat-completion model.
// It honors the no-throw contract: every failure path returns a degraded
// result instead of an error.
type llmTranslator struct {
	client         chatClient
	bridgeLanguage string
}

// NewLLMTranslator creates a Translator backed by a chat-completion client.
// bridgeLanguage is the pivot language of the interlinear gloss.
func NewLLMTranslator(client chatClient, bridgeLanguage string) Translator {
	if bridgeLanguage == "" {
		bridgeLanguage = "English"
	}
	return &llmTranslator{
		client:         client,
		bridgeLanguage: bridgeLanguage,
	}
}

func (t *llmTranslator) Translate(ctx context.Context, req Request) Result {
	if t.client == nil {
		return Degraded(req.Chunk, "no translation client configured")
	}

	reply, err := t.client.SimpleChat(ctx, req.Chunk, t.buildSystemPrompt(req))
	if err != nil {
		log.Warn("Translation call failed: %v", err)
		return Degraded(req.Chunk, fmt.Sprintf("translation call failed: %v", err))
	}

	block, err := parseBlock(reply)
	if err != nil {
		log.Warn("Unparseable translation response: %v", err)
		return Degraded(req.Chunk, fmt.Sprintf("unparseable response: %v", err))
	}
	if strings.TrimSpace(block.Translated) == "" {
		return Degraded(req.Chunk, "response missing translated field")
	}
	if strings.TrimSpace(block.Original) == "" {
		block.Original = req.Chunk
	}

	if block.Bridge != "" {
		translatedSentences := sentenceCount(block.Translated)
		bridgeSentences := sentenceCount(block.Bridge)
		if translatedSentences != bridgeSentences {
			log.Warn("Bridge gloss misaligned: %d translated sentences vs %d bridge sentences",
				translatedSentences, bridgeSentences)
		}
	}

	return Translated(block)
}

func (t *llmTranslator) buildSystemPrompt(req Request) string {
	var prompt strings.Builder

	prompt.WriteString("You are an expert language-learning content adapter. ")
	prompt.WriteString("Translate and adapt the text the user sends into " + req.TargetLanguage)
	prompt.WriteString(" at CEFR level " + strings.ToUpper(req.CEFRLevel) + ".\n\n")

	prompt.WriteString("=== LEVEL CONSTRAINTS ===\n")
	prompt.WriteString(Guideline(req.TargetLanguage, req.CEFRLevel) + "\n")

	if req.CleanOriginal {
		prompt.WriteString("\n=== EXTRACTION ===\n")
		prompt.WriteString("The input may be raw HTML or contain navigation and boilerplate. ")
		prompt.WriteString("First extract only the article text, then translate that. ")
		prompt.WriteString("Return the cleaned article text as the original field.\n")
	}

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY a JSON object with exactly these fields:\n")
	prompt.WriteString(`{"original": "<source text>", "translated": "<adapted translation>", "bridge": "<gloss>"}` + "\n")
	prompt.WriteString("The bridge field is a literal " + t.bridgeLanguage + " gloss of the translated field. ")
	prompt.WriteString("It must contain exactly the same number of sentences as the translated field, ")
	prompt.WriteString("sentence N of the bridge glossing sentence N of the translation.\n")
	prompt.WriteString("Do not wrap the JSON in markdown fences or add any other text.\n")

	return prompt.String()
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseBlock pulls the JSON object out of a model reply, tolerating markdown
// fences and prose around it.
func parseBlock(reply string) (Block, error) {
	text := strings.TrimSpace(reply)
	if m := codeFenceRe.FindStringSubmatch(text); len(m) == 2 {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Block{}, fmt.Errorf("no JSON object in response")
	}

	var block Block
	if err := json.Unmarshal([]byte(text[start:end+1]), &block); err != nil {
		return Block{}, err
	}
	block.Degraded = false
	return block, nil
}

var sentenceEndRe = regexp.MustCompile(`[^.!?…]+[.!?…]+`)

func sentenceCount(text string) int {
	n := len(sentenceEndRe.FindAllString(text, -1))
	if n == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return n
}
