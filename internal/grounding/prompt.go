package grounding

import (
	"fmt"
	"strings"
)

// systemPrompt frames the model as a compliance reviewer. JSON-only output
// is the load-bearing instruction: it is what makes the parser's contract
// well-defined.
const systemPrompt = `You are a strict compliance and quality control reviewer for advertising copy. You verify ad claims against reference text taken from the advertiser's own website. You never invent facts, you only cite the reference text, and you respond with a single JSON object and nothing else.`

// BuildPrompt constructs the verification prompt from a query. Claims are
// numbered so the response can be aligned one-to-one; evidence is grouped
// under provenance headers so cited spans are traceable.
func BuildPrompt(q Query) string {
	var b strings.Builder

	b.WriteString("Verify each numbered claim from an ad against the reference text below.\n\n")
	b.WriteString("For every claim decide:\n")
	b.WriteString("- SUPPORTED: the reference text states or directly implies the claim\n")
	b.WriteString("- CONTRADICTED: the reference text states something incompatible with the claim\n")
	b.WriteString("- UNVERIFIABLE: the reference text says nothing that confirms or denies the claim\n\n")

	b.WriteString("Return a single JSON object. Do not use Markdown code blocks. Structure:\n")
	b.WriteString(`{"verdicts": [{"claim": <claim number>, "status": "SUPPORTED" | "CONTRADICTED" | "UNVERIFIABLE", "confidence": <number between 0.0 and 1.0>, "evidence": "<short span quoted from the reference text, or empty string>"}]`)
	if q.Tone {
		b.WriteString(`, "tone_notes": "<one or two sentences on whether the ad's voice matches the site's voice>"`)
	}
	b.WriteString("}\n")
	b.WriteString("Every claim number must appear exactly once in verdicts.\n\n")

	b.WriteString("Claims:\n")
	for i, claim := range q.Claims {
		fmt.Fprintf(&b, "%d. %s\n", i+1, claim.Text)
	}

	b.WriteString("\nReference text:\n")
	currentSource := ""
	for _, seg := range q.Evidence.Segments {
		if seg.SourceURL != currentSource {
			currentSource = seg.SourceURL
			fmt.Fprintf(&b, "\n[source: %s]\n", currentSource)
		}
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nFull ad copy, for context:\n")
	b.WriteString(q.AdCopy)
	b.WriteString("\n")

	return b.String()
}
