package llm

import (
	"fmt"
	"strings"
)

func buildPairPrompt(req PairRequest) string {
	speaker := strings.TrimSpace(req.Speaker)
	if speaker == "" {
		speaker = "unknown speaker"
	}

	return fmt.Sprintf(`You compare two quotes attributed to the same speaker and decide whether they record the same statement.

Speaker: %s

Quote A:
%s

Quote B:
%s

Classify the relationship of A to B as exactly one of:
- IDENTICAL: the same words, ignoring punctuation, casing, and trivial transcription differences
- SUBSET: one quote is an excerpt or trimmed version of the other
- PARAPHRASE: the same statement reworded
- SAME_TOPIC: different statements about the same subject
- UNRELATED: different statements

Answer with a single JSON object and nothing else:
{"relationship": "IDENTICAL|SUBSET|PARAPHRASE|SAME_TOPIC|UNRELATED", "confidence": 0.0-1.0, "canonical": "a|b", "explanation": "one sentence"}

"canonical" names the more complete quote.`,
		speaker,
		strings.TrimSpace(req.QuoteA),
		strings.TrimSpace(req.QuoteB),
	)
}
