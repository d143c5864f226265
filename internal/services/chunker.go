package services

import (
	"strings"
)

const (
	chunkTargetChars = 1200
	chunkMinChars    = 40
)

// ChunkText splits material text into chunks on sentence boundaries,
// packing sentences until a chunk reaches the target size. Fragments
// shorter than chunkMinChars are dropped.
func ChunkText(text string) []string {
	var chunks []string
	var buffer []string
	var bufferLen int

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buffer, " "))
		if len(content) >= chunkMinChars {
			chunks = append(chunks, content)
		}
		buffer = buffer[:0]
		bufferLen = 0
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		for _, sentence := range splitSentences(paragraph) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			buffer = append(buffer, sentence)
			bufferLen += len(sentence)
			if bufferLen >= chunkTargetChars {
				flush()
			}
		}
		// Paragraph breaks also end a chunk when enough has accumulated
		if bufferLen >= chunkTargetChars/2 {
			flush()
		}
	}
	flush()

	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
