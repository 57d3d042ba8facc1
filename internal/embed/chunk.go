package embed

import (
	"fmt"
	"strings"

	"github.com/abelbrown/prism/internal/model"
)

// Chunk splits text into overlapping windows of size words, each window
// starting step = size-overlap words after the previous one. The last
// window ends at the final word. Chunk IDs are "chunk_<n>".
func Chunk(text string, size, overlap int) []model.Chunk {
	if size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	chunks := make([]model.Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		chunks = append(chunks, model.Chunk{
			ID:        fmt.Sprintf("chunk_%d", len(chunks)),
			Text:      strings.Join(words[start:end], " "),
			StartWord: start,
			EndWord:   end,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
