package docparse

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bull/course-rag-server/internal/storage"
)

// abbreviations that end with a period mid-sentence and must not be
// treated as sentence boundaries. The guard is heuristic; only the
// overlap and boundary invariants are contractual.
var abbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {},
	"sr": {}, "jr": {}, "st": {}, "vs": {}, "etc": {},
	"inc": {}, "ltd": {}, "dept": {}, "fig": {}, "al": {},
	"e.g": {}, "i.e": {},
}

// SplitSentences splits text on sentence-end punctuation followed by
// whitespace and a capital letter, guarding against abbreviations and
// single-letter initials. Whitespace runs are collapsed first.
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		if j >= len(runes) || runes[j] != ' ' {
			continue
		}
		next := j + 1
		if next >= len(runes) || !unicode.IsUpper(runes[next]) {
			continue
		}
		if r == '.' && isAbbreviation(runes, start, i) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		start = next
		i = next - 1
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// isAbbreviation reports whether the word ending at the period at dot
// looks like an abbreviation or a single-letter initial.
func isAbbreviation(runes []rune, start, dot int) bool {
	w := dot - 1
	for w >= start && (unicode.IsLetter(runes[w]) || runes[w] == '.') {
		w--
	}
	word := strings.ToLower(strings.TrimLeft(string(runes[w+1:dot]), "."))
	if len([]rune(word)) == 1 {
		return true
	}
	_, ok := abbreviations[word]
	return ok
}

// ChunkText greedily packs sentences into windows of at most chunkSize
// characters. Consecutive windows overlap by roughly overlap characters
// of trailing content, re-aligned to the nearest preceding sentence
// boundary so the overlap never splits a sentence. A single sentence
// longer than chunkSize becomes its own oversized chunk.
func ChunkText(text string, chunkSize, overlap int) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		j := i
		for j < len(sentences) {
			add := len(sentences[j])
			if size > 0 {
				add++ // joining space
			}
			if size > 0 && size+add > chunkSize {
				break
			}
			size += add
			j++
		}

		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// Carry whole trailing sentences into the next window until at
		// least overlap characters are covered, always advancing by at
		// least one sentence.
		k := j
		carried := 0
		for k > i+1 && carried < overlap {
			carried += len(sentences[k-1]) + 1
			k--
		}
		i = k
	}

	return chunks
}

// BuildChunks chunks every section and wraps the pieces into Chunk
// records with the enrichment prefix that makes each chunk retrievable
// by course and lesson identity from its text alone. Sequence indexes
// are document-global.
func BuildChunks(course *storage.Course, sections []Section, chunkSize, overlap int) []*storage.Chunk {
	var chunks []*storage.Chunk
	seq := 0

	for _, sec := range sections {
		for _, piece := range ChunkText(sec.Body, chunkSize, overlap) {
			chunk := &storage.Chunk{
				CourseTitle:   course.Title,
				SequenceIndex: seq,
			}
			if sec.Lesson != nil {
				n := sec.Lesson.Number
				chunk.LessonNumber = &n
				chunk.Text = fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, n, piece)
			} else {
				chunk.Text = fmt.Sprintf("Course %s content: %s", course.Title, piece)
			}
			chunks = append(chunks, chunk)
			seq++
		}
	}

	return chunks
}
