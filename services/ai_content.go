package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lms-ai-backend/internal/chunking"
	"lms-ai-backend/models"
)

// Rune limits on the document text sent with each prompt.
const (
	flashcardTextLimit = 15000
	quizTextLimit      = 15000
	summaryTextLimit   = 4000
	explainTextLimit   = 10000
)

const blockSeparator = "---"

var (
	optionLine  = regexp.MustCompile(`^0?([1-9])\s*:\s*(.*)$`)
	answerIndex = regexp.MustCompile(`\d+`)
)

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func flashcardPrompt(text string, count int) string {
	return fmt.Sprintf(`Generate exactly %d educational flashcards from the text below.

Format each flashcard exactly like this:
Q: Question
A: Answer
D: easy | medium | hard

Separate flashcards with a line containing only "---".

Text:
%s
`, count, truncateRunes(text, flashcardTextLimit))
}

func quizPrompt(text string, numQuestions int) string {
	return fmt.Sprintf(`Generate exactly %d multiple choice questions from the text below.

Format each question exactly like this:
Q: Question
01: First option
02: Second option
03: Third option
04: Fourth option
C: the number of the correct option, for example 03
E: Short explanation of the correct answer
D: easy | medium | hard

Separate questions with a line containing only "---".

Text:
%s
`, numQuestions, truncateRunes(text, quizTextLimit))
}

func summaryPrompt(text string) string {
	return fmt.Sprintf(`Summarize the following text clearly and concisely. Use Markdown headings and bullet points where they help.

%s
`, truncateRunes(text, summaryTextLimit))
}

// chatContext numbers the chunks from 1 in the order given.
func chatContext(chunks []chunking.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Chunk %d]\n%s", i+1, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

func chatPrompt(question string, chunks []chunking.ScoredChunk) string {
	return fmt.Sprintf(`Answer the question using only the context from the document below. If the context does not contain the answer, say so.

Context:
%s

Question: %s
Answer:
`, chatContext(chunks), question)
}

func explainPrompt(concept, context string) string {
	return fmt.Sprintf(`Explain "%s" in simple terms using the context below.

Context:
%s
`, concept, truncateRunes(context, explainTextLimit))
}

func parseDifficulty(value string) string {
	switch d := strings.ToLower(strings.TrimSpace(value)); d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return d
	default:
		return models.DifficultyMedium
	}
}

// field returns the value of a "K:" line, tolerating surrounding whitespace and
// Markdown bold markers.
func field(line, key string) (string, bool) {
	line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
	if !strings.HasPrefix(line, key+":") {
		return "", false
	}
	return strings.TrimSpace(line[len(key)+1:]), true
}

func splitBlocks(output string) []string {
	var blocks []string
	for _, b := range strings.Split(output, blockSeparator) {
		if b = strings.TrimSpace(b); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// parseFlashcards reads Q/A/D blocks. Cards without a question or an answer are
// dropped and at most limit cards are kept.
func parseFlashcards(output string, limit int) []models.Flashcard {
	cards := []models.Flashcard{}
	for _, block := range splitBlocks(output) {
		card := models.Flashcard{Difficulty: models.DifficultyMedium}
		for _, line := range strings.Split(block, "\n") {
			if v, ok := field(line, "Q"); ok {
				card.Question = v
			} else if v, ok := field(line, "A"); ok {
				card.Answer = v
			} else if v, ok := field(line, "D"); ok {
				card.Difficulty = parseDifficulty(v)
			}
		}
		if card.Question == "" || card.Answer == "" {
			continue
		}
		card.ID = primitive.NewObjectID()
		cards = append(cards, card)
		if len(cards) == limit {
			break
		}
	}
	return cards
}

// parseQuiz reads Q/01-04/C/E/D blocks. A question needs exactly four options
// and a correct option number within range; the stored correct answer is
// "NN: option text".
func parseQuiz(output string, limit int) []models.Question {
	questions := []models.Question{}
	for _, block := range splitBlocks(output) {
		q := models.Question{Difficulty: models.DifficultyMedium}
		correct := ""
		for _, raw := range strings.Split(block, "\n") {
			line := strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
			if v, ok := field(line, "Q"); ok {
				q.Question = v
			} else if m := optionLine.FindStringSubmatch(line); m != nil {
				q.Options = append(q.Options, strings.TrimSpace(m[2]))
			} else if v, ok := field(line, "C"); ok {
				correct = answerIndex.FindString(v)
			} else if v, ok := field(line, "E"); ok {
				q.Explanation = v
			} else if v, ok := field(line, "D"); ok {
				q.Difficulty = parseDifficulty(v)
			}
		}

		if q.Question == "" || len(q.Options) != 4 || correct == "" {
			continue
		}
		n, err := strconv.Atoi(correct)
		if err != nil || n < 1 || n > len(q.Options) {
			continue
		}
		q.CorrectAnswer = fmt.Sprintf("%02d: %s", n, q.Options[n-1])
		questions = append(questions, q)
		if len(questions) == limit {
			break
		}
	}
	return questions
}
