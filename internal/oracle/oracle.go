package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

type questionResult struct {
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	AlternateAnswers []string `json:"alternate_answers"`
	Explanation      string   `json:"explanation"`
	Difficulty       string   `json:"difficulty"`
}

// GenerateQuestion asks the model for one trivia question, steering it
// away from the excluded questions and answers.
func (c *Client) GenerateQuestion(ctx context.Context, topic string, difficulty string, excludedQuestions []string, excludedAnswers []string) (domain.Question, error) {
	topicLine := "general knowledge"
	if topic != "" {
		topicLine = topic
	}

	system := `You are a trivia question writer for a live chat game.
Write one self-contained question with a short, unambiguous answer.

RULES:
1. The answer must be a short phrase, not a sentence.
2. Include up to 4 alternate accepted answers (spellings, shorter forms).
3. The answer must never appear in the question text.
4. Do NOT reuse any of the excluded questions or answers, including rephrasings.

Respond ONLY with JSON:
{"question": "...", "answer": "...", "alternate_answers": ["..."], "explanation": "...", "difficulty": "easy|normal|hard"}`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\nDifficulty: %s\n", topicLine, difficulty)
	if len(excludedQuestions) > 0 {
		sb.WriteString("\nExcluded questions:\n")
		for _, q := range excludedQuestions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	if len(excludedAnswers) > 0 {
		sb.WriteString("\nExcluded answers:\n")
		for _, a := range excludedAnswers {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
	}
	sb.WriteString("\nWrite the question now.")

	raw, err := c.callChat(ctx, 0.9, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return domain.Question{}, err
	}

	var qr questionResult
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &qr); err != nil {
		return domain.Question{}, fmt.Errorf("parsing question response: %w (raw=%s)", err, raw)
	}

	if !domain.ValidDifficulty(qr.Difficulty) {
		qr.Difficulty = difficulty
	}

	return domain.Question{
		Text:             strings.TrimSpace(qr.Question),
		Answer:           strings.TrimSpace(qr.Answer),
		AlternateAnswers: qr.AlternateAnswers,
		Explanation:      strings.TrimSpace(qr.Explanation),
		Difficulty:       qr.Difficulty,
		Topic:            topic,
	}, nil
}

type verifyResult struct {
	IsCorrect  bool    `json:"is_correct"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// VerifyAnswer asks the model whether a guess means the same thing as the
// correct answer.
func (c *Client) VerifyAnswer(ctx context.Context, correctAnswer string, guess string, alternates []string, questionText string, topic string) (domain.Verdict, error) {
	system := `You judge answers in a live trivia game. Decide whether the
player's guess refers to the same thing as the correct answer. Accept
misspellings, shorter forms and common synonyms. Reject guesses that are
merely related or in the right category.

Respond ONLY with JSON:
{"is_correct": true|false, "confidence": 0.0-1.0, "reasoning": "one short sentence"}`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", questionText)
	if topic != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", topic)
	}
	fmt.Fprintf(&sb, "Correct answer: %s\n", correctAnswer)
	if len(alternates) > 0 {
		fmt.Fprintf(&sb, "Also accepted: %s\n", strings.Join(alternates, ", "))
	}
	fmt.Fprintf(&sb, "Player's guess: %s\n", guess)

	raw, err := c.callChat(ctx, 0.1, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return domain.Verdict{}, err
	}

	var vr verifyResult
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &vr); err != nil {
		return domain.Verdict{}, fmt.Errorf("parsing verify response: %w (raw=%s)", err, raw)
	}

	return domain.Verdict{
		IsCorrect:  vr.IsCorrect,
		Confidence: vr.Confidence,
		Reasoning:  vr.Reasoning,
	}, nil
}

// Translate renders text into the target language. The engine uses it to
// bring non-English guesses into English before verification.
func (c *Client) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	system := fmt.Sprintf(`Translate the user's message into %s.
Respond with the translation only, no quotes, no commentary.`, targetLanguage)

	out, err := c.callChat(ctx, 0.2, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
