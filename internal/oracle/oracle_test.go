package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse(t *testing.T) {
	testCases := []struct {
		desc     string
		raw      string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanJSONResponse(tc.raw))
		})
	}
}

func fakeCompletion(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerateQuestion(t *testing.T) {
	srv := fakeCompletion(t, "```json\n{\"question\": \"What planet is known as the Red Planet?\", \"answer\": \"Mars\", \"alternate_answers\": [\"the red planet\"], \"explanation\": \"Iron oxide colors its surface.\", \"difficulty\": \"easy\"}\n```")
	defer srv.Close()

	c := NewClient("test-key", "test-model")
	c.endpoint = srv.URL

	q, err := c.GenerateQuestion(context.Background(), "space", "easy", []string{"What is the largest planet?"}, []string{"Jupiter"})
	require.NoError(t, err)
	assert.Equal(t, "What planet is known as the Red Planet?", q.Text)
	assert.Equal(t, "Mars", q.Answer)
	assert.Equal(t, []string{"the red planet"}, q.AlternateAnswers)
	assert.Equal(t, "easy", q.Difficulty)
	assert.Equal(t, "space", q.Topic)
}

func TestGenerateQuestion_BadDifficultyFallsBack(t *testing.T) {
	srv := fakeCompletion(t, `{"question": "Long enough question text?", "answer": "yes", "difficulty": "impossible"}`)
	defer srv.Close()

	c := NewClient("test-key", "")
	c.endpoint = srv.URL

	q, err := c.GenerateQuestion(context.Background(), "", "hard", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hard", q.Difficulty)
}

func TestVerifyAnswer(t *testing.T) {
	srv := fakeCompletion(t, `{"is_correct": true, "confidence": 0.93, "reasoning": "Same person."}`)
	defer srv.Close()

	c := NewClient("test-key", "")
	c.endpoint = srv.URL

	v, err := c.VerifyAnswer(context.Background(), "Marie Curie", "curie", []string{"madame curie"}, "Who discovered radium?", "science")
	require.NoError(t, err)
	assert.True(t, v.IsCorrect)
	assert.InDelta(t, 0.93, v.Confidence, 0.001)
}

func TestVerifyAnswer_GarbageResponse(t *testing.T) {
	srv := fakeCompletion(t, "definitely correct, trust me")
	defer srv.Close()

	c := NewClient("test-key", "")
	c.endpoint = srv.URL

	_, err := c.VerifyAnswer(context.Background(), "a", "b", nil, "q", "")
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	srv := fakeCompletion(t, "  hello world\n")
	defer srv.Close()

	c := NewClient("test-key", "")
	c.endpoint = srv.URL

	out, err := c.Translate(context.Background(), "hola mundo", "English")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestCallChat_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-key", "")
	c.endpoint = srv.URL

	_, err := c.callChat(context.Background(), 0, []chatMessage{{Role: "user", Content: "hi"}})
	assert.Error(t, err)
}
