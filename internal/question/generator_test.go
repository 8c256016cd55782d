package question

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestThemeForIsDeterministic(t *testing.T) {
	// 2024-01-01T00:xx UTC is epoch hour 473352; 473352 % 10 == 2 → "food".
	at := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, "food", ThemeFor(at))
	assert.Equal(t, ThemeFor(at), ThemeFor(at.Add(20*time.Minute)))

	// Next hour advances one slot.
	assert.Equal(t, "work", ThemeFor(at.Add(time.Hour)))

	// Timezone of the input must not matter.
	rome := time.FixedZone("CET", 3600)
	assert.Equal(t, ThemeFor(at), ThemeFor(at.In(rome)))
}

func TestThemeRotationCoversAllThemes(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < len(Themes); i++ {
		seen[ThemeFor(at.Add(time.Duration(i)*time.Hour))] = true
	}
	assert.Len(t, seen, len(Themes))
}

func TestGenerateWithoutClientUsesStockTable(t *testing.T) {
	g := New("", "")
	for i := 0; i < len(Themes); i++ {
		at := time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC)
		q := g.Generate(context.Background(), at)
		assert.NotEmpty(t, q)
		assert.LessOrEqual(t, len([]rune(q)), MaxLen)
	}
}

func TestFallbackUnknownTheme(t *testing.T) {
	assert.Equal(t, "Is disagreement a sign of progress?", Fallback("astrology"))
}

func newStubClient(serverURL string) *openai.Client {
	cfg := openai.DefaultConfig("test-token")
	cfg.BaseURL = serverURL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestGenerateUsesCompletionAndTruncates(t *testing.T) {
	long := strings.Repeat("Is this a very long question? ", 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: `"` + long + `"`}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g := New("", "test-model", WithClient(newStubClient(server.URL)))
	q := g.Generate(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, []rune(q), MaxLen)
	assert.False(t, strings.HasPrefix(q, `"`))
}

func TestGenerateFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := New("", "test-model", WithClient(newStubClient(server.URL)))
	assert.Equal(t, Fallback(ThemeFor(at)), g.Generate(context.Background(), at))
}

func TestGenerateFallsBackOnTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := New("", "test-model", WithClient(newStubClient(server.URL)), WithTimeout(20*time.Millisecond))
	assert.Equal(t, Fallback(ThemeFor(at)), g.Generate(context.Background(), at))
}
