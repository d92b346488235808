package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(url string) *Client {
	return NewClient(url, 5*time.Second, 5*time.Second)
}

func TestGenerate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response": "  the answer  \n",
			"done":     true,
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	out, err := c.Generate(context.Background(), GenerateRequest{
		Model:       "mistral:7b",
		Prompt:      "analyze this",
		System:      "you are careful",
		Temperature: 0.3,
		MaxTokens:   2048,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "the answer" {
		t.Errorf("Expected trimmed response, got %q", out)
	}

	if gotBody["model"] != "mistral:7b" || gotBody["system"] != "you are careful" {
		t.Errorf("Request body mismatch: %+v", gotBody)
	}
	if gotBody["stream"] != false {
		t.Errorf("Expected stream false, got %v", gotBody["stream"])
	}
	opts, ok := gotBody["options"].(map[string]any)
	if !ok {
		t.Fatalf("Missing options: %+v", gotBody)
	}
	if opts["temperature"] != 0.3 || opts["num_predict"] != float64(2048) {
		t.Errorf("Options mismatch: %+v", opts)
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	c := testClient("http://localhost:1")
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m"}); err == nil {
		t.Error("Expected error for empty prompt")
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(server.URL)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"}); err == nil {
		t.Error("Expected error on 500")
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	vec, err := c.Embed(context.Background(), "nomic-embed-text", "some fact")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("Unexpected vector: %v", vec)
	}
}

func TestEmbedEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
	}))
	defer server.Close()

	c := testClient(server.URL)
	if _, err := c.Embed(context.Background(), "m", "text"); err == nil {
		t.Error("Expected error for empty embedding")
	}
}

func TestAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"version": "0.5.0"})
	}))
	defer server.Close()

	if !testClient(server.URL).Available(context.Background()) {
		t.Error("Expected server to be available")
	}
	if testClient("http://localhost:1").Available(context.Background()) {
		t.Error("Expected unreachable server to be unavailable")
	}
}

func TestModelAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "mistral:7b"},
				{"name": "nomic-embed-text:latest"},
			},
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	ctx := context.Background()

	cases := []struct {
		model string
		want  bool
	}{
		{"mistral:7b", true},
		{"mistral", true},
		{"nomic-embed-text", true},
		{"llama3", false},
	}
	for _, tc := range cases {
		if got := c.ModelAvailable(ctx, tc.model); got != tc.want {
			t.Errorf("ModelAvailable(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestDecodeJSONFencedBlock(t *testing.T) {
	text := "Here is the analysis:\n```json\n{\"relationship\": \"inconsistent\", \"confidence\": 0.9}\n```\nHope that helps."

	var out struct {
		Relationship string  `json:"relationship"`
		Confidence   float64 `json:"confidence"`
	}
	if err := DecodeJSON(text, &out); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if out.Relationship != "inconsistent" || out.Confidence != 0.9 {
		t.Errorf("Unexpected result: %+v", out)
	}
}

func TestDecodeJSONSurroundingProse(t *testing.T) {
	text := `The statements conflict. {"relationship": "unrelated"} is my verdict.`

	var out struct {
		Relationship string `json:"relationship"`
	}
	if err := DecodeJSON(text, &out); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if out.Relationship != "unrelated" {
		t.Errorf("Unexpected result: %+v", out)
	}
}

func TestDecodeJSONBareObject(t *testing.T) {
	var out map[string]any
	if err := DecodeJSON(`{"statements": []}`, &out); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if _, ok := out["statements"]; !ok {
		t.Errorf("Missing key: %+v", out)
	}
}

func TestDecodeJSONGarbage(t *testing.T) {
	var out map[string]any
	if err := DecodeJSON("I cannot answer that.", &out); err == nil {
		t.Error("Expected error for response with no JSON object")
	}
	if err := DecodeJSON("{not valid json}", &out); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
