package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Helper functions for creating test images

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// --- resizeImage tests ---

func TestResizeImage_NoResizeNeeded(t *testing.T) {
	img := createTestImage(100, 100, color.White)
	data := encodeJPEG(img)

	resized, err := resizeImage(data, 200)
	if err != nil {
		t.Fatalf("resizeImage failed: %v", err)
	}

	_, format, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}

	if format != "jpeg" {
		t.Errorf("expected jpeg format, got %s", format)
	}
}

func TestResizeImage_NeedsResize_Landscape(t *testing.T) {
	img := createTestImage(2000, 1000, color.White)
	data := encodeJPEG(img)

	resized, err := resizeImage(data, 500)
	if err != nil {
		t.Fatalf("resizeImage failed: %v", err)
	}

	decodedImg, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}

	bounds := decodedImg.Bounds()

	// Width should be maxSize
	if bounds.Dx() != 500 {
		t.Errorf("expected width 500, got %d", bounds.Dx())
	}

	// Height should maintain aspect ratio (2000/1000 = 2:1)
	if bounds.Dy() != 250 {
		t.Errorf("expected height 250, got %d", bounds.Dy())
	}
}

func TestResizeImage_NeedsResize_Portrait(t *testing.T) {
	img := createTestImage(1000, 2000, color.White)
	data := encodeJPEG(img)

	resized, err := resizeImage(data, 500)
	if err != nil {
		t.Fatalf("resizeImage failed: %v", err)
	}

	decodedImg, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}

	bounds := decodedImg.Bounds()

	if bounds.Dy() != 500 {
		t.Errorf("expected height 500, got %d", bounds.Dy())
	}

	if bounds.Dx() != 250 {
		t.Errorf("expected width 250, got %d", bounds.Dx())
	}
}

func TestResizeImage_PNGInput(t *testing.T) {
	img := createTestImage(100, 100, color.White)
	data := encodePNG(img)

	resized, err := resizeImage(data, 200)
	if err != nil {
		t.Fatalf("resizeImage failed for PNG: %v", err)
	}

	// Should convert to JPEG
	_, format, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}

	if format != "jpeg" {
		t.Errorf("expected jpeg output format, got %s", format)
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	_, err := resizeImage([]byte("not an image"), 500)
	if err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestResizeImage_EmptyData(t *testing.T) {
	_, err := resizeImage([]byte{}, 500)
	if err == nil {
		t.Error("expected error for empty data")
	}
}

// --- Suggestion tests ---

func TestSuggestionBest(t *testing.T) {
	tests := []struct {
		name     string
		labels   []LabelWithConfidence
		cutoff   float64
		expected string
		found    bool
	}{
		{
			name: "picks highest above cutoff",
			labels: []LabelWithConfidence{
				{Name: "Family", Confidence: 0.85},
				{Name: "Travel", Confidence: 0.92},
			},
			cutoff:   0.8,
			expected: "Travel",
			found:    true,
		},
		{
			name: "nothing above cutoff",
			labels: []LabelWithConfidence{
				{Name: "Family", Confidence: 0.5},
			},
			cutoff: 0.8,
			found:  false,
		},
		{
			name:   "no labels",
			cutoff: 0.8,
			found:  false,
		},
		{
			name: "exactly at cutoff counts",
			labels: []LabelWithConfidence{
				{Name: "Pets", Confidence: 0.8},
			},
			cutoff:   0.8,
			expected: "Pets",
			found:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Suggestion{Labels: tt.labels}
			got, found := s.Best(tt.cutoff)
			if found != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, found)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSuggestionParsesProviderJSON(t *testing.T) {
	// The response contract both providers rely on.
	content := `{"labels": [{"name": "Family", "confidence": 0.91}], "description": "Two people at a table."}`

	var s Suggestion
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	if len(s.Labels) != 1 || s.Labels[0].Name != "Family" {
		t.Errorf("expected Family label, got %+v", s.Labels)
	}
	if s.Labels[0].Confidence != 0.91 {
		t.Errorf("expected confidence 0.91, got %v", s.Labels[0].Confidence)
	}
	if s.Description == "" {
		t.Error("expected description")
	}
}

// --- Ollama provider tests ---

func TestOllamaSuggestLabels(t *testing.T) {
	image := encodeJPEG(createTestImage(50, 50, color.White))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		if len(req.Messages) != 2 || len(req.Messages[1].Images) != 1 {
			t.Errorf("expected system + user-with-image messages, got %+v", req.Messages)
		}

		resp := ollamaResponse{Done: true, PromptEvalCount: 120, EvalCount: 40}
		resp.Message.Role = "assistant"
		resp.Message.Content = `{"labels": [{"name": "Pets", "confidence": 0.9}], "description": "A dog."}`
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "test-model")
	suggestion, err := p.SuggestLabels(context.Background(), image, nil, []string{"Pets", "Family"})
	if err != nil {
		t.Fatalf("SuggestLabels failed: %v", err)
	}

	if len(suggestion.Labels) != 1 || suggestion.Labels[0].Name != "Pets" {
		t.Errorf("unexpected labels: %+v", suggestion.Labels)
	}

	usage := p.GetUsage()
	if usage.InputTokens != 120 || usage.OutputTokens != 40 {
		t.Errorf("expected usage 120/40, got %+v", usage)
	}
}

func TestOllamaSuggestLabelsRetriesBadJSON(t *testing.T) {
	image := encodeJPEG(createTestImage(50, 50, color.White))

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := ollamaResponse{Done: true}
		if calls == 1 {
			resp.Message.Content = `{"labels": [`
		} else {
			resp.Message.Content = `{"labels": [{"name": "Family", "confidence": 0.85}], "description": "ok"}`
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "test-model")
	suggestion, err := p.SuggestLabels(context.Background(), image, nil, []string{"Family"})
	if err != nil {
		t.Fatalf("SuggestLabels failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a retry after bad JSON, got %d calls", calls)
	}
	if len(suggestion.Labels) != 1 {
		t.Errorf("unexpected labels: %+v", suggestion.Labels)
	}
}

func TestOllamaSuggestLabelsServerError(t *testing.T) {
	image := encodeJPEG(createTestImage(50, 50, color.White))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "test-model")
	_, err := p.SuggestLabels(context.Background(), image, nil, []string{"Family"})
	if err == nil {
		t.Fatal("expected error for server failure")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected status in error, got: %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare JSON",
			input:    `{"labels": []}`,
			expected: `{"labels": []}`,
		},
		{
			name:     "JSON wrapped in prose",
			input:    "Here is the result:\n{\"labels\": []}\nHope that helps!",
			expected: `{"labels": []}`,
		},
		{
			name:     "nested objects",
			input:    `x {"a": {"b": 1}} y`,
			expected: `{"a": {"b": 1}}`,
		},
		{
			name:     "no JSON at all",
			input:    "no json here",
			expected: "no json here",
		},
		{
			name:     "unterminated object",
			input:    `text {"a": 1`,
			expected: `{"a": 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// --- Prompt builder tests ---

func TestBuildSuggestPrompt(t *testing.T) {
	prompt := buildSuggestPrompt([]string{"Family", "Travel"})

	if !strings.Contains(prompt, `["Family","Travel"]`) {
		t.Errorf("expected labels JSON in prompt, got: %s", prompt)
	}
	if strings.Contains(prompt, "%s") {
		t.Error("expected placeholder to be filled")
	}
}

func TestBuildSuggestMessage(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		msg := buildSuggestMessage(nil)
		if msg != "Suggest labels for this photo." {
			t.Errorf("unexpected message: %q", msg)
		}
	})

	t.Run("full context", func(t *testing.T) {
		msg := buildSuggestMessage(&ItemContext{
			Name:      "IMG_0001.jpg",
			TakenAt:   "2019:03:15 14:30:00",
			Camera:    "Canon EOS R5",
			GroupName: "2019-03-15",
		})
		for _, want := range []string{"IMG_0001.jpg", "2019:03:15 14:30:00", "Canon EOS R5", "2019-03-15"} {
			if !strings.Contains(msg, want) {
				t.Errorf("expected %q in message: %q", want, msg)
			}
		}
	})

	t.Run("unknown fields dropped", func(t *testing.T) {
		msg := buildSuggestMessage(&ItemContext{Name: "a.jpg", TakenAt: "Unknown", Camera: "Unknown"})
		if strings.Contains(msg, "Unknown") {
			t.Errorf("expected unknown metadata to be dropped: %q", msg)
		}
	})
}
