package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildSuggestPrompt fills the embedded prompt with the available labels.
func buildSuggestPrompt(availableLabels []string) string {
	labelsJSON, _ := json.Marshal(availableLabels)
	return fmt.Sprintf(suggestLabelsPrompt, string(labelsJSON))
}

// buildSuggestMessage builds the user message with catalog context.
// This is shared across all AI providers.
func buildSuggestMessage(item *ItemContext) string {
	parts := []string{"Suggest labels for this photo."}
	if item == nil {
		return parts[0]
	}

	if item.Name != "" {
		parts = append(parts, "Filename: "+item.Name)
	}
	if item.TakenAt != "" && item.TakenAt != "Unknown" {
		parts = append(parts, "Taken at: "+item.TakenAt)
	}
	if item.Camera != "" && item.Camera != "Unknown" {
		parts = append(parts, "Camera: "+item.Camera)
	}
	if item.GroupName != "" && item.GroupName != "Unknown" {
		parts = append(parts, "Date bucket: "+item.GroupName)
	}
	return strings.Join(parts, "\n")
}
