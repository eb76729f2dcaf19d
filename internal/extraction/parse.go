package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// tollScanPrompt is the shared prompt used by all vision providers.
const tollScanPrompt = `Analyze this image of a toll report.
Identify all toll amounts found on the page.
Group the tolls by their amount.

Return ONLY a JSON response with this structure:
{
    "tolls": [
        {"amount": 5.50, "quantity": 2},
        {"amount": 3.00, "quantity": 5}
    ]
}
Do not include markdown formatting, just the raw JSON string.
If no tolls are found, return {"tolls": []}.`

type tollResponse struct {
	Tolls []Toll `json:"tolls"`
}

// parseTollJSON parses a provider's JSON response. Markdown code fences are
// tolerated even though the prompt forbids them.
func parseTollJSON(text string) ([]Toll, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Extract just the JSON object in case the model added prose around it.
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var response tollResponse
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if response.Tolls == nil {
		return []Toll{}, nil
	}
	return response.Tolls, nil
}
