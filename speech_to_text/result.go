package speech_to_text

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoText = errors.New("result has no text field")

type Transcript struct {
	Text string `json:"text"`
}

// ParseResult decodes a recognizer result. A result without a "text" field
// returns ErrNoText.
func ParseResult(raw string) (Transcript, error) {
	var result struct {
		Text *string `json:"text"`
	}

	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Transcript{}, fmt.Errorf("decode result: %w", err)
	}

	if result.Text == nil {
		return Transcript{}, ErrNoText
	}

	return Transcript{Text: strings.TrimSpace(*result.Text)}, nil
}

func encodeResult(text string) (string, error) {
	raw, err := json.Marshal(Transcript{Text: text})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
