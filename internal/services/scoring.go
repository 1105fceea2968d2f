package services

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
)

// scoreAnswer dispatches on the question type tag and compares the submitted
// answer against the item's scoring key.
func scoreAnswer(item *models.Item, answer string) (bool, error) {
	switch item.Type {
	case models.MultipleChoice:
		return scoreMultipleChoice(item, answer), nil
	case models.TrueFalse:
		return scoreTrueFalse(item, answer)
	default:
		return false, fmt.Errorf("cannot score question type %q: %w", item.Type, ErrValidationFailed)
	}
}

func scoreMultipleChoice(item *models.Item, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(item.CorrectAnswer))
}

func scoreTrueFalse(item *models.Item, answer string) (bool, error) {
	given, err := parseBoolAnswer(answer)
	if err != nil {
		return false, err
	}
	expected, err := parseBoolAnswer(item.CorrectAnswer)
	if err != nil {
		return false, err
	}
	return given == expected, nil
}

func parseBoolAnswer(answer string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "true", "t", "yes", "1":
		return true, nil
	case "false", "f", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("answer %q is not a true/false value: %w", answer, ErrValidationFailed)
	}
}
