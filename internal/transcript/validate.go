package transcript

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"videothingy/council-highlights/internal/apperrors"
	"videothingy/council-highlights/models"
)

var validate = validator.New()

// Validate checks the structural rules of a transcript: ids present and every
// utterance ending after it starts.
func Validate(t *models.Transcript) error {
	if t == nil {
		return fmt.Errorf("transcript is nil: %w", apperrors.ErrValidation)
	}
	if err := validate.Struct(t); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("transcript: %v: %w", err, apperrors.ErrValidation)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("transcript: %s: %w", strings.Join(msgs, ", "), apperrors.ErrValidation)
	}
	return nil
}
