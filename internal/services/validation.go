package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
)

const MaxNameLength = 255

var folderNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _.\-]+$`)

// ValidateFolderName applies the folder naming policy to an already trimmed name.
func ValidateFolderName(name string) error {
	if err := ValidateItemName(name); err != nil {
		return err
	}
	if !folderNamePattern.MatchString(name) {
		return apperr.FieldValidation("name", "name may only contain letters, digits, spaces, '_', '.' and '-'")
	}
	return nil
}

// ValidateItemName only enforces presence and length. File names keep whatever
// characters the uploader used.
func ValidateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.FieldValidation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperr.FieldValidation("name", "name must be at most 255 characters")
	}
	return nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
