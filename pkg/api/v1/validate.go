package v1

import (
	"strings"
	"unicode/utf8"
)

// Input limits, counted in characters.
const (
	MaxPingLength        = 1024
	MaxPromptLength      = 2048
	MaxRepositoryLength  = 255
	MaxContextItemLength = 255
)

// ValidatePing checks the ping text.
func ValidatePing(text *string) error {
	if text == nil {
		return Validationf("Please provide a ping field in the request body")
	}
	if utf8.RuneCountInString(*text) > MaxPingLength {
		return Validationf("Text must not exceed %d characters", MaxPingLength)
	}
	return nil
}

// Reverse returns s with its characters in reverse order.
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// ValidatePrompt checks that a prompt was supplied and is not blank.
func ValidatePrompt(prompt *string) error {
	if prompt == nil {
		return Validationf("Please provide a prompt field in the request body")
	}
	if strings.TrimSpace(*prompt) == "" {
		return Validationf("Prompt must not be blank")
	}
	return nil
}

// ValidateChat checks the chat inputs before any network call.
func ValidateChat(prompt string, repository *string, extra []string) error {
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return Validationf("Prompt must not exceed %d characters", MaxPromptLength)
	}
	if repository != nil && utf8.RuneCountInString(*repository) > MaxRepositoryLength {
		return Validationf("Repository must not exceed %d characters", MaxRepositoryLength)
	}
	for _, item := range extra {
		if utf8.RuneCountInString(item) > MaxContextItemLength {
			return Validationf("Context items must not exceed %d characters", MaxContextItemLength)
		}
	}
	return nil
}

// ValidateRepository checks that a repository identifier was supplied.
func ValidateRepository(repository string) error {
	if repository == "" {
		return Validationf("Repository parameter is required")
	}
	return nil
}
