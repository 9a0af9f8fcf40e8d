package telegram

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoToken = errors.New("telegram token is empty")

// ReadToken loads the bot token from path. A missing or empty file is an
// error; the caller runs without the bot in that case.
func ReadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read telegram token: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoToken)
	}
	return token, nil
}
