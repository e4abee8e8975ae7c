package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	errUnterminatedQuote  = errors.New("unterminated quote")
	errUnterminatedEscape = errors.New("unterminated escape sequence")
)

// splitCommand turns a tools.* value such as `nice -n 10 ~/bin/ffmpeg` into
// argv using shell-like quoting. A leading "~/" in any word expands to the
// home directory. Blank or "#"-commented values yield nil.
func splitCommand(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return nil, nil
	}

	var (
		words   []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range raw {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, expandHome(word.String()))
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return nil, errUnterminatedEscape
	case quote != 0:
		return nil, errUnterminatedQuote
	}
	if inWord {
		words = append(words, expandHome(word.String()))
	}
	return words, nil
}

func expandHome(word string) string {
	if !strings.HasPrefix(word, "~/") {
		return word
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return word
	}
	return filepath.Join(home, word[2:])
}

func mustSplitCommand(raw string) []string {
	argv, err := splitCommand(raw)
	if err != nil {
		panic(err)
	}
	return argv
}
