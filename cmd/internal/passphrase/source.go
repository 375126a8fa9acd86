package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Read resolves the operator keystore passphrase. The environment variable
// wins when set; otherwise the operator is prompted on the terminal. With
// confirm set the passphrase is requested twice and must match, which key
// generation uses so a typo cannot lock a fresh keystore.
func Read(envVar string, confirm bool) (string, error) {
	envVar = strings.TrimSpace(envVar)
	if envVar != "" {
		if value, ok := os.LookupEnv(envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", envVar)
			}
			return value, nil
		}
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if envVar != "" {
			return "", fmt.Errorf("operator keystore passphrase required; set %s or run interactively", envVar)
		}
		return "", errors.New("operator keystore passphrase required and no terminal available")
	}

	first, err := prompt("Operator keystore passphrase: ", fd)
	if err != nil {
		return "", err
	}
	if confirm {
		second, err := prompt("Repeat passphrase: ", fd)
		if err != nil {
			return "", err
		}
		if first != second {
			return "", errors.New("passphrases do not match")
		}
	}
	return first, nil
}

func prompt(label string, fd int) (string, error) {
	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	return string(raw), nil
}
