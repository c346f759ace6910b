package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassphrase reads a passphrase from the controlling terminal
// without echoing it, mirroring the teacher's --password-prompt flag
// (cmd/psqldef/psqldef.go) generalized from a database password to the
// snapshot encryption passphrase.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}
