package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"igpicker/pkg/apify"
	"igpicker/pkg/picker"
)

// readUsernames collects usernames from a file ("-" is stdin), or from the
// arguments, where a lone "-" also means stdin.
func readUsernames(args []string, file string, stdin io.Reader) ([]string, error) {
	var text string
	switch {
	case file == "-" || (file == "" && len(args) == 1 && args[0] == "-"):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read usernames from stdin: %w", err)
		}
		text = string(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read usernames file: %w", err)
		}
		text = string(data)
		if len(args) > 0 {
			text += "\n" + strings.Join(args, "\n")
		}
	default:
		text = strings.Join(args, "\n")
	}

	usernames := apify.ParseUsernames(text)
	if len(usernames) == 0 {
		return nil, picker.ErrNoUsernames
	}
	return usernames, nil
}

// tokenSource is satisfied by *auth.Manager
type tokenSource interface {
	Token() string
}

// resolveToken picks the provider token: the configured one (flag, env or
// file, already merged), then the stored default credential, then prompt.
func resolveToken(configured string, stored tokenSource, prompt func() (string, error)) (string, error) {
	if t := strings.TrimSpace(configured); t != "" {
		return t, nil
	}
	if stored != nil {
		if t := stored.Token(); t != "" {
			return t, nil
		}
	}
	if prompt != nil {
		t, err := prompt()
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		if t = strings.TrimSpace(t); t != "" {
			return t, nil
		}
	}
	return "", picker.ErrMissingToken
}

// promptToken asks for the token with echo off; nil when stdin is not a terminal
func promptToken() func() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func() (string, error) {
		fmt.Print("Apify API token: ")
		return readPassword()
	}
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// confirm asks a yes/no question, defaulting to no
func confirm(question string) bool {
	fmt.Printf("%s (y/N): ", question)
	input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}
