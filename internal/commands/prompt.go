package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// Prompter asks the user before destructive commands.
type Prompter interface {
	// Confirm returns false when the user declines.
	Confirm(label string) (bool, error)
	// Phrase returns whatever the user typed.
	Phrase(label string) (string, error)
}

type promptUI struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (p *promptUI) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("prompt: %w", err)
	}
	return true, nil
}

func (p *promptUI) Phrase(label string) (string, error) {
	templates := &promptui.PromptTemplates{
		Prompt:  "{{ . }} : ",
		Valid:   "{{ . | green }} : ",
		Invalid: "{{ . | red }} : ",
		Success: "{{ . | bold }} : ",
	}
	prompt := promptui.Prompt{
		Label:     label,
		Templates: templates,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	res, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", nil
		}
		return "", fmt.Errorf("prompt: %w", err)
	}
	return strings.TrimSpace(res), nil
}
