package cli

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
	MultiSelect(message string, options []string) ([]int, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// MultiSelect returns the chosen option indices, every option preselected.
func (p *SurveyPrompter) MultiSelect(message string, options []string) ([]int, error) {
	var picked []int
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		Default:  options,
		PageSize: 10,
	}
	if err := survey.AskOne(prompt, &picked, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, err
	}
	return picked, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
