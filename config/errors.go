package config

import "github.com/pkg/errors"

func errMissingFile(flag, path string) error {
	return errors.Errorf("config: %s file missing or unreadable: %q", flag, path)
}

func errWorkflowStartPairing() error {
	return errors.New("config: --workflow and a workflow start offset must be given together")
}

func errCutWorkflowMissing() error {
	return errors.New("config: --copy requires --workflow to name the workflow being cut")
}

func errNegativeStart(flag string) error {
	return errors.Errorf("config: --%s must not be negative", flag)
}

func errBadStartParse(flag, value string) error {
	return errors.Errorf("config: could not parse --%s value %q", flag, value)
}
