package stack

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"attest/e2e/steps"
)

// Seeded by seed/acme.yaml.
var seededStacks = map[string]string{
	"python-expert-path": "cccc0000-0000-0000-0000-000000000001",
}

func Register(sc *godog.ScenarioContext, s steps.Session) {
	st := stack{s}

	sc.Step(`^I request the progress of "([^"]*)" on "([^"]*)"$`, st.progress)
	sc.Step(`^I request the recommended stacks for "([^"]*)"$`, st.recommended)
	sc.Step(`^"([^"]*)" should complete "([^"]*)"$`, st.completes)
}

type stack struct {
	s steps.Session
}

func (st stack) userPath(recipient string) (string, error) {
	userID, err := st.s.Recall("recipient:" + recipient)
	if err != nil {
		return "", err
	}
	return "/users/" + userID + "/stacks/", nil
}

func (st stack) progressPath(recipient, name string) (string, error) {
	stackID, ok := seededStacks[name]
	if !ok {
		return "", fmt.Errorf("stack %q is not seeded", name)
	}
	base, err := st.userPath(recipient)
	if err != nil {
		return "", err
	}
	return base + stackID + "/progress", nil
}

func (st stack) progress(recipient, name string) error {
	path, err := st.progressPath(recipient, name)
	if err != nil {
		return err
	}
	return st.s.Get(path)
}

func (st stack) recommended(recipient string) error {
	base, err := st.userPath(recipient)
	if err != nil {
		return err
	}
	return st.s.Get(base + "recommended")
}

func (st stack) completes(ctx context.Context, recipient, name string) error {
	path, err := st.progressPath(recipient, name)
	if err != nil {
		return err
	}
	return steps.Eventually(ctx, st.s,
		func() error { return st.s.Get(path) },
		func() bool {
			status, err := st.s.Field("progress.status")
			return err == nil && status == "completed"
		},
		fmt.Sprintf("%s completing %s", recipient, name))
}
