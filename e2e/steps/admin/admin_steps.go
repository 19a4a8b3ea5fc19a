package admin

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"attest/e2e/steps"
)

func Register(sc *godog.ScenarioContext, s steps.Session) {
	a := admin{s}

	sc.Step(`^the audit trail of "([^"]*)" should include "([^"]*)"$`, a.trailIncludes)
	sc.Step(`^I list the credentials held by "([^"]*)"$`, a.holdings)
	sc.Step(`^the holdings should number (\d+)$`, a.holdingsNumber)
}

type admin struct {
	s steps.Session
}

func (a admin) trailIncludes(ctx context.Context, name, action string) error {
	credentialID, err := a.s.Recall("credential:" + name)
	if err != nil {
		return err
	}
	return steps.Eventually(ctx, a.s,
		func() error { return a.s.Get("/admin/credentials/" + credentialID + "/audit") },
		func() bool { return a.hasAction(action) },
		fmt.Sprintf("audit trail of %s without %s", name, action))
}

func (a admin) hasAction(action string) bool {
	events, err := a.s.Field("events")
	if err != nil {
		return false
	}
	list, _ := events.([]any)
	for _, e := range list {
		if m, ok := e.(map[string]any); ok && m["action"] == action {
			return true
		}
	}
	return false
}

func (a admin) holdings(recipient string) error {
	userID, err := a.s.Recall("recipient:" + recipient)
	if err != nil {
		return err
	}
	return a.s.Get("/admin/users/" + userID + "/credentials")
}

func (a admin) holdingsNumber(n int) error {
	total, err := a.s.Field("total")
	if err != nil {
		return err
	}
	if got, ok := total.(float64); !ok || int(got) != n {
		return fmt.Errorf("holdings total %v, want %d", total, n)
	}
	return nil
}
