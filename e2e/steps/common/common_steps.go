package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"attest/e2e/steps"
)

const (
	scopeIssue  = "credentials:issue"
	scopeRevoke = "credentials:revoke"
)

// Register binds the steps every feature uses: server reachability, who the
// caller is, and generic response assertions.
func Register(sc *godog.ScenarioContext, s steps.Session) {
	c := common{s}

	sc.Step(`^attest is running$`, c.running)
	sc.Step(`^I am an authenticated operator$`, c.operator)
	sc.Step(`^I hold a read-only token$`, c.readOnly)
	sc.Step(`^I am not authenticated$`, c.anonymous)

	sc.Step(`^the response status should be (\d+)$`, c.statusIs)
	sc.Step(`^the response should contain "([^"]*)"$`, c.bodyContains)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, c.fieldEquals)
}

type common struct {
	s steps.Session
}

func (c common) running() error {
	if err := c.s.Get("/health"); err != nil {
		return err
	}
	return c.statusIs(http.StatusOK)
}

func (c common) operator(ctx context.Context) error {
	return c.s.SignIn(ctx, scopeIssue, scopeRevoke)
}

func (c common) readOnly(ctx context.Context) error {
	return c.s.SignIn(ctx)
}

func (c common) anonymous() error {
	c.s.SignOut()
	return nil
}

func (c common) statusIs(want int) error {
	if got := c.s.Status(); got != want {
		return fmt.Errorf("status %d, want %d: %s", got, want, c.s.Body())
	}
	return nil
}

func (c common) bodyContains(text string) error {
	if !strings.Contains(string(c.s.Body()), text) {
		return fmt.Errorf("body lacks %q: %s", text, c.s.Body())
	}
	return nil
}

func (c common) fieldEquals(path, want string) error {
	got, err := c.s.Field(path)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("%s is %v, want %s", path, got, want)
	}
	return nil
}
