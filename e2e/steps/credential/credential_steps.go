package credential

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"attest/e2e/steps"
)

// Seeded by seed/acme.yaml.
var seededTemplates = map[string]string{
	"python-fundamentals": "bbbb0000-0000-0000-0000-000000000001",
	"data-science":        "bbbb0000-0000-0000-0000-000000000002",
	"web-dev":             "bbbb0000-0000-0000-0000-000000000003",
	"python-expert":       "bbbb0000-0000-0000-0000-000000000004",
}

func Register(sc *godog.ScenarioContext, s steps.Session) {
	c := credential{s}

	sc.Step(`^a recipient "([^"]*)" is enrolled$`, c.enroll)
	sc.Step(`^I issue "([^"]*)" to "([^"]*)"$`, c.issue)
	sc.Step(`^I issue "([^"]*)" to "([^"]*)" with score (\d+(?:\.\d+)?)$`, c.issueScored)
	sc.Step(`^I save the credential as "([^"]*)"$`, c.save)
	sc.Step(`^I verify "([^"]*)"$`, c.verify)
	sc.Step(`^I verify an unknown credential$`, c.verifyUnknown)
	sc.Step(`^I revoke "([^"]*)" with reason "([^"]*)"$`, c.revoke)
	sc.Step(`^I suspend "([^"]*)"$`, c.suspend)
	sc.Step(`^I list the revocations of "([^"]*)"$`, c.revocations)
}

type credential struct {
	s steps.Session
}

// enroll uses a fresh email per run so scenarios can share a long-lived
// server.
func (c credential) enroll(name string) error {
	email := fmt.Sprintf("%s+%s@example.com", strings.ToLower(name), uuid.NewString()[:8])
	if err := c.s.Post("/admin/recipients", map[string]any{"email": email, "name": name}); err != nil {
		return err
	}
	if c.s.Status() != http.StatusCreated {
		return fmt.Errorf("enroll %s: status %d: %s", name, c.s.Status(), c.s.Body())
	}
	return c.rememberField("id", "recipient:"+name)
}

func (c credential) rememberField(field, key string) error {
	v, err := c.s.Field(field)
	if err != nil {
		return err
	}
	c.s.Remember(key, fmt.Sprint(v))
	return nil
}

func (c credential) issue(template, recipient string) error {
	return c.post(template, recipient, nil)
}

func (c credential) issueScored(template, recipient string, score float64) error {
	return c.post(template, recipient, &score)
}

func (c credential) post(template, recipient string, score *float64) error {
	templateID, ok := seededTemplates[template]
	if !ok {
		return fmt.Errorf("template %q is not seeded", template)
	}
	recipientID, err := c.s.Recall("recipient:" + recipient)
	if err != nil {
		return err
	}
	body := map[string]any{
		"template_id":  templateID,
		"recipient_id": recipientID,
		"evidence":     []map[string]any{{"type": "course_completion", "course": template}},
	}
	if score != nil {
		body["score"] = *score
	}
	return c.s.Post("/credentials", body)
}

func (c credential) save(name string) error {
	return c.rememberField("id", "credential:"+name)
}

func (c credential) path(name, suffix string) (string, error) {
	credentialID, err := c.s.Recall("credential:" + name)
	if err != nil {
		return "", err
	}
	return "/credentials/" + credentialID + suffix, nil
}

func (c credential) verify(name string) error {
	credentialID, err := c.s.Recall("credential:" + name)
	if err != nil {
		return err
	}
	return c.s.Get("/verify/" + credentialID)
}

func (c credential) verifyUnknown() error {
	return c.s.Get("/verify/" + uuid.NewString())
}

func (c credential) revoke(name, reason string) error {
	path, err := c.path(name, "/revoke")
	if err != nil {
		return err
	}
	return c.s.Post(path, map[string]any{"reason": reason, "notes": "revoked by e2e scenario"})
}

func (c credential) suspend(name string) error {
	path, err := c.path(name, "/suspend")
	if err != nil {
		return err
	}
	return c.s.Post(path, map[string]any{"reason": "under review"})
}

func (c credential) revocations(name string) error {
	path, err := c.path(name, "/revocations")
	if err != nil {
		return err
	}
	return c.s.Get(path)
}
