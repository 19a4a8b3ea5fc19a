package models

import (
	"strings"

	dErrors "attest/pkg/domain-errors"
)

// Kind is the credential category of a template.
type Kind string

const (
	KindBadge            Kind = "badge"
	KindCourseBadge      Kind = "course_badge"
	KindCertificate      Kind = "certificate"
	KindPathCertificate  Kind = "path_certificate"
	KindEndorsement      Kind = "endorsement"
	KindSkillEndorsement Kind = "skill_endorsement"
	KindAchievement      Kind = "achievement"
	KindDiploma          Kind = "diploma"
)

var validKinds = map[Kind]struct{}{
	KindBadge:            {},
	KindCourseBadge:      {},
	KindCertificate:      {},
	KindPathCertificate:  {},
	KindEndorsement:      {},
	KindSkillEndorsement: {},
	KindAchievement:      {},
	KindDiploma:          {},
}

// ParseKind validates a kind string.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(value)))
	if _, ok := validKinds[k]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported credential kind")
	}
	return k, nil
}

// Status is the lifecycle state of an issued credential.
type Status string

const (
	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

var transitions = map[Status][]Status{
	StatusActive:    {StatusRevoked, StatusSuspended, StatusExpired},
	StatusSuspended: {StatusRevoked},
	StatusExpired:   {StatusRevoked},
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) String() string { return string(s) }

// Reason is the verification outcome code.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNotFound     Reason = "not_found"
	ReasonRevoked      Reason = "revoked"
	ReasonSuspended    Reason = "suspended"
	ReasonExpired      Reason = "expired"
	ReasonBadSignature Reason = "bad_signature"
)

var reasonMessages = map[Reason]string{
	ReasonNone:         "Credential is valid",
	ReasonNotFound:     "Credential not found",
	ReasonRevoked:      "Credential has been revoked",
	ReasonSuspended:    "Credential is suspended",
	ReasonExpired:      "Credential has expired",
	ReasonBadSignature: "Credential signature is invalid",
}

// Message is the human-readable text for the outcome.
func (r Reason) Message() string {
	return reasonMessages[r]
}
