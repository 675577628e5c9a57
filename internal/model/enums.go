package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidEnum is returned when a tag does not belong to its closed set.
var ErrInvalidEnum = eris.New("model: unrecognized value")

// Status is the lifecycle state of a chase task.
type Status string

const (
	StatusNotStarted   Status = "not_started"
	StatusReminderSent Status = "reminder_sent"
	StatusEscalated    Status = "escalated"
	StatusCompleted    Status = "completed"
)

// statusRank orders statuses along the lifecycle. Transitions never move
// a task to a lower rank.
var statusRank = map[Status]int{
	StatusNotStarted:   0,
	StatusReminderSent: 1,
	StatusEscalated:    2,
	StatusCompleted:    3,
}

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNotStarted, StatusReminderSent, StatusEscalated, StatusCompleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the lifecycle position of s, or -1 for an unknown status.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether no further transitions apply.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// ParseStatus normalizes a status tag. Upper-case legacy values such as
// "NOT_STARTED" are accepted and mapped to their canonical form.
func ParseStatus(raw string) (Status, error) {
	s := Status(normalizeTag(raw))
	if !s.Valid() {
		return "", eris.Wrapf(ErrInvalidEnum, "status %q", raw)
	}
	return s, nil
}

// Priority is the urgency of a chase task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParsePriority normalizes a priority tag.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(normalizeTag(raw))
	if !p.Valid() {
		return "", eris.Wrapf(ErrInvalidEnum, "priority %q", raw)
	}
	return p, nil
}

// Channel is how a chase is delivered.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelPhone     Channel = "phone"
	ChannelSMS       Channel = "sms"
	ChannelDashboard Channel = "dashboard"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPhone, ChannelSMS, ChannelDashboard:
		return true
	}
	return false
}

// ParseChannel normalizes a channel tag.
func ParseChannel(raw string) (Channel, error) {
	c := Channel(normalizeTag(raw))
	if !c.Valid() {
		return "", eris.Wrapf(ErrInvalidEnum, "channel %q", raw)
	}
	return c, nil
}

// Target is the party being chased.
type Target string

const (
	TargetClient   Target = "client"
	TargetProvider Target = "provider"
	TargetAdvisor  Target = "advisor"
)

// Valid reports whether t is a known target.
func (t Target) Valid() bool {
	switch t {
	case TargetClient, TargetProvider, TargetAdvisor:
		return true
	}
	return false
}

// ParseTarget normalizes a target tag.
func ParseTarget(raw string) (Target, error) {
	t := Target(normalizeTag(raw))
	if !t.Valid() {
		return "", eris.Wrapf(ErrInvalidEnum, "target %q", raw)
	}
	return t, nil
}

// Stage is the advice pipeline position a task must be resolved for.
type Stage string

const (
	StagePreAdvice          Stage = "pre_advice"
	StageMeetingPackSignoff Stage = "meeting_pack_signoff"
	StageAdvice             Stage = "advice"
	StageSuitabilityFinal   Stage = "suitability_final"
	StagePostAdvice         Stage = "post_advice"
	StageAnnualReview       Stage = "annual_review"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StagePreAdvice, StageMeetingPackSignoff, StageAdvice,
		StageSuitabilityFinal, StagePostAdvice, StageAnnualReview:
		return true
	}
	return false
}

// ParseStage normalizes a stage tag.
func ParseStage(raw string) (Stage, error) {
	s := Stage(normalizeTag(raw))
	if !s.Valid() {
		return "", eris.Wrapf(ErrInvalidEnum, "stage %q", raw)
	}
	return s, nil
}

func normalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
