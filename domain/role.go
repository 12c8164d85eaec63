// Package domain contains core concepts of the group chat protocol.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/samber/lo"

// Role describes one participant of the conversation.
// The role name doubles as its bus topic.
type Role struct {
	Name          string
	Description   string
	SystemMessage string
}

func RoleNames(roles []Role) []string {
	return lo.Map(roles, func(r Role, _ int) string { return r.Name })
}

// Eligible removes the previous speaker from the candidate list so a role
// never speaks twice in a row. With a single role the exclusion is dropped,
// otherwise the conversation would deadlock.
func Eligible(roles []Role, previousSpeaker string) []Role {
	if len(roles) <= 1 {
		return roles
	}
	return lo.Filter(roles, func(r Role, _ int) bool { return r.Name != previousSpeaker })
}
