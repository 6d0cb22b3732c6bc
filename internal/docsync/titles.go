package docsync

import "github.com/dt-pm-tools/atlsync/internal/model"

// Logical roles of the documents in a sync run.
const (
	RoleOverview    = "overview"
	rolePrefixEpic  = "epic:"
	rolePrefixStory = "story:"
)

// EpicRole returns the plan role of an epic page.
func EpicRole(key string) string { return rolePrefixEpic + key }

// StoryRole returns the plan role of a story page.
func StoryRole(key string) string { return rolePrefixStory + key }

// OverviewTitle is the title of a project's overview page.
func OverviewTitle(project string) string {
	return project + " - Project Overview"
}

// EpicTitle is the title of an epic's page, e.g. "Epic: DIN-58 - Phase 1".
func EpicTitle(epic model.Issue) string {
	return "Epic: " + epic.Key + " - " + epic.Summary
}

// StoryTitle is the title of a story's page.
func StoryTitle(story model.Issue) string {
	return "Story: " + story.Key + " - " + story.Summary
}
