package chat

import (
	"maps"
	"slices"
)

// SidePanelTab selects the content of the chat side panel.
type SidePanelTab string

const (
	TabFiles    SidePanelTab = "files"
	TabWorkflow SidePanelTab = "workflow"
)

// State is a point-in-time copy of everything the chat views render.
// Mutating a State has no effect on the Store it came from.
type State struct {
	SessionID         string
	Messages          []Message
	UserInput         string
	IsResponding      bool
	IsCancelling      bool
	CurrentTaskID     string
	SelectedAgentName string
	Notifications     []Notification

	Agents        []Agent
	AgentsLoading bool
	AgentsError   error

	Sessions        []SessionInfo
	SessionsLoading bool

	Artifacts        []ArtifactInfo
	ArtifactsLoading bool

	TaskIDInSidePanel    string
	IsSidePanelCollapsed bool
	ActiveSidePanelTab   SidePanelTab

	IsDeleteModalOpen         bool
	ArtifactToDelete          *ArtifactInfo
	IsArtifactEditMode        bool
	SelectedArtifactFilenames map[string]struct{}
	IsBatchDeleteModalOpen    bool

	// Preview holds the artifact open in the preview pane together with its
	// available versions, the version shown and its content.
	Preview *Preview
}

func (s *State) clone() State {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.Notifications = slices.Clone(s.Notifications)
	c.Agents = slices.Clone(s.Agents)
	c.Sessions = slices.Clone(s.Sessions)
	c.Artifacts = slices.Clone(s.Artifacts)
	c.SelectedArtifactFilenames = maps.Clone(s.SelectedArtifactFilenames)
	if s.ArtifactToDelete != nil {
		a := *s.ArtifactToDelete
		c.ArtifactToDelete = &a
	}
	c.Preview = s.Preview.clone()
	return c
}

// LoadingMessage is the text of the first status bubble in the log.
func (s State) LoadingMessage() string {
	return LoadingText(s.Messages)
}

func (s State) IsArtifactSelected(filename string) bool {
	_, ok := s.SelectedArtifactFilenames[filename]
	return ok
}

// SelectedArtifacts returns the selected filenames in sorted order.
func (s State) SelectedArtifacts() []string {
	return slices.Sorted(maps.Keys(s.SelectedArtifactFilenames))
}

// Artifact looks up an artifact in the current listing.
func (s State) Artifact(filename string) (ArtifactInfo, bool) {
	i := slices.IndexFunc(s.Artifacts, func(a ArtifactInfo) bool { return a.Filename == filename })
	if i < 0 {
		return ArtifactInfo{}, false
	}
	return s.Artifacts[i], true
}

// SelectedAgent returns the descriptor of the selected agent, if loaded.
func (s State) SelectedAgent() (Agent, bool) {
	i := slices.IndexFunc(s.Agents, func(a Agent) bool { return a.Name == s.SelectedAgentName })
	if i < 0 {
		return Agent{}, false
	}
	return s.Agents[i], true
}
