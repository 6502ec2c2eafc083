package models

// ProcessStep is one ordered step of a sequential process.
type ProcessStep struct {
	ID            int64  `json:"id"`
	ProcessID     int64  `json:"processId"`
	StepNumber    int    `json:"stepNumber"`
	Name          string `json:"name"`
	RequiresPhoto bool   `json:"requiresPhoto"`
}

// ProcessDefinition is server-owned reference data describing a unit of work.
// Steps are ordered by StepNumber.
type ProcessDefinition struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Sequential  bool          `json:"sequential"`
	Active      bool          `json:"active"`
	Steps       []ProcessStep `json:"steps"`
}

// HasSteps reports whether starting the process walks through steps.
func (p *ProcessDefinition) HasSteps() bool {
	return p.Sequential && len(p.Steps) > 0
}

// StepIndex returns the position of stepID in the ordered step list, or -1.
func (p *ProcessDefinition) StepIndex(stepID int64) int {
	for i, s := range p.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}
