package template

// Graph is the fully dereferenced execution graph for one pipeline:
// pipeline -> ROIs -> tasks -> profiles. It is built when a document is
// loaded and shared read-only by every caller that resolves the pipeline;
// callers must not modify it.
type Graph struct {
	Pipeline string
	ROIs     []*ROI
}

// Tasks returns every task of the graph in execution order: ROIs in declared
// order, tasks within an ROI in declared order.
func (g *Graph) Tasks() []*Task {
	var out []*Task
	for _, roi := range g.ROIs {
		out = append(out, roi.Tasks...)
	}
	return out
}

// ROI is a resolved TargetROIDefinition.
type ROI struct {
	Name  string
	Tasks []*Task
}

// Task is a resolved task setting.
type Task struct {
	Name string
	Kind TaskKind
	// Start and Terminate are the effective stage bounds. An undeclared
	// bound defaults to the first or last stage of the task's family.
	Start     Stage
	Terminate Stage
	// Bindings are the declared section -> profile bindings, in document order.
	Bindings []Binding
	// BarcodeFormats and ExpectedCount are only set on barcode tasks.
	BarcodeFormats []string
	ExpectedCount  int

	stages []StagePlan
}

// Binding ties a stage to the image parameter profile used inside it.
type Binding struct {
	Section Stage
	Profile *Profile
}

// StagePlan is one stage a task executes, with the profile bound to it. A nil
// Profile means the engine's defaults apply.
type StagePlan struct {
	Stage   Stage
	Profile *Profile
}

// ActiveStages returns the stages from Start to Terminate inclusive, in
// family order, each paired with its bound profile.
func (t *Task) ActiveStages() []StagePlan { return t.stages }

// ProfileFor returns the profile bound to s when s lies within the task's
// active range, or nil.
func (t *Task) ProfileFor(s Stage) *Profile {
	for _, p := range t.stages {
		if p.Stage == s {
			return p.Profile
		}
	}
	return nil
}

// Runs reports whether s lies within the task's active range.
func (t *Task) Runs(s Stage) bool {
	for _, p := range t.stages {
		if p.Stage == s {
			return true
		}
	}
	return false
}

// Profile is a resolved ImageParameterOptions entry.
type Profile struct {
	Name          string
	Binarization  []BinarizationMode
	TextDetection *TextDetectionMode
}

// BinarizationMode is one entry of a profile's BinarizationModes list.
type BinarizationMode struct {
	Mode        string
	BlockSizeX  int
	BlockSizeY  int
	FillVacancy bool
}

// TextDetectionMode tunes text and region detection.
type TextDetectionMode struct {
	Mode        string
	Direction   string
	Sensitivity int
}

// PrimaryBinarization returns the first binarization mode of the profile, or
// the zero value when p is nil or declares none.
func (p *Profile) PrimaryBinarization() BinarizationMode {
	if p == nil || len(p.Binarization) == 0 {
		return BinarizationMode{}
	}
	return p.Binarization[0]
}
