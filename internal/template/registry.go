// Package template parses and validates capture-vision template documents
// and resolves their named pipelines into immutable execution graphs.
//
// A document holds four classes of named objects that refer to each other by
// name: CaptureVisionTemplates (pipelines) list TargetROIDefOptions, which
// list task settings, which bind stages to ImageParameterOptions profiles.
// Load checks every name and reference up front and builds one Graph per
// pipeline; Resolve never does partial work.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"capturevision/internal/logging"
)

const (
	keyPipelines = "CaptureVisionTemplates"
	keyROIs      = "TargetROIDefOptions"
	keyProfiles  = "ImageParameterOptions"
)

type rawPipeline struct {
	Name     string   `json:"Name"`
	ROINames []string `json:"ImageROIProcessingNameArray"`
}

type rawROI struct {
	Name      string   `json:"Name"`
	TaskNames []string `json:"TaskSettingNameArray"`
}

type rawSectionBinding struct {
	Section            string `json:"Section"`
	ImageParameterName string `json:"ImageParameterName"`
}

type rawTask struct {
	Name             string `json:"Name"`
	StartSection     string `json:"StartSection"`
	TerminateSetting *struct {
		Section string `json:"Section"`
	} `json:"TerminateSetting"`
	Sections              []rawSectionBinding `json:"SectionImageParameterArray"`
	BarcodeFormatIDs      []string            `json:"BarcodeFormatIds"`
	ExpectedBarcodesCount int                 `json:"ExpectedBarcodesCount"`
}

type rawBinarization struct {
	Mode                    string `json:"Mode"`
	BlockSizeX              int    `json:"BlockSizeX"`
	BlockSizeY              int    `json:"BlockSizeY"`
	EnableFillBinaryVacancy int    `json:"EnableFillBinaryVacancy"`
}

type rawTextDetection struct {
	Mode        string `json:"Mode"`
	Direction   string `json:"Direction"`
	Sensitivity int    `json:"Sensitivity"`
}

type rawProfile struct {
	Name              string            `json:"Name"`
	BinarizationModes []rawBinarization `json:"BinarizationModes"`
	TextDetectionMode *rawTextDetection `json:"TextDetectionMode"`
}

var (
	binarizationModes  = map[string]bool{"BM_LOCAL_BLOCK": true, "BM_THRESHOLD": true, "BM_AUTO": true, "BM_SKIP": true}
	textDetectionModes = map[string]bool{"TTDM_WORD": true, "TTDM_LINE": true, "TTDM_SKIP": true}
	textDirections     = map[string]bool{"": true, "HORIZONTAL": true, "VERTICAL": true, "UNKNOWN": true}
	barcodeFormatIDs   = map[string]bool{
		"BF_ALL": true, "BF_DEFAULT": true, "BF_ONED": true,
		"BF_QR_CODE": true, "BF_DATAMATRIX": true, "BF_PDF417": true, "BF_AZTEC": true,
		"BF_CODE_128": true, "BF_CODE_39": true, "BF_CODE_93": true, "BF_CODABAR": true, "BF_ITF": true,
		"BF_EAN_13": true, "BF_EAN_8": true, "BF_UPC_A": true, "BF_UPC_E": true,
	}
)

// Registry is an immutable, fully resolved template document. It is safe for
// concurrent use.
type Registry struct {
	graphs map[string]*Graph
	order  []string
}

// Load parses and validates a template document. Validation is all-or-nothing:
// any duplicate name, dangling reference, unknown or out-of-family stage, or
// out-of-range value fails the whole load with a *ConfigError.
func Load(document []byte) (*Registry, error) {
	logger := logging.New("template")

	var top map[string]json.RawMessage
	if err := json.Unmarshal(document, &top); err != nil {
		return nil, configErrorf(Malformed, "%v", err)
	}
	if top == nil {
		return nil, configErrorf(Malformed, "document is not a JSON object")
	}

	var (
		pipelines []rawPipeline
		rois      []rawROI
		profiles  []rawProfile
	)
	if err := decodeSection(top, keyPipelines, &pipelines); err != nil {
		return nil, err
	}
	if err := decodeSection(top, keyROIs, &rois); err != nil {
		return nil, err
	}
	if err := decodeSection(top, keyProfiles, &profiles); err != nil {
		return nil, err
	}

	known := map[string]bool{keyPipelines: true, keyROIs: true, keyProfiles: true}
	type kindedTask struct {
		raw    rawTask
		family family
	}
	var tasks []kindedTask
	for _, fam := range families {
		known[fam.key] = true
		var raws []rawTask
		if err := decodeSection(top, fam.key, &raws); err != nil {
			return nil, err
		}
		for _, rt := range raws {
			tasks = append(tasks, kindedTask{raw: rt, family: fam})
		}
	}
	for key := range top {
		if !known[key] {
			logger.Debug("ignoring unknown template key", "key", key)
		}
	}

	// Profiles.
	profileIndex := make(map[string]*Profile, len(profiles))
	for i, rp := range profiles {
		if rp.Name == "" {
			return nil, configErrorf(InvalidValue, "%s[%d] has no Name", keyProfiles, i)
		}
		if _, dup := profileIndex[rp.Name]; dup {
			return nil, configErrorf(DuplicateName, "image parameter %q declared more than once", rp.Name)
		}
		p, err := buildProfile(rp)
		if err != nil {
			return nil, err
		}
		profileIndex[rp.Name] = p
	}

	// Task settings, across all families.
	taskIndex := make(map[string]*Task, len(tasks))
	for _, kt := range tasks {
		if kt.raw.Name == "" {
			return nil, configErrorf(InvalidValue, "%s entry has no Name", kt.family.key)
		}
		if _, dup := taskIndex[kt.raw.Name]; dup {
			return nil, configErrorf(DuplicateName, "task setting %q declared more than once", kt.raw.Name)
		}
		t, err := buildTask(kt.raw, kt.family, profileIndex)
		if err != nil {
			return nil, err
		}
		taskIndex[kt.raw.Name] = t
	}

	// ROI definitions.
	roiIndex := make(map[string]*ROI, len(rois))
	for i, rr := range rois {
		if rr.Name == "" {
			return nil, configErrorf(InvalidValue, "%s[%d] has no Name", keyROIs, i)
		}
		if _, dup := roiIndex[rr.Name]; dup {
			return nil, configErrorf(DuplicateName, "target ROI definition %q declared more than once", rr.Name)
		}
		roi := &ROI{Name: rr.Name, Tasks: make([]*Task, 0, len(rr.TaskNames))}
		for _, tn := range rr.TaskNames {
			t, ok := taskIndex[tn]
			if !ok {
				return nil, configErrorf(UnresolvedReference, "target ROI definition %q references unknown task setting %q", rr.Name, tn)
			}
			roi.Tasks = append(roi.Tasks, t)
		}
		roiIndex[rr.Name] = roi
	}

	// Pipelines.
	reg := &Registry{graphs: make(map[string]*Graph, len(pipelines))}
	for i, rp := range pipelines {
		if rp.Name == "" {
			return nil, configErrorf(InvalidValue, "%s[%d] has no Name", keyPipelines, i)
		}
		if _, dup := reg.graphs[rp.Name]; dup {
			return nil, configErrorf(DuplicateName, "capture vision template %q declared more than once", rp.Name)
		}
		g := &Graph{Pipeline: rp.Name, ROIs: make([]*ROI, 0, len(rp.ROINames))}
		for _, rn := range rp.ROINames {
			roi, ok := roiIndex[rn]
			if !ok {
				return nil, configErrorf(UnresolvedReference, "capture vision template %q references unknown target ROI definition %q", rp.Name, rn)
			}
			g.ROIs = append(g.ROIs, roi)
		}
		reg.graphs[rp.Name] = g
		reg.order = append(reg.order, rp.Name)
	}

	return reg, nil
}

func decodeSection(top map[string]json.RawMessage, key string, into any) error {
	raw, ok := top[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return configErrorf(Malformed, "%s: %v", key, err)
	}
	return nil
}

func buildProfile(rp rawProfile) (*Profile, error) {
	p := &Profile{Name: rp.Name}
	for _, rb := range rp.BinarizationModes {
		if !binarizationModes[rb.Mode] {
			return nil, configErrorf(InvalidValue, "image parameter %q: unknown binarization mode %q", rp.Name, rb.Mode)
		}
		if rb.BlockSizeX < 0 || rb.BlockSizeY < 0 {
			return nil, configErrorf(InvalidValue, "image parameter %q: negative block size %dx%d", rp.Name, rb.BlockSizeX, rb.BlockSizeY)
		}
		p.Binarization = append(p.Binarization, BinarizationMode{
			Mode:        rb.Mode,
			BlockSizeX:  rb.BlockSizeX,
			BlockSizeY:  rb.BlockSizeY,
			FillVacancy: rb.EnableFillBinaryVacancy != 0,
		})
	}
	if td := rp.TextDetectionMode; td != nil {
		if !textDetectionModes[td.Mode] {
			return nil, configErrorf(InvalidValue, "image parameter %q: unknown text detection mode %q", rp.Name, td.Mode)
		}
		if !textDirections[td.Direction] {
			return nil, configErrorf(InvalidValue, "image parameter %q: unknown text direction %q", rp.Name, td.Direction)
		}
		if td.Sensitivity < 0 || td.Sensitivity > 9 {
			return nil, configErrorf(InvalidValue, "image parameter %q: sensitivity %d outside 0-9", rp.Name, td.Sensitivity)
		}
		p.TextDetection = &TextDetectionMode{
			Mode:        td.Mode,
			Direction:   td.Direction,
			Sensitivity: td.Sensitivity,
		}
	}
	return p, nil
}

func buildTask(rt rawTask, fam family, profiles map[string]*Profile) (*Task, error) {
	t := &Task{
		Name:      rt.Name,
		Kind:      fam.kind,
		Start:     fam.stages[0],
		Terminate: fam.stages[len(fam.stages)-1],
	}

	checkStage := func(what string, s Stage) error {
		if !s.Known() {
			return configErrorf(InvalidStage, "task setting %q: %s %q is not a known stage", rt.Name, what, s)
		}
		if stageIndex(fam.stages, s) < 0 {
			return configErrorf(InvalidStage, "task setting %q: %s %q does not belong to %s tasks", rt.Name, what, s, fam.kind)
		}
		return nil
	}

	if rt.StartSection != "" {
		s := Stage(rt.StartSection)
		if err := checkStage("StartSection", s); err != nil {
			return nil, err
		}
		t.Start = s
	}
	if rt.TerminateSetting != nil && rt.TerminateSetting.Section != "" {
		s := Stage(rt.TerminateSetting.Section)
		if err := checkStage("TerminateSetting", s); err != nil {
			return nil, err
		}
		t.Terminate = s
	}
	startIdx, termIdx := stageIndex(fam.stages, t.Start), stageIndex(fam.stages, t.Terminate)
	if startIdx > termIdx {
		return nil, configErrorf(InvalidStage, "task setting %q: StartSection %s comes after TerminateSetting %s", rt.Name, t.Start, t.Terminate)
	}

	bound := make(map[Stage]*Profile, len(rt.Sections))
	for _, sb := range rt.Sections {
		s := Stage(sb.Section)
		if err := checkStage("section", s); err != nil {
			return nil, err
		}
		if _, dup := bound[s]; dup {
			return nil, configErrorf(DuplicateName, "task setting %q binds section %s more than once", rt.Name, s)
		}
		p, ok := profiles[sb.ImageParameterName]
		if !ok {
			return nil, configErrorf(UnresolvedReference, "task setting %q section %s references unknown image parameter %q", rt.Name, s, sb.ImageParameterName)
		}
		bound[s] = p
		t.Bindings = append(t.Bindings, Binding{Section: s, Profile: p})
	}

	if len(rt.BarcodeFormatIDs) > 0 || rt.ExpectedBarcodesCount != 0 {
		if fam.kind != KindBarcode {
			return nil, configErrorf(InvalidValue, "task setting %q: barcode options on a %s task", rt.Name, fam.kind)
		}
	}
	for _, id := range rt.BarcodeFormatIDs {
		if !barcodeFormatIDs[strings.ToUpper(id)] {
			return nil, configErrorf(InvalidValue, "task setting %q: unknown barcode format %q", rt.Name, id)
		}
		t.BarcodeFormats = append(t.BarcodeFormats, strings.ToUpper(id))
	}
	if rt.ExpectedBarcodesCount < 0 {
		return nil, configErrorf(InvalidValue, "task setting %q: negative ExpectedBarcodesCount %d", rt.Name, rt.ExpectedBarcodesCount)
	}
	t.ExpectedCount = rt.ExpectedBarcodesCount

	for _, s := range fam.stages[startIdx : termIdx+1] {
		t.stages = append(t.stages, StagePlan{Stage: s, Profile: bound[s]})
	}
	return t, nil
}

// Resolve returns the execution graph for the named pipeline.
func (r *Registry) Resolve(pipeline string) (*Graph, error) {
	if r != nil {
		if g, ok := r.graphs[pipeline]; ok {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, pipeline)
}

// Pipelines returns the pipeline names in document order.
func (r *Registry) Pipelines() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}
