package template

// Stage is one of the fixed pipeline phases a task can be bounded by or bind
// image parameters to.
type Stage string

const (
	StageRegionPredetection    Stage = "ST_REGION_PREDETECTION"
	StageDocumentDetection     Stage = "ST_DOCUMENT_DETECTION"
	StageDocumentNormalization Stage = "ST_DOCUMENT_NORMALIZATION"
	StageBarcodeLocalization   Stage = "ST_BARCODE_LOCALIZATION"
	StageBarcodeDecoding       Stage = "ST_BARCODE_DECODING"
	StageTextLineLocalization  Stage = "ST_TEXT_LINE_LOCALIZATION"
	StageTextLineRecognition   Stage = "ST_TEXT_LINE_RECOGNITION"
)

var knownStages = map[Stage]bool{
	StageRegionPredetection:    true,
	StageDocumentDetection:     true,
	StageDocumentNormalization: true,
	StageBarcodeLocalization:   true,
	StageBarcodeDecoding:       true,
	StageTextLineLocalization:  true,
	StageTextLineRecognition:   true,
}

// Known reports whether s belongs to the stage enumeration.
func (s Stage) Known() bool { return knownStages[s] }

// TaskKind names the family a task setting was declared under. The family
// fixes the ordered stage list the task runs through.
type TaskKind string

const (
	KindDocument TaskKind = "document"
	KindBarcode  TaskKind = "barcode"
	KindLabel    TaskKind = "label"
)

type family struct {
	kind   TaskKind
	key    string // top-level document key holding this family's task settings
	stages []Stage
}

// families is ordered; load walks it in this order so validation errors are
// reported deterministically.
var families = []family{
	{
		kind:   KindDocument,
		key:    "DocumentNormalizerTaskSettingOptions",
		stages: []Stage{StageRegionPredetection, StageDocumentDetection, StageDocumentNormalization},
	},
	{
		kind:   KindBarcode,
		key:    "BarcodeReaderTaskSettingOptions",
		stages: []Stage{StageRegionPredetection, StageBarcodeLocalization, StageBarcodeDecoding},
	},
	{
		kind:   KindLabel,
		key:    "LabelRecognizerTaskSettingOptions",
		stages: []Stage{StageRegionPredetection, StageTextLineLocalization, StageTextLineRecognition},
	},
}

// Stages returns the ordered stage list for a task kind, or nil when the kind
// is unknown.
func (k TaskKind) Stages() []Stage {
	for _, f := range families {
		if f.kind == k {
			return append([]Stage(nil), f.stages...)
		}
	}
	return nil
}

func stageIndex(stages []Stage, s Stage) int {
	for i, st := range stages {
		if st == s {
			return i
		}
	}
	return -1
}
