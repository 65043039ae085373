// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output and Markdown tables.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import "strings"

// --- Stages ---

var stages = map[string]string{
	"ST_REGION_PREDETECTION":    "Region predetection",
	"ST_DOCUMENT_DETECTION":     "Document detection",
	"ST_DOCUMENT_NORMALIZATION": "Document normalization",
	"ST_BARCODE_LOCALIZATION":   "Barcode localization",
	"ST_BARCODE_DECODING":       "Barcode decoding",
	"ST_TEXT_LINE_LOCALIZATION": "Text line localization",
	"ST_TEXT_LINE_RECOGNITION":  "Text line recognition",
}

// Stage returns the human-readable name for a stage code.
// Unknown codes are returned as-is.
func Stage(code string) string {
	if name, ok := stages[code]; ok {
		return name
	}
	return code
}

// StageWithCode returns "Document detection (ST_DOCUMENT_DETECTION)" format.
func StageWithCode(code string) string {
	if name, ok := stages[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// StagePath converts a slice of stage codes to a human-readable path.
// ["ST_REGION_PREDETECTION", "ST_DOCUMENT_DETECTION"] -> "Region predetection → Document detection"
func StagePath(codes []string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = Stage(c)
	}
	return strings.Join(names, " → ")
}

// --- Error categories ---

var categories = map[string]string{
	"ok":             "OK",
	"config":         "Invalid template",
	"invalid_buffer": "Invalid buffer",
	"license":        "Not licensed",
	"engine":         "Engine error",
	"not_found":      "Unknown pipeline",
	"cancelled":      "Cancelled",
	"internal":       "Internal error",
}

// Category returns the human-readable name for an error category.
func Category(code string) string {
	if name, ok := categories[code]; ok {
		return name
	}
	return code
}

// --- Barcode formats ---

var barcodeFormats = map[string]string{
	"BF_ALL":        "All formats",
	"BF_DEFAULT":    "Default formats",
	"BF_ONED":       "All 1D formats",
	"BF_QR_CODE":    "QR Code",
	"BF_DATAMATRIX": "Data Matrix",
	"BF_PDF417":     "PDF417",
	"BF_AZTEC":      "Aztec",
	"BF_CODE_128":   "Code 128",
	"BF_CODE_39":    "Code 39",
	"BF_EAN_13":     "EAN-13",
	"BF_EAN_8":      "EAN-8",
	"BF_UPC_A":      "UPC-A",
}

// BarcodeFormat returns the human-readable name for a BF_* format ID.
func BarcodeFormat(id string) string {
	if name, ok := barcodeFormats[id]; ok {
		return name
	}
	return id
}

// BarcodeFormats joins the names of ids with ", ". Empty means "-".
func BarcodeFormats(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = BarcodeFormat(id)
	}
	return strings.Join(names, ", ")
}

// --- Binarization modes ---

var binarization = map[string]string{
	"BM_LOCAL_BLOCK": "Local block",
	"BM_THRESHOLD":   "Global threshold",
	"BM_AUTO":        "Auto",
	"BM_SKIP":        "Skip",
}

// Binarization returns the human-readable name for a BM_* mode.
func Binarization(mode string) string {
	if name, ok := binarization[mode]; ok {
		return name
	}
	return mode
}
