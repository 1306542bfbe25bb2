package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown/unclassified.
	UnknownCode Code = 0

	// Tree input (front-end dump decoding).
	TreeInfo         Code = 1000
	TreeMalformed    Code = 1001
	TreeUnknownKind  Code = 1002
	TreeDanglingNode Code = 1003
	TreeMissingBody  Code = 1004

	// Lifetime analysis.
	LifInfo        Code = 3000
	LifTempDropped Code = 3001

	// Feature gates.
	GateFeatureDisabled Code = 3501
	GateUnknownFeature  Code = 3502

	// I/O.
	IOLoadFileError Code = 4001

	// Project / manifest.
	ProjInfo            Code = 5000
	ProjMissingManifest Code = 5001
	ProjInvalidManifest Code = 5002

	// Observability.
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	TreeInfo:            "Tree input information",
	TreeMalformed:       "Malformed typed-tree dump",
	TreeUnknownKind:     "Unknown node kind in tree dump",
	TreeDanglingNode:    "Dangling node reference in tree dump",
	TreeMissingBody:     "Unit has no body",
	LifInfo:             "Lifetime information",
	LifTempDropped:      "Temporary value dropped while borrowed",
	GateFeatureDisabled: "Feature is not enabled",
	GateUnknownFeature:  "Unknown feature name",
	IOLoadFileError:     "I/O load file error",
	ProjInfo:            "Project information",
	ProjMissingManifest: "Missing project manifest",
	ProjInvalidManifest: "Invalid project manifest",
	ObsInfo:             "Observability information",
	ObsTimings:          "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("TRE%04d", ic)
	case ic >= 3000 && ic < 3500:
		return fmt.Sprintf("LIF%04d", ic)
	case ic >= 3500 && ic < 4000:
		return fmt.Sprintf("GAT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
