package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Parse errors (C1).
	SynInfo            Code = 1000
	SynParseError      Code = 1001
	SynMissingNode     Code = 1002
	SynInvalidEncoding Code = 1003
	SynIndentation     Code = 1004

	// Lowering errors and warnings (C2).
	LowInfo                Code = 2000
	LowUnsupported         Code = 2001
	LowAsyncFor            Code = 2002
	LowStarExpression      Code = 2003
	LowMetaclass           Code = 2004
	LowComplexMatchGuard   Code = 2005
	LowUnknownDecorator    Code = 2006
	LowMutableDefault      Code = 2007
	LowDiamondInheritance  Code = 2008
	LowDuplicateParam      Code = 2009
	LowMultipleVariadic    Code = 2010
	LowNonConstantDefault  Code = 2011
	LowGlobalStatement     Code = 2012
	LowNonlocalStatement   Code = 2013
	LowDeleteStatement     Code = 2014
	LowYieldFrom           Code = 2015
	LowReceiverMissing     Code = 2016
	LowAnnotationMalformed Code = 2017

	// Import mapping (C3).
	MapInfo             Code = 3000
	MapUnresolvedImport Code = 3001
	MapUnknownItem      Code = 3002
	MapNasaSuppressed   Code = 3003
	MapConfigError      Code = 3004
	MapVersionInvalid   Code = 3005
	MapRelativeImport   Code = 3006
	MapWildcardImport   Code = 3007

	// Type inference and source annotations (C4).
	TypInfo                   Code = 4000
	TypInferenceUnknown       Code = 4001
	TypAnnotationUnknownKey   Code = 4002
	TypAnnotationInvalidValue Code = 4003
	TypUnparsableAnnotation   Code = 4004
	TypCallableUnsupported    Code = 4005

	// Ownership and mutability analysis (C6).
	BorInfo              Code = 5000
	BorSignatureConflict Code = 5001
	BorUnknownCallee     Code = 5002

	// Emission (C7/C8).
	EmiInfo              Code = 6000
	EmiInternal          Code = 6001
	EmiMalformedDispatch Code = 6002
	EmiUnknownStrategy   Code = 6003

	// I/O.
	IOLoadFileError  Code = 7001
	IOWriteFileError Code = 7002
	IOOutputExists   Code = 7003

	// Project and configuration.
	PrjInfo          Code = 8000
	PrjManifestError Code = 8001
	PrjRootNotFound  Code = 8002
	PrjCacheError    Code = 8003
	PrjNoInputs      Code = 8004
	PrjTimings       Code = 8005
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown diagnostic",

	SynInfo:            "Parser note",
	SynParseError:      "Python syntax error",
	SynMissingNode:     "Incomplete syntax",
	SynInvalidEncoding: "Source is not valid UTF-8",
	SynIndentation:     "Inconsistent indentation",

	LowInfo:                "Lowering note",
	LowUnsupported:         "Unsupported construct",
	LowAsyncFor:            "async for is not supported",
	LowStarExpression:      "Starred expression outside a call",
	LowMetaclass:           "Metaclass declarations are not supported",
	LowComplexMatchGuard:   "match guard beyond the supported subset",
	LowUnknownDecorator:    "Unknown decorator kept as annotation",
	LowMutableDefault:      "Mutable default materialized per call",
	LowDiamondInheritance:  "Diamond inheritance lowered to composition",
	LowDuplicateParam:      "Duplicate parameter name",
	LowMultipleVariadic:    "More than one variadic parameter",
	LowNonConstantDefault:  "Default value is not a constant expression",
	LowGlobalStatement:     "global statement is not supported",
	LowNonlocalStatement:   "nonlocal statement is not supported",
	LowDeleteStatement:     "del statement is not supported",
	LowYieldFrom:           "yield from is not supported",
	LowReceiverMissing:     "Method without a receiver parameter",
	LowAnnotationMalformed: "Malformed type annotation",

	MapInfo:             "Import mapping note",
	MapUnresolvedImport: "No Rust mapping for module",
	MapUnknownItem:      "No Rust mapping for imported item",
	MapNasaSuppressed:   "External crate suppressed in NASA mode",
	MapConfigError:      "Module mapping config error",
	MapVersionInvalid:   "Invalid crate version requirement",
	MapRelativeImport:   "Relative import cannot be mapped",
	MapWildcardImport:   "Wildcard import cannot be mapped",

	TypInfo:                   "Type note",
	TypInferenceUnknown:       "Type could not be inferred; dynamic fallback used",
	TypAnnotationUnknownKey:   "Unknown annotation key",
	TypAnnotationInvalidValue: "Invalid annotation value",
	TypUnparsableAnnotation:   "Unparsable type annotation",
	TypCallableUnsupported:    "Unsupported callable type",

	BorInfo:              "Ownership note",
	BorSignatureConflict: "Caller cannot provide exclusive access",
	BorUnknownCallee:     "Call to unknown function assumed to take ownership",

	EmiInfo:              "Emission note",
	EmiInternal:          "Internal emission invariant violated",
	EmiMalformedDispatch: "Method dispatch produced malformed tokens",
	EmiUnknownStrategy:   "Unknown emission strategy",

	IOLoadFileError:  "Failed to load file",
	IOWriteFileError: "Failed to write output",
	IOOutputExists:   "Output file already exists",

	PrjInfo:          "Project note",
	PrjManifestError: "Invalid depyler.toml",
	PrjRootNotFound:  "Project root not found",
	PrjCacheError:    "Transpile cache error",
	PrjNoInputs:      "No Python sources found",
	PrjTimings:       "Phase timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MAP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("BOR%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("EMI%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 8000 && ic < 9000:
		return fmt.Sprintf("PRJ%04d", ic)
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

// Fatal reports whether a diagnostic with this code must stop the job.
// Non-fatal kinds (unresolved imports, unknown types) degrade gracefully.
func (c Code) Fatal() bool {
	switch c {
	case SynParseError, SynMissingNode, SynInvalidEncoding, SynIndentation,
		BorSignatureConflict,
		EmiInternal, EmiMalformedDispatch,
		IOLoadFileError, IOWriteFileError, IOOutputExists:
		return true
	}
	return false
}
