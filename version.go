package basiceq

import _ "embed"

// Version is the release version of basiceq.
//
//go:embed VERSION
var Version string
