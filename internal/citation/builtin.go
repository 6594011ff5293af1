// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	_ "embed"
	"strings"
)

// citationsData is the built-in bibliography: the 115 references of the
// 2018 XPCS review, one per line.
//
//go:embed citations.txt
var citationsData string

// Builtin returns the built-in citation list. The returned slice is a
// fresh copy on every call.
func Builtin() []string {
	var citations []string
	for _, line := range strings.Split(citationsData, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			citations = append(citations, line)
		}
	}
	return citations
}
