// Package mockdata embeds the demo trust graph and the CV pages of its profiles.
package mockdata

import "embed"

// FS holds graph_mock.json and one <profile id>.html CV per profile.
//
//go:embed graph_mock.json *.html
var FS embed.FS
