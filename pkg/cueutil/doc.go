// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks JSON and CUE documents against embedded CUE schemas.
//
// CUE documents such as config.cue compile as CUE source. JSON documents pass
// WithJSON, which parses them strictly before the schema sees them:
//
//	//go:embed manifest_schema.cue
//	var manifestSchema []byte
//
//	m, err := cueutil.Decode[Manifest](manifestSchema, data, "#Manifest",
//		cueutil.WithJSON(), cueutil.WithFilename("addon.json"))
//
// Schema violations are returned as *SchemaError, naming the file and the
// field path of each problem.
package cueutil
