// Package configs provides the embedded configuration template for cmsindex.
//
// The template is written by `cmsindex config init` as .cmsindex.yaml in the
// working directory. Values in it mirror the defaults of
// internal/config NewConfig(); the commented sections show the optional
// search field, scoring profile and analyzer settings.
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (NewConfig())
//  2. Project config (.cmsindex.yaml)
//  3. Environment variables (CMSINDEX_*)
package configs

import _ "embed"

// ProjectConfigTemplate is the template for .cmsindex.yaml.
//
//go:embed cmsindex.example.yaml
var ProjectConfigTemplate string
