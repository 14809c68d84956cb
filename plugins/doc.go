// Package plugins hosts plugin implementation subpackages. It contains no
// runtime code itself; this file exists so the architectural guard test
// alongside it has a package to live in.
//
// Plugins implement core.Plugin and contribute handlers or views through
// core.PluginRegistry. They may import checkqc/internal/core and
// checkqc/pkg/domain only.
package plugins
