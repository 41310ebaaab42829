// Package modules groups the built-in models. Each subpackage exports a
// registry.Module that registers one model under the builtin: scheme, along
// with the value references of its variables.
package modules
