// Package tools defines the tool contract for the metadata agent: typed
// tools with schema-derived parameters, MCP server registration, and
// execution callbacks.
package tools
