// Package pipeline executes parsed command pipelines as one process per
// stage, connected by pipes and started strictly left to right.
package pipeline
