// Package services carries the cross-cutting helpers shared by pipeline
// components: sentinel error markers with a wrapping helper, and context
// annotation for job, phase, and correlation identifiers.
package services
