// Package textutil holds the text and markup helpers used across the
// translation pipeline: image tag placeholders, image block validation,
// chapter classification, chunking, and filename sanitization.
package textutil
