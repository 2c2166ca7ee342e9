package textutil

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	imgTagPattern      = regexp.MustCompile(`(<img[^>]*>)`)
	placeholderPattern = regexp.MustCompile(`__IMAGE_TAG_(\d+)__`)
	imageBlockPattern  = regexp.MustCompile(`(?s)<<<IMAGE_START>>>.*?<<<IMAGE_END>>>`)
	imageElemPattern   = regexp.MustCompile(`(?i)<image\s+[^>]*src\s*=\s*["'][^"']+["'][^>]*/?>`)
	anyImagePattern    = regexp.MustCompile(`(?i)<image\s+[^>]*/>|<<<IMAGE_START>>>`)
)

// ExtractImageTags replaces every <img ...> tag with an indexed placeholder
// so the markup survives the provider round trip untouched. The returned
// slice restores them by position.
func ExtractImageTags(text string) (string, []string) {
	var tags []string
	replaced := imgTagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		tags = append(tags, tag)
		return fmt.Sprintf("__IMAGE_TAG_%d__", len(tags)-1)
	})
	return replaced, tags
}

// RestoreImageTags substitutes the indexed placeholders back with their
// original tags. Placeholders without a stored tag are left as-is.
func RestoreImageTags(text string, tags []string) string {
	for i, tag := range tags {
		text = strings.ReplaceAll(text, fmt.Sprintf("__IMAGE_TAG_%d__", i), tag)
	}
	return text
}

// MissingPlaceholders returns the placeholder strings present in the original
// text but absent from the translated text.
func MissingPlaceholders(original, translated string) []string {
	var missing []string
	seen := map[string]struct{}{}
	for _, match := range placeholderPattern.FindAllString(original, -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		if !strings.Contains(translated, match) {
			missing = append(missing, match)
		}
	}
	return missing
}

// IsImageOnlyChapter reports whether no meaningful text remains once image
// blocks and image elements are stripped.
func IsImageOnlyChapter(content string) bool {
	stripped := strings.TrimSpace(content)
	if stripped == "" {
		return false
	}
	stripped = imageBlockPattern.ReplaceAllString(stripped, "")
	stripped = imageElemPattern.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped) == ""
}

// IsMarkupOnly reports whether the content consists solely of tag markup with
// no translatable prose between the tags.
func IsMarkupOnly(content string) bool {
	stripped := strings.TrimSpace(content)
	if stripped == "" {
		return false
	}
	withoutTags := regexp.MustCompile(`<[^>]+>`).ReplaceAllString(stripped, "")
	withoutTags = imageBlockPattern.ReplaceAllString(withoutTags, "")
	return strings.TrimSpace(withoutTags) == ""
}

// ExtractImageBlocks returns every <<<IMAGE_START>>>...<<<IMAGE_END>>> block.
func ExtractImageBlocks(text string) []string {
	return imageBlockPattern.FindAllString(text, -1)
}

// FindMissingImageBlocks returns blocks present in the input but absent from
// the output.
func FindMissingImageBlocks(input, output string) []string {
	outputBlocks := ExtractImageBlocks(output)
	present := make(map[string]struct{}, len(outputBlocks))
	for _, block := range outputBlocks {
		present[block] = struct{}{}
	}
	var missing []string
	for _, block := range ExtractImageBlocks(input) {
		if _, ok := present[block]; !ok {
			missing = append(missing, block)
		}
	}
	return missing
}

// InsertMissingImageBlocks reinserts image blocks dropped from the output,
// guessing placement from the line preceding the block in the input and
// appending at the end when no anchor line matches.
func InsertMissingImageBlocks(input, output string) string {
	missing := FindMissingImageBlocks(input, output)
	if len(missing) == 0 {
		return output
	}

	inputLines := strings.Split(input, "\n")
	outputLines := strings.Split(output, "\n")
	patched := append([]string(nil), outputLines...)

	for _, block := range missing {
		placed := false
		for i, line := range inputLines {
			if !strings.Contains(line, block) {
				continue
			}
			anchor := ""
			if i > 0 {
				anchor = strings.TrimSpace(inputLines[i-1])
			}
			// Search patched, not the original output, so earlier insertions
			// keep later anchor positions accurate.
			insertAt := -1
			if anchor != "" {
				for j, out := range patched {
					if strings.Contains(out, anchor) {
						insertAt = j
						break
					}
				}
			}
			if insertAt >= 0 {
				patched = append(patched[:insertAt+1], append([]string{block}, patched[insertAt+1:]...)...)
			} else {
				patched = append(patched, block)
			}
			placed = true
			break
		}
		if !placed {
			patched = append(patched, block)
		}
	}
	return strings.Join(patched, "\n")
}

// ExpectsImages reports whether the chapter filename follows the "- image"
// naming convention for chapters that carry illustrations.
func ExpectsImages(filename string) bool {
	return strings.Contains(filename, "- image")
}

// PatchImageBlocksIfMissing restores dropped image blocks for chapters that
// are expected to carry them. It returns the output unchanged for other
// chapters, and reports whether a patch was applied.
func PatchImageBlocksIfMissing(filename, input, output string) (string, bool) {
	if !ExpectsImages(filename) {
		return output, false
	}
	if anyImagePattern.MatchString(input) && !anyImagePattern.MatchString(output) {
		return InsertMissingImageBlocks(input, output), true
	}
	return output, false
}

// RemoveImageBlocksIfUnexpected strips image markup from chapters whose
// filenames do not follow the image naming convention, reporting whether any
// cleanup happened.
func RemoveImageBlocksIfUnexpected(filename, output string) (string, bool) {
	if ExpectsImages(filename) {
		return output, false
	}
	cleaned := imageElemPattern.ReplaceAllString(output, "")
	cleaned = imageBlockPattern.ReplaceAllString(cleaned, "")
	return cleaned, cleaned != output
}
