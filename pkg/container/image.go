package container

import "strings"

// DefaultTag is used when a deployment does not request an explicit tag
const DefaultTag = "latest"

// NormalizeImageRef resolves a base image reference and a requested tag to
// `<base-without-tag>:<tag>`. Any tag embedded in the base reference is
// stripped first, so a configured reference like `repo/app:stable` and a
// requested tag never concatenate. An empty tag resolves to DefaultTag.
// The function is idempotent under re-application.
func NormalizeImageRef(base, tag string) string {
	if tag == "" {
		tag = DefaultTag
	}
	return stripTag(base) + ":" + tag
}

// stripTag removes a trailing `:tag` from an image reference without
// touching a registry port (`registry:5000/app` keeps its colon because it
// precedes the last path separator).
func stripTag(ref string) string {
	colon := strings.LastIndex(ref, ":")
	if colon == -1 {
		return ref
	}
	if slash := strings.LastIndex(ref, "/"); colon < slash {
		return ref
	}
	return ref[:colon]
}
