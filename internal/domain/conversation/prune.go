package conversation

import "strings"

// DefaultRetentionWindow is the number of most recent image-bearing turns
// whose payloads stay resident. Image payloads dominate context cost;
// bounding them to a fixed window caps that cost deterministically.
const DefaultRetentionWindow = 3

// Prune returns a new rendered view of the turn list in which only the
// `window` most recent turns holding at least one live payload keep their
// payloads. Every older image-bearing turn has its payloads nulled and its
// text rewritten to carry the literal [IMAGE-ID <ref>] marker for each image.
// The input slice is not mutated. Rewriting is one-directional: a turn that
// arrives already pruned stays pruned regardless of window.
func Prune(turns []Turn, window int) []Turn {
	if window <= 0 {
		window = DefaultRetentionWindow
	}

	out := make([]Turn, len(turns))
	copy(out, turns)

	// Newest to oldest: the first `window` turns with a live payload survive.
	kept := 0
	for i := len(out) - 1; i >= 0; i-- {
		if !out[i].HasLiveImage() {
			continue
		}
		if kept < window {
			kept++
			continue
		}
		out[i] = pruneTurn(out[i])
	}

	return out
}

// pruneTurn nulls payloads and rewrites the text with markers, copying the
// attachment slice so the caller's original turn stays untouched.
func pruneTurn(t Turn) Turn {
	images := make([]Attachment, len(t.Images))
	copy(images, t.Images)

	text := t.Text
	for i := range images {
		marker := Marker(images[i].Ref)
		if !strings.Contains(text, marker) {
			if text != "" {
				text += "\n"
			}
			text += marker
		}
		images[i].Data = nil
	}

	t.Text = text
	t.Images = images
	return t
}

// FindLivePayload scans the turn list for a resident payload matching ref.
func FindLivePayload(turns []Turn, ref string) (Attachment, bool) {
	for i := range turns {
		for j := range turns[i].Images {
			a := turns[i].Images[j]
			if a.Ref == ref && a.Live() {
				return a, true
			}
		}
	}
	return Attachment{}, false
}
