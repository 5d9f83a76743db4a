package conversation

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Attachment is one image carried by a turn. Ref is the content-addressed
// reference assigned at upload; Data is nil once the turn falls outside the
// retention window. Ref never changes and never disappears, so the history
// can always answer whether an image was ever attached here.
type Attachment struct {
	Ref      string
	MimeType string
	Data     []byte
}

// Live reports whether the payload is still resident.
func (a *Attachment) Live() bool { return len(a.Data) > 0 }

// Turn is a single conversation entry. Turns are appended monotonically and
// never reordered or removed; pruning nulls attachment payloads only.
type Turn struct {
	Role   Role
	Text   string
	Images []Attachment
}

// HasLiveImage reports whether any attachment payload is still resident.
func (t *Turn) HasLiveImage() bool {
	for i := range t.Images {
		if t.Images[i].Live() {
			return true
		}
	}
	return false
}

// Marker renders the literal history marker for an image reference.
func Marker(ref string) string { return "[IMAGE-ID " + ref + "]" }
