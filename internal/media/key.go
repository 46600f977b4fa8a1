package media

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// ErrInvalidPostID is returned when a post id would not form a single safe
// key segment.
var ErrInvalidPostID = errors.New("invalid post id")

const uncategorizedPost = "uncategorized"

var postIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Intent declares why a file is being uploaded.
type Intent struct {
	kind   string
	postID string
}

// Profile is the intent for profile pictures.
func Profile() Intent {
	return Intent{kind: "profile"}
}

// Post is the intent for media attached to a post. An empty postID files
// the upload under "uncategorized".
func Post(postID string) (Intent, error) {
	if postID != "" && !postIDPattern.MatchString(postID) {
		return Intent{}, ErrInvalidPostID
	}
	return Intent{kind: "post", postID: postID}, nil
}

// Name is the intent label used in logs and metrics.
func (i Intent) Name() string {
	return i.kind
}

// KeyDeriver builds storage keys. Every key is namespaced by the verified
// subject and ends with a fresh random id.
type KeyDeriver struct {
	newID func() string
}

// NewKeyDeriver returns a deriver using random v4 UUIDs.
func NewKeyDeriver() *KeyDeriver {
	return &KeyDeriver{newID: uuid.NewString}
}

// NewKeyDeriverWithIDs returns a deriver drawing ids from newID. newID must
// never return the same value twice.
func NewKeyDeriverWithIDs(newID func() string) *KeyDeriver {
	return &KeyDeriver{newID: newID}
}

// Derive returns the key for an upload by subjectID. category selects the
// images/videos folder for posts and is ignored for profiles.
func (d *KeyDeriver) Derive(subjectID string, intent Intent, category Category, ext string) string {
	id := d.newID()
	if intent.kind == "post" {
		postID := intent.postID
		if postID == "" {
			postID = uncategorizedPost
		}
		return fmt.Sprintf("posts/%s/%s/%ss/%s.%s", subjectID, postID, category, id, ext)
	}
	return fmt.Sprintf("profiles/%s/%s.%s", subjectID, id, ext)
}
