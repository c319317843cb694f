package graph

import (
	"time"

	"github.com/google/uuid"

	"artlink/backend/internal/store"
)

// ============================================================================
// Node inflation and property coercion
// ============================================================================

func propString(n *store.Node, key string) string {
	if val, ok := n.Props[key].(string); ok {
		return val
	}
	return ""
}

func propInt(n *store.Node, key string) int {
	switch val := n.Props[key].(type) {
	case int64:
		return int(val)
	case int:
		return val
	case float64:
		return int(val)
	}
	return 0
}

func propTime(n *store.Node, key string) time.Time {
	raw, ok := n.Props[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func propTimePtr(n *store.Node, key string) *time.Time {
	if _, ok := n.Props[key]; !ok {
		return nil
	}
	t := propTime(n, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func imageFromNode(n *store.Node) *Image {
	return &Image{
		id:      n.ID,
		UID:     n.UID,
		IIIFURL: propString(n, "iiif_url"),
		Width:   propInt(n, "width"),
		Height:  propInt(n, "height"),
		Added:   propTime(n, "added"),
	}
}

func workFromNode(n *store.Node) *Work {
	return &Work{
		id:          n.ID,
		UID:         n.UID,
		URI:         propString(n, "uri"),
		Label:       propString(n, "label"),
		Description: propString(n, "description"),
		Author:      propString(n, "author"),
		Title:       propString(n, "title"),
		Date:        propInt(n, "date"),
		Added:       propTime(n, "added"),
	}
}

func collectionFromNode(n *store.Node) *Collection {
	return &Collection{
		UID:         n.UID,
		URI:         propString(n, "uri"),
		Label:       propString(n, "label"),
		Description: propString(n, "description"),
		Added:       propTime(n, "added"),
	}
}

func userFromNode(n *store.Node) *User {
	return &User{
		id:                 n.ID,
		UID:                n.UID,
		Username:           propString(n, "username"),
		Email:              propString(n, "email"),
		PasswordSHA256:     propString(n, "password_sha256"),
		AuthorizationLevel: propInt(n, "authorization_level"),
		Added:              propTime(n, "added"),
	}
}

func groupFromNode(n *store.Node) *Group {
	return &Group{
		UID:   n.UID,
		Label: propString(n, "label"),
		Notes: propString(n, "notes"),
		Added: propTime(n, "added"),
	}
}

func linkFromNode(n *store.Node) *VisualLink {
	return &VisualLink{
		id:        n.ID,
		UID:       n.UID,
		Type:      LinkType(propString(n, "type")),
		Annotated: propTimePtr(n, "annotated"),
		Added:     propTime(n, "added"),
	}
}

func personalLinkFromNode(n *store.Node) *PersonalLink {
	return &PersonalLink{
		id:    n.ID,
		UID:   n.UID,
		Added: propTime(n, "added"),
	}
}

func tripletFromNode(n *store.Node) *TripletComparison {
	return &TripletComparison{
		id:        n.ID,
		UID:       n.UID,
		Annotated: propTimePtr(n, "annotated"),
		Added:     propTime(n, "added"),
	}
}

// newEntityProps assigns the identity every persisted entity carries: a
// fresh uid and the creation timestamp.
func newEntityProps() store.Props {
	return store.Props{
		"uid":   uuid.New().String(),
		"added": timestamp(time.Now().UTC()),
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// pairKey is the unordered identity of an image pair, enforced unique on
// VisualLink at the store schema level.
func pairKey(uidA, uidB string) string {
	if uidB < uidA {
		uidA, uidB = uidB, uidA
	}
	return uidA + "|" + uidB
}

func uidsOf(nodes []*store.Node) []string {
	uids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		uids = append(uids, n.UID)
	}
	return uids
}
