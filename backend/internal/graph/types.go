package graph

import "time"

// Node labels.
const (
	labelImage        = "Image"
	labelWork         = "Work"
	labelCollection   = "Collection"
	labelUser         = "User"
	labelGroup        = "Group"
	labelVisualLink   = "VisualLink"
	labelPersonalLink = "PersonalLink"
	labelTriplet      = "TripletComparison"
)

// Relationship types.
const (
	relIsShownBy     = "IS_SHOWN_BY"    // Work -> Image
	relCollContains  = "COLL_CONTAINS"  // Collection -> Collection | Work
	relOwns          = "OWNS"           // User -> Group
	relGroupContains = "GROUP_CONTAINS" // Group -> Image
	relLinks         = "LINKS"          // VisualLink | PersonalLink -> Image
	relCreatedBy     = "CREATED_BY"     // link -> User
	relAnnotatedBy   = "ANNOTATED_BY"   // link -> User
	relAnchor        = "ANCHOR"         // TripletComparison -> Image
	relCandidate     = "CANDIDATE"      // TripletComparison -> Image
	relPositive      = "POSITIVE"       // TripletComparison -> Image
	relNegative      = "NEGATIVE"       // TripletComparison -> Image
)

// LinkType classifies a VisualLink. PROPOSAL marks the unannotated
// initial state; every other type implies a non-null annotation time.
type LinkType string

const (
	LinkProposal     LinkType = "PROPOSAL"
	LinkDuplicate    LinkType = "DUPLICATE"
	LinkNonDuplicate LinkType = "NON-DUPLICATE"
	LinkPositive     LinkType = "POSITIVE"
	LinkNegative     LinkType = "NEGATIVE"
	LinkUndefined    LinkType = "UNDEFINED"
)

// ValidLinkTypes are the finalized annotation types; PROPOSAL is excluded.
var ValidLinkTypes = []LinkType{LinkDuplicate, LinkNonDuplicate, LinkPositive, LinkNegative, LinkUndefined}

// AllLinkTypes includes the unannotated PROPOSAL state.
var AllLinkTypes = append([]LinkType{LinkProposal}, ValidLinkTypes...)

// Valid reports whether t is an acceptable finalized annotation type.
func (t LinkType) Valid() bool {
	for _, valid := range ValidLinkTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// Outcome distinguishes whether a create-proposal call created a new link
// or returned a pre-existing one.
type Outcome int

const (
	// OutcomeCreated means a new entity was persisted.
	OutcomeCreated Outcome = iota
	// OutcomeFound means an existing entity satisfied the request.
	OutcomeFound
)

// Image is a single digitized visual resource belonging to exactly one
// Work. The internal id is only used for tie-break ordering and set
// membership and is never serialized.
type Image struct {
	id      int64
	UID     string    `json:"uid"`
	IIIFURL string    `json:"iiif_url"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Added   time.Time `json:"added"`
}

// Work is a cultural heritage object aggregating one or more Images.
type Work struct {
	id          int64
	UID         string    `json:"uid"`
	URI         string    `json:"uri"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Title       string    `json:"title,omitempty"`
	Date        int       `json:"date,omitempty"`
	Added       time.Time `json:"added"`
	Images      []*Image  `json:"images,omitempty"`
}

// Collection groups Works and other Collections hierarchically.
type Collection struct {
	UID         string    `json:"uid"`
	URI         string    `json:"uri"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Added       time.Time `json:"added"`
}

// User is an annotator account. Creation and credential handling live at
// the boundary; the engine only consults the authorization level.
type User struct {
	id                 int64
	UID                string    `json:"uid"`
	Username           string    `json:"username"`
	Email              string    `json:"email,omitempty"`
	PasswordSHA256     string    `json:"-"`
	AuthorizationLevel int       `json:"authorization_level"`
	Added              time.Time `json:"added"`
}

// CanAnnotateLinks reports whether the user may finalize annotations.
func (u *User) CanAnnotateLinks() bool {
	return u.AuthorizationLevel >= 2
}

// Group is a user-owned set of Images.
type Group struct {
	UID   string    `json:"uid"`
	Label string    `json:"label"`
	Notes string    `json:"notes,omitempty"`
	Added time.Time `json:"added"`
}

// VisualLink is a typed edge between two Images of two distinct Works.
// At most one VisualLink exists per unordered image pair. Type is
// PROPOSAL if and only if Annotated is nil.
type VisualLink struct {
	id        int64
	UID       string     `json:"uid"`
	Type      LinkType   `json:"type"`
	Annotated *time.Time `json:"annotated,omitempty"`
	Added     time.Time  `json:"added"`
}

// PersonalLink is a per-creator private pairing of two Images; uniqueness
// holds per (image pair, creator), not globally.
type PersonalLink struct {
	id    int64
	UID   string    `json:"uid"`
	Added time.Time `json:"added"`
}

// TripletComparison holds one anchor Image and two or more candidates,
// resolved by naming a positive and a negative candidate.
type TripletComparison struct {
	id        int64
	UID       string     `json:"uid"`
	Annotated *time.Time `json:"annotated,omitempty"`
	Added     time.Time  `json:"added"`
}

// LinkEdge is one subgraph edge: the uids of its two endpoint Images in
// tie-break order plus the link entity itself.
type LinkEdge struct {
	SourceUID string      `json:"source"`
	TargetUID string      `json:"target"`
	Link      *VisualLink `json:"data"`
}

// PersonalEdge is the personal-link analog of LinkEdge.
type PersonalEdge struct {
	SourceUID string        `json:"source"`
	TargetUID string        `json:"target"`
	Link      *PersonalLink `json:"data"`
}

// Stat is one named counter reported by the stats endpoint.
type Stat struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value int64  `json:"value"`
}
