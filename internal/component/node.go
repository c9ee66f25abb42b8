// Package component builds and validates the nested UI-component trees
// attached to outgoing messages. The platform imposes hard structural
// limits (node count, text budget, gallery size, containment rules); a
// tree that violates any of them is rejected before it is ever sent.
package component

// Structural limits imposed by the platform.
const (
	MaxNodes        = 40
	MaxTextChars    = 4000
	MaxGalleryItems = 10
)

// Type tags the closed set of component variants.
type Type string

const (
	TypeContainer    Type = "container"
	TypeActionRow    Type = "action_row"
	TypeSection      Type = "section"
	TypeTextDisplay  Type = "text_display"
	TypeButton       Type = "button"
	TypeSelectMenu   Type = "select_menu"
	TypeSeparator    Type = "separator"
	TypeThumbnail    Type = "thumbnail"
	TypeMediaGallery Type = "media_gallery"
	TypeFile         Type = "file"
	TypeModal        Type = "modal"
	TypeTextInput    Type = "text_input"
)

// Node is the closed union of component variants. Only types in this
// package implement it, so dispatch sites can switch exhaustively.
type Node interface {
	Kind() Type
}

// Container is a top-level grouping block.
type Container struct {
	AccentColor int
	Children    []Node
}

// ActionRow lays out up to a row of interactive controls.
type ActionRow struct {
	Children []Node
}

// Section pairs text content with exactly one accessory.
type Section struct {
	Children  []*TextDisplay
	Accessory Node // *Button or *Thumbnail, enforced by the builder
}

// TextDisplay renders sanitized markdown text.
type TextDisplay struct {
	Content string
}

// Button styles. Link buttons carry a URL instead of a custom ID.
const (
	ButtonPrimary   = "primary"
	ButtonSecondary = "secondary"
	ButtonSuccess   = "success"
	ButtonDanger    = "danger"
	ButtonLink      = "link"
)

// Button is a clickable control.
type Button struct {
	Label    string
	Style    string
	CustomID string
	URL      string
	Disabled bool
}

// Select menu variants.
const (
	SelectString      = "string"
	SelectUser        = "user"
	SelectRole        = "role"
	SelectChannel     = "channel"
	SelectMentionable = "mentionable"
)

// SelectOption is one choice in a string select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Default     bool
}

// SelectMenu is a dropdown control.
type SelectMenu struct {
	Variant     string
	CustomID    string
	Placeholder string
	MinValues   int
	MaxValues   int
	Options     []SelectOption
}

// Separator adds vertical spacing, optionally with a divider line.
type Separator struct {
	Divider bool
	Spacing int
}

// Thumbnail is a small image, used standalone as a Section accessory or as
// a MediaGallery item.
type Thumbnail struct {
	URL         string
	Description string
}

// MediaGallery holds up to MaxGalleryItems images.
type MediaGallery struct {
	Items []*Thumbnail
}

// File references an attachment registered with the send.
type File struct {
	URL     string
	Spoiler bool
}

// Modal is a form layout; it is the only place TextInput may appear.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []*TextInput
}

// Text input styles.
const (
	TextInputShort     = "short"
	TextInputParagraph = "paragraph"
)

// TextInput is a form field inside a Modal.
type TextInput struct {
	CustomID    string
	Label       string
	Style       string
	Placeholder string
	Value       string
	MinLength   int
	MaxLength   int
	Required    bool
}

func (*Container) Kind() Type    { return TypeContainer }
func (*ActionRow) Kind() Type    { return TypeActionRow }
func (*Section) Kind() Type      { return TypeSection }
func (*TextDisplay) Kind() Type  { return TypeTextDisplay }
func (*Button) Kind() Type       { return TypeButton }
func (*SelectMenu) Kind() Type   { return TypeSelectMenu }
func (*Separator) Kind() Type    { return TypeSeparator }
func (*Thumbnail) Kind() Type    { return TypeThumbnail }
func (*MediaGallery) Kind() Type { return TypeMediaGallery }
func (*File) Kind() Type         { return TypeFile }
func (*Modal) Kind() Type        { return TypeModal }
func (*TextInput) Kind() Type    { return TypeTextInput }

// Tree is a validated component layout plus its aggregate counters. Only
// the builder produces one; a Tree in hand has already passed every
// structural rule.
type Tree struct {
	Children     []Node
	Modal        *Modal
	NodeCount    int
	TextChars    int
	GalleryItems int
}
