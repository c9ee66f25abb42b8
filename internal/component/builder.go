package component

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chatgate/internal/security"
)

// Descriptor is one caller-supplied node in the request body: a type tag
// plus the fields that type uses.
type Descriptor struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Label       string `json:"label,omitempty"`
	Style       string `json:"style,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
	URL         string `json:"url,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
	AccentColor int    `json:"accent_color,omitempty"`
	MinValues   *int   `json:"min_values,omitempty"`
	MaxValues   *int   `json:"max_values,omitempty"`
	MinLength   int    `json:"min_length,omitempty"`
	MaxLength   int    `json:"max_length,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
	Divider     bool   `json:"divider,omitempty"`
	Spacing     int    `json:"spacing,omitempty"`
	Spoiler     bool   `json:"spoiler,omitempty"`
	Value       string `json:"value,omitempty"`

	Options     []OptionDescriptor `json:"options,omitempty"`
	Children    []Descriptor       `json:"children,omitempty"`
	Items       []Descriptor       `json:"items,omitempty"`
	Accessory   *Descriptor        `json:"accessory,omitempty"`
	Accessories []Descriptor       `json:"accessories,omitempty"`
}

// OptionDescriptor is one choice in a string select menu.
type OptionDescriptor struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// Document is the component layout of one compose request. A message
// carries at most one layout: plain children, a containers view, or a
// modal — never a combination.
type Document struct {
	Containers []Descriptor `json:"containers,omitempty"`
	Children   []Descriptor `json:"children,omitempty"`
	Modal      *Descriptor  `json:"modal,omitempty"`
}

// AttachmentScheme prefixes URLs that reference attachments registered
// with the send rather than external resources.
const AttachmentScheme = "attachment://"

// Containment rules per variant. A child type absent from its parent's set
// is rejected at the point of insertion.
var (
	rootChildren = map[Type]bool{
		TypeContainer: true, TypeActionRow: true, TypeSection: true,
		TypeTextDisplay: true, TypeMediaGallery: true, TypeSeparator: true,
		TypeFile: true,
	}
	containerChildren = map[Type]bool{
		TypeActionRow: true, TypeSection: true, TypeTextDisplay: true,
		TypeMediaGallery: true, TypeSeparator: true, TypeFile: true,
	}
	actionRowChildren = map[Type]bool{
		TypeButton: true, TypeSelectMenu: true,
	}
)

// Builder constructs one validated component tree per compose request.
// Aggregate counters are maintained incrementally so an oversized tree is
// rejected as soon as it crosses a limit, not after a full build.
type Builder struct {
	attachments map[string]bool

	nodes        int
	textChars    int
	galleryItems int
}

// NewBuilder returns a builder with an empty attachment registry.
func NewBuilder() *Builder {
	return &Builder{attachments: make(map[string]bool)}
}

// RegisterAttachment makes an attachment name referenceable via
// attachment:// URLs in File and Thumbnail nodes.
func (b *Builder) RegisterAttachment(name string) {
	if name != "" {
		b.attachments[name] = true
	}
}

// Build maps the document to a validated Tree or fails with a
// *StructuralError identifying the offending node.
func (b *Builder) Build(doc Document) (*Tree, error) {
	b.nodes = 0
	b.textChars = 0
	b.galleryItems = 0

	layouts := 0
	if len(doc.Children) > 0 {
		layouts++
	}
	if len(doc.Containers) > 0 {
		layouts++
	}
	if doc.Modal != nil {
		layouts++
	}
	if layouts > 1 {
		return nil, structuralErr(ReasonIllegalContainment, "",
			"a message carries a single layout: children, containers, or modal")
	}

	tree := &Tree{}

	if doc.Modal != nil {
		modal, err := b.buildModal(*doc.Modal, "modal")
		if err != nil {
			return nil, err
		}
		tree.Modal = modal
	}

	for i, desc := range doc.Containers {
		path := fmt.Sprintf("containers[%d]", i)
		if Type(desc.Type) != TypeContainer {
			return nil, structuralErr(ReasonIllegalContainment, path,
				"containers array only holds container nodes, got '%s'", desc.Type)
		}
		node, err := b.buildNode(desc, path, rootChildren)
		if err != nil {
			return nil, err
		}
		tree.Children = append(tree.Children, node)
	}

	for i, desc := range doc.Children {
		node, err := b.buildNode(desc, fmt.Sprintf("children[%d]", i), rootChildren)
		if err != nil {
			return nil, err
		}
		tree.Children = append(tree.Children, node)
	}

	tree.NodeCount = b.nodes
	tree.TextChars = b.textChars
	tree.GalleryItems = b.galleryItems
	return tree, nil
}

// buildNode maps one descriptor to its variant, recursively building
// children. allowed is the parent's containment set.
func (b *Builder) buildNode(desc Descriptor, path string, allowed map[Type]bool) (Node, error) {
	kind := Type(desc.Type)
	if !allowed[kind] {
		return nil, structuralErr(ReasonIllegalContainment, path,
			"component type '%s' is not allowed here", desc.Type)
	}
	if err := b.countNode(path); err != nil {
		return nil, err
	}

	switch kind {
	case TypeContainer:
		return b.buildContainer(desc, path)
	case TypeActionRow:
		return b.buildActionRow(desc, path)
	case TypeSection:
		return b.buildSection(desc, path)
	case TypeTextDisplay:
		return b.buildTextDisplay(desc, path)
	case TypeButton:
		return b.buildButton(desc, path)
	case TypeSelectMenu:
		return b.buildSelectMenu(desc, path)
	case TypeSeparator:
		return &Separator{Divider: desc.Divider, Spacing: desc.Spacing}, nil
	case TypeThumbnail:
		return b.buildThumbnail(desc, path, false)
	case TypeMediaGallery:
		return b.buildMediaGallery(desc, path)
	case TypeFile:
		return b.buildFile(desc, path)
	case TypeModal, TypeTextInput:
		// Reachable only through a corrupted containment table: modal
		// layouts enter through buildModal.
		return nil, structuralErr(ReasonIllegalContainment, path,
			"component type '%s' only appears in a modal layout", desc.Type)
	default:
		return nil, structuralErr(ReasonIllegalContainment, path,
			"unknown component type '%s'", desc.Type)
	}
}

func (b *Builder) buildContainer(desc Descriptor, path string) (Node, error) {
	container := &Container{AccentColor: desc.AccentColor}
	for i, child := range desc.Children {
		node, err := b.buildNode(child, fmt.Sprintf("%s.children[%d]", path, i), containerChildren)
		if err != nil {
			return nil, err
		}
		container.Children = append(container.Children, node)
	}
	return container, nil
}

func (b *Builder) buildActionRow(desc Descriptor, path string) (Node, error) {
	row := &ActionRow{}
	if len(desc.Children) == 0 {
		return nil, structuralErr(ReasonInvalidContent, path, "action row needs at least one control")
	}
	for i, child := range desc.Children {
		node, err := b.buildNode(child, fmt.Sprintf("%s.children[%d]", path, i), actionRowChildren)
		if err != nil {
			return nil, err
		}
		row.Children = append(row.Children, node)
	}
	return row, nil
}

func (b *Builder) buildSection(desc Descriptor, path string) (Node, error) {
	section := &Section{}

	for i, child := range desc.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if Type(child.Type) != TypeTextDisplay {
			return nil, structuralErr(ReasonIllegalContainment, childPath,
				"section children must be text_display, got '%s'", child.Type)
		}
		if err := b.countNode(childPath); err != nil {
			return nil, err
		}
		text, err := b.buildTextDisplay(child, childPath)
		if err != nil {
			return nil, err
		}
		section.Children = append(section.Children, text)
	}

	accessories := desc.Accessories
	if desc.Accessory != nil {
		accessories = append(accessories, *desc.Accessory)
	}
	if len(accessories) != 1 {
		return nil, structuralErr(ReasonMissingAccessory, path,
			"section requires exactly one accessory, got %d", len(accessories))
	}

	accPath := path + ".accessory"
	accDesc := accessories[0]
	switch Type(accDesc.Type) {
	case TypeButton:
		if err := b.countNode(accPath); err != nil {
			return nil, err
		}
		button, err := b.buildButton(accDesc, accPath)
		if err != nil {
			return nil, err
		}
		section.Accessory = button
	case TypeThumbnail:
		if err := b.countNode(accPath); err != nil {
			return nil, err
		}
		thumb, err := b.buildThumbnail(accDesc, accPath, false)
		if err != nil {
			return nil, err
		}
		section.Accessory = thumb
	default:
		return nil, structuralErr(ReasonMissingAccessory, accPath,
			"section accessory must be a button or thumbnail, got '%s'", accDesc.Type)
	}

	return section, nil
}

func (b *Builder) buildTextDisplay(desc Descriptor, path string) (*TextDisplay, error) {
	content := security.SanitizeText(desc.Content)
	if strings.TrimSpace(content) == "" {
		return nil, structuralErr(ReasonInvalidContent, path, "text_display content cannot be empty")
	}
	if err := b.addText(content, path); err != nil {
		return nil, err
	}
	return &TextDisplay{Content: content}, nil
}

func (b *Builder) buildButton(desc Descriptor, path string) (*Button, error) {
	label := security.SanitizeText(desc.Label)
	if strings.TrimSpace(label) == "" {
		return nil, structuralErr(ReasonInvalidContent, path, "button label cannot be empty")
	}

	style := desc.Style
	if style == "" {
		style = ButtonSecondary
	}

	switch style {
	case ButtonPrimary, ButtonSecondary, ButtonSuccess, ButtonDanger:
		if err := security.ValidateCustomID(desc.CustomID); err != nil {
			return nil, structuralErr(ReasonInvalidContent, path, "button custom_id: %v", err)
		}
		if desc.URL != "" {
			return nil, structuralErr(ReasonInvalidContent, path, "only link buttons carry a url")
		}
	case ButtonLink:
		if desc.CustomID != "" {
			return nil, structuralErr(ReasonInvalidContent, path, "link buttons carry no custom_id")
		}
		if err := security.ValidateExternalURL(desc.URL); err != nil {
			return nil, structuralErr(ReasonInvalidContent, path, "link button url: %v", err)
		}
	default:
		return nil, structuralErr(ReasonInvalidContent, path, "unknown button style '%s'", desc.Style)
	}

	return &Button{
		Label:    label,
		Style:    style,
		CustomID: desc.CustomID,
		URL:      desc.URL,
		Disabled: desc.Disabled,
	}, nil
}

func (b *Builder) buildSelectMenu(desc Descriptor, path string) (*SelectMenu, error) {
	if err := security.ValidateCustomID(desc.CustomID); err != nil {
		return nil, structuralErr(ReasonInvalidContent, path, "select_menu custom_id: %v", err)
	}

	variant := desc.Variant
	if variant == "" {
		variant = SelectString
	}
	switch variant {
	case SelectString, SelectUser, SelectRole, SelectChannel, SelectMentionable:
	default:
		return nil, structuralErr(ReasonInvalidContent, path, "unknown select variant '%s'", desc.Variant)
	}

	menu := &SelectMenu{
		Variant:     variant,
		CustomID:    desc.CustomID,
		Placeholder: security.SanitizeText(desc.Placeholder),
		MinValues:   1,
		MaxValues:   1,
	}
	if desc.MinValues != nil {
		menu.MinValues = *desc.MinValues
	}
	if desc.MaxValues != nil {
		menu.MaxValues = *desc.MaxValues
	}

	if variant == SelectString {
		if len(desc.Options) == 0 {
			return nil, structuralErr(ReasonInvalidContent, path, "string select needs at least one option")
		}
		for i, opt := range desc.Options {
			optPath := fmt.Sprintf("%s.options[%d]", path, i)
			label := security.SanitizeText(opt.Label)
			if strings.TrimSpace(label) == "" {
				return nil, structuralErr(ReasonInvalidContent, optPath, "option label cannot be empty")
			}
			if opt.Value == "" {
				return nil, structuralErr(ReasonInvalidContent, optPath, "option value cannot be empty")
			}
			menu.Options = append(menu.Options, SelectOption{
				Label:       label,
				Value:       opt.Value,
				Description: security.SanitizeText(opt.Description),
				Default:     opt.Default,
			})
		}
	}

	if menu.MinValues < 0 || menu.MaxValues < 1 || menu.MinValues > menu.MaxValues {
		return nil, structuralErr(ReasonInvalidContent, path,
			"select bounds invalid: min=%d max=%d", menu.MinValues, menu.MaxValues)
	}
	if menu.Variant == SelectString && menu.MaxValues > len(menu.Options) {
		return nil, structuralErr(ReasonInvalidContent, path,
			"max_values %d exceeds option count %d", menu.MaxValues, len(menu.Options))
	}

	return menu, nil
}

func (b *Builder) buildThumbnail(desc Descriptor, path string, inGallery bool) (*Thumbnail, error) {
	if name, ok := strings.CutPrefix(desc.URL, AttachmentScheme); ok {
		if !b.attachments[name] {
			return nil, structuralErr(ReasonUnknownAttachment, path,
				"attachment '%s' is not registered with this send", name)
		}
	} else if err := security.ValidateExternalURL(desc.URL); err != nil {
		return nil, structuralErr(ReasonInvalidContent, path, "thumbnail url: %v", err)
	}

	if inGallery {
		if err := b.addGalleryItem(path); err != nil {
			return nil, err
		}
	}

	return &Thumbnail{
		URL:         desc.URL,
		Description: security.SanitizeText(desc.Description),
	}, nil
}

func (b *Builder) buildMediaGallery(desc Descriptor, path string) (*MediaGallery, error) {
	if len(desc.Items) == 0 {
		return nil, structuralErr(ReasonInvalidContent, path, "media gallery needs at least one item")
	}

	gallery := &MediaGallery{}
	for i, item := range desc.Items {
		itemPath := fmt.Sprintf("%s.items[%d]", path, i)
		if Type(item.Type) != TypeThumbnail {
			return nil, structuralErr(ReasonIllegalContainment, itemPath,
				"gallery items must be thumbnails, got '%s'", item.Type)
		}
		if err := b.countNode(itemPath); err != nil {
			return nil, err
		}
		thumb, err := b.buildThumbnail(item, itemPath, true)
		if err != nil {
			return nil, err
		}
		gallery.Items = append(gallery.Items, thumb)
	}
	return gallery, nil
}

func (b *Builder) buildFile(desc Descriptor, path string) (*File, error) {
	name, ok := strings.CutPrefix(desc.URL, AttachmentScheme)
	if !ok {
		return nil, structuralErr(ReasonUnknownAttachment, path,
			"file url must use the %s scheme", AttachmentScheme)
	}
	if !b.attachments[name] {
		return nil, structuralErr(ReasonUnknownAttachment, path,
			"attachment '%s' is not registered with this send", name)
	}
	return &File{URL: desc.URL, Spoiler: desc.Spoiler}, nil
}

func (b *Builder) buildModal(desc Descriptor, path string) (*Modal, error) {
	if Type(desc.Type) != TypeModal {
		return nil, structuralErr(ReasonIllegalContainment, path,
			"modal layout must be a modal node, got '%s'", desc.Type)
	}
	if err := b.countNode(path); err != nil {
		return nil, err
	}
	if err := security.ValidateCustomID(desc.CustomID); err != nil {
		return nil, structuralErr(ReasonInvalidContent, path, "modal custom_id: %v", err)
	}
	title := security.SanitizeText(desc.Title)
	if strings.TrimSpace(title) == "" {
		return nil, structuralErr(ReasonInvalidContent, path, "modal title cannot be empty")
	}

	modal := &Modal{CustomID: desc.CustomID, Title: title}
	if len(desc.Children) == 0 {
		return nil, structuralErr(ReasonInvalidContent, path, "modal needs at least one text input")
	}
	for i, child := range desc.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if Type(child.Type) != TypeTextInput {
			return nil, structuralErr(ReasonIllegalContainment, childPath,
				"modal children must be text_input, got '%s'", child.Type)
		}
		if err := b.countNode(childPath); err != nil {
			return nil, err
		}
		input, err := b.buildTextInput(child, childPath)
		if err != nil {
			return nil, err
		}
		modal.Inputs = append(modal.Inputs, input)
	}
	return modal, nil
}

func (b *Builder) buildTextInput(desc Descriptor, path string) (*TextInput, error) {
	if err := security.ValidateCustomID(desc.CustomID); err != nil {
		return nil, structuralErr(ReasonInvalidContent, path, "text_input custom_id: %v", err)
	}
	label := security.SanitizeText(desc.Label)
	if strings.TrimSpace(label) == "" {
		return nil, structuralErr(ReasonInvalidContent, path, "text_input label cannot be empty")
	}

	style := desc.Style
	if style == "" {
		style = TextInputShort
	}
	if style != TextInputShort && style != TextInputParagraph {
		return nil, structuralErr(ReasonInvalidContent, path, "unknown text_input style '%s'", desc.Style)
	}

	if desc.MinLength < 0 || (desc.MaxLength > 0 && desc.MinLength > desc.MaxLength) {
		return nil, structuralErr(ReasonInvalidContent, path,
			"text_input length bounds invalid: min=%d max=%d", desc.MinLength, desc.MaxLength)
	}

	return &TextInput{
		CustomID:    desc.CustomID,
		Label:       label,
		Style:       style,
		Placeholder: security.SanitizeText(desc.Placeholder),
		Value:       security.SanitizeText(desc.Value),
		MinLength:   desc.MinLength,
		MaxLength:   desc.MaxLength,
		Required:    desc.Required,
	}, nil
}

// countNode admits one more node into the tree, rejecting immediately at
// the limit.
func (b *Builder) countNode(path string) error {
	b.nodes++
	if b.nodes > MaxNodes {
		return structuralErr(ReasonTooManyNodes, path,
			"tree exceeds %d nodes", MaxNodes)
	}
	return nil
}

// addText charges content against the aggregate text budget.
func (b *Builder) addText(content, path string) error {
	b.textChars += utf8.RuneCountInString(content)
	if b.textChars > MaxTextChars {
		return structuralErr(ReasonTextBudgetExceeded, path,
			"aggregate text exceeds %d characters", MaxTextChars)
	}
	return nil
}

// addGalleryItem charges one item against the aggregate gallery budget.
func (b *Builder) addGalleryItem(path string) error {
	b.galleryItems++
	if b.galleryItems > MaxGalleryItems {
		return structuralErr(ReasonGalleryBudget, path,
			"galleries exceed %d items total", MaxGalleryItems)
	}
	return nil
}
