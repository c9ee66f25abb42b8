package component

import (
	"errors"
	"strings"
	"testing"
)

func textNode(content string) Descriptor {
	return Descriptor{Type: "text_display", Content: content}
}

func buttonNode(customID string) Descriptor {
	return Descriptor{Type: "button", Label: "Go", Style: "primary", CustomID: customID}
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected *StructuralError, got %T: %v", err, err)
	}
	return serr.Reason
}

func TestBuild_SimpleTree(t *testing.T) {
	builder := NewBuilder()
	tree, err := builder.Build(Document{
		Children: []Descriptor{
			textNode("Release 1.4 is live"),
			{Type: "action_row", Children: []Descriptor{
				buttonNode("release:notes"),
				{Type: "button", Label: "Docs", Style: "link", URL: "https://docs.example.com"},
			}},
			{Type: "separator", Divider: true},
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if tree.NodeCount != 5 {
		t.Errorf("Expected 5 nodes, got %d", tree.NodeCount)
	}
	if tree.TextChars != len("Release 1.4 is live") {
		t.Errorf("Unexpected text count %d", tree.TextChars)
	}
}

func TestBuild_NodeBudget(t *testing.T) {
	// Exactly 40 nodes is accepted
	children := make([]Descriptor, 40)
	for i := range children {
		children[i] = textNode("x")
	}
	tree, err := NewBuilder().Build(Document{Children: children})
	if err != nil {
		t.Fatalf("40-node tree should be accepted: %v", err)
	}
	if tree.NodeCount != 40 {
		t.Errorf("Expected 40 nodes, got %d", tree.NodeCount)
	}

	// 41 nodes is rejected
	children = append(children, textNode("x"))
	_, err = NewBuilder().Build(Document{Children: children})
	if err == nil {
		t.Fatal("41-node tree should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonTooManyNodes {
		t.Errorf("Expected %s, got %s", ReasonTooManyNodes, got)
	}
}

func TestBuild_TextBudget(t *testing.T) {
	// 4000 characters across two nodes is accepted
	_, err := NewBuilder().Build(Document{Children: []Descriptor{
		textNode(strings.Repeat("a", 2000)),
		textNode(strings.Repeat("b", 2000)),
	}})
	if err != nil {
		t.Fatalf("4000-character tree should be accepted: %v", err)
	}

	// 4001 characters is rejected
	_, err = NewBuilder().Build(Document{Children: []Descriptor{
		textNode(strings.Repeat("a", 2000)),
		textNode(strings.Repeat("b", 2001)),
	}})
	if err == nil {
		t.Fatal("4001-character tree should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonTextBudgetExceeded {
		t.Errorf("Expected %s, got %s", ReasonTextBudgetExceeded, got)
	}
}

func TestBuild_TextBudgetCountsRunes(t *testing.T) {
	// 4000 multibyte runes must be accepted: the budget is characters,
	// not bytes
	_, err := NewBuilder().Build(Document{Children: []Descriptor{
		textNode(strings.Repeat("é", 4000)),
	}})
	if err != nil {
		t.Fatalf("4000-rune tree should be accepted: %v", err)
	}
}

func TestBuild_GalleryBudget(t *testing.T) {
	items := func(n int) []Descriptor {
		out := make([]Descriptor, n)
		for i := range out {
			out[i] = Descriptor{Type: "thumbnail", URL: "https://cdn.example.com/img.png"}
		}
		return out
	}

	_, err := NewBuilder().Build(Document{Children: []Descriptor{
		{Type: "media_gallery", Items: items(10)},
	}})
	if err != nil {
		t.Fatalf("10-item gallery should be accepted: %v", err)
	}

	// The cap is aggregate across galleries
	_, err = NewBuilder().Build(Document{Children: []Descriptor{
		{Type: "media_gallery", Items: items(6)},
		{Type: "media_gallery", Items: items(5)},
	}})
	if err == nil {
		t.Fatal("11 gallery items across two galleries should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonGalleryBudget {
		t.Errorf("Expected %s, got %s", ReasonGalleryBudget, got)
	}
}

func TestBuild_SectionAccessoryRule(t *testing.T) {
	section := func(accessories []Descriptor) Document {
		return Document{Children: []Descriptor{{
			Type:        "section",
			Children:    []Descriptor{textNode("body")},
			Accessories: accessories,
		}}}
	}

	// Zero accessories
	_, err := NewBuilder().Build(section(nil))
	if err == nil {
		t.Fatal("Section without accessory should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonMissingAccessory {
		t.Errorf("Expected %s, got %s", ReasonMissingAccessory, got)
	}

	// Two accessories
	_, err = NewBuilder().Build(section([]Descriptor{
		buttonNode("a:1"), buttonNode("a:2"),
	}))
	if err == nil {
		t.Fatal("Section with two accessories should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonMissingAccessory {
		t.Errorf("Expected %s, got %s", ReasonMissingAccessory, got)
	}

	// Exactly one button accessory
	tree, err := NewBuilder().Build(section([]Descriptor{buttonNode("a:1")}))
	if err != nil {
		t.Fatalf("Section with one button accessory should be accepted: %v", err)
	}
	sec, ok := tree.Children[0].(*Section)
	if !ok {
		t.Fatalf("Expected *Section, got %T", tree.Children[0])
	}
	if _, ok := sec.Accessory.(*Button); !ok {
		t.Errorf("Expected button accessory, got %T", sec.Accessory)
	}
}

func TestBuild_SectionAccessoryWrongType(t *testing.T) {
	_, err := NewBuilder().Build(Document{Children: []Descriptor{{
		Type:        "section",
		Children:    []Descriptor{textNode("body")},
		Accessories: []Descriptor{{Type: "select_menu", CustomID: "pick"}},
	}}})
	if err == nil {
		t.Fatal("Select menu accessory should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonMissingAccessory {
		t.Errorf("Expected %s, got %s", ReasonMissingAccessory, got)
	}
}

func TestBuild_IllegalContainment(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{"button at root", Document{Children: []Descriptor{buttonNode("b:1")}}},
		{"container inside container", Document{Children: []Descriptor{{
			Type:     "container",
			Children: []Descriptor{{Type: "container"}},
		}}}},
		{"text inside action row", Document{Children: []Descriptor{{
			Type:     "action_row",
			Children: []Descriptor{textNode("nope")},
		}}}},
		{"button inside section children", Document{Children: []Descriptor{{
			Type:        "section",
			Children:    []Descriptor{buttonNode("b:1")},
			Accessories: []Descriptor{buttonNode("a:1")},
		}}}},
		{"gallery item not a thumbnail", Document{Children: []Descriptor{{
			Type:  "media_gallery",
			Items: []Descriptor{textNode("nope")},
		}}}},
		{"text input outside modal", Document{Children: []Descriptor{{
			Type: "text_input", CustomID: "f:1", Label: "Name",
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder().Build(tt.doc)
			if err == nil {
				t.Fatal("Expected containment rejection")
			}
			if got := reasonOf(t, err); got != ReasonIllegalContainment {
				t.Errorf("Expected %s, got %s", ReasonIllegalContainment, got)
			}
		})
	}
}

func TestBuild_OneLayoutPerMessage(t *testing.T) {
	_, err := NewBuilder().Build(Document{
		Children: []Descriptor{textNode("hello")},
		Modal: &Descriptor{Type: "modal", CustomID: "m:1", Title: "Form",
			Children: []Descriptor{{Type: "text_input", CustomID: "f:1", Label: "Name"}}},
	})
	if err == nil {
		t.Fatal("Combining a children layout with a modal should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonIllegalContainment {
		t.Errorf("Expected %s, got %s", ReasonIllegalContainment, got)
	}
}

func TestBuild_FileAttachmentRegistry(t *testing.T) {
	doc := Document{Children: []Descriptor{{Type: "file", URL: "attachment://report.pdf"}}}

	// Unregistered reference fails
	_, err := NewBuilder().Build(doc)
	if err == nil {
		t.Fatal("Unregistered attachment reference should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonUnknownAttachment {
		t.Errorf("Expected %s, got %s", ReasonUnknownAttachment, got)
	}

	// Registered reference passes
	builder := NewBuilder()
	builder.RegisterAttachment("report.pdf")
	if _, err := builder.Build(doc); err != nil {
		t.Fatalf("Registered attachment should be accepted: %v", err)
	}

	// Arbitrary external URL is not a valid file reference
	_, err = NewBuilder().Build(Document{Children: []Descriptor{
		{Type: "file", URL: "https://evil.example.com/report.pdf"},
	}})
	if err == nil {
		t.Fatal("File node with an external URL should be rejected")
	}
}

func TestBuild_SanitizesText(t *testing.T) {
	tree, err := NewBuilder().Build(Document{Children: []Descriptor{
		textNode("hi <script>alert(1)</script>there"),
	}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	text := tree.Children[0].(*TextDisplay)
	if strings.Contains(text.Content, "<script>") {
		t.Errorf("Script tag survived sanitization: %q", text.Content)
	}
}

func TestBuild_RejectsBadCustomID(t *testing.T) {
	_, err := NewBuilder().Build(Document{Children: []Descriptor{{
		Type: "action_row",
		Children: []Descriptor{{
			Type: "button", Label: "Go", Style: "primary", CustomID: "bad id<script>",
		}},
	}}})
	if err == nil {
		t.Fatal("Invalid custom_id should be rejected")
	}
	if got := reasonOf(t, err); got != ReasonInvalidContent {
		t.Errorf("Expected %s, got %s", ReasonInvalidContent, got)
	}
}

func TestBuild_Modal(t *testing.T) {
	tree, err := NewBuilder().Build(Document{
		Modal: &Descriptor{
			Type: "modal", CustomID: "feedback:form", Title: "Feedback",
			Children: []Descriptor{
				{Type: "text_input", CustomID: "feedback:subject", Label: "Subject"},
				{Type: "text_input", CustomID: "feedback:body", Label: "Details", Style: "paragraph"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if tree.Modal == nil {
		t.Fatal("Expected a modal layout")
	}
	if len(tree.Modal.Inputs) != 2 {
		t.Errorf("Expected 2 inputs, got %d", len(tree.Modal.Inputs))
	}
	// modal + two inputs
	if tree.NodeCount != 3 {
		t.Errorf("Expected 3 nodes, got %d", tree.NodeCount)
	}
}

func TestBuild_SelectMenuValidation(t *testing.T) {
	two := 2

	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"valid string select", Descriptor{
			Type: "select_menu", CustomID: "pick:one",
			Options: []OptionDescriptor{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}},
		}, false},
		{"valid user select", Descriptor{
			Type: "select_menu", CustomID: "pick:user", Variant: "user",
		}, false},
		{"string select without options", Descriptor{
			Type: "select_menu", CustomID: "pick:none",
		}, true},
		{"max exceeds options", Descriptor{
			Type: "select_menu", CustomID: "pick:over", MaxValues: &two,
			Options: []OptionDescriptor{{Label: "A", Value: "a"}},
		}, true},
		{"unknown variant", Descriptor{
			Type: "select_menu", CustomID: "pick:odd", Variant: "emoji",
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder().Build(Document{Children: []Descriptor{{
				Type:     "action_row",
				Children: []Descriptor{tt.desc},
			}}})
			if (err != nil) != tt.wantErr {
				t.Errorf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_ContainerHoldsAllowedChildren(t *testing.T) {
	tree, err := NewBuilder().Build(Document{Containers: []Descriptor{{
		Type: "container",
		Children: []Descriptor{
			textNode("inside"),
			{Type: "separator"},
			{Type: "action_row", Children: []Descriptor{buttonNode("c:1")}},
		},
	}}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("Expected one top-level container, got %d", len(tree.Children))
	}
	if _, ok := tree.Children[0].(*Container); !ok {
		t.Fatalf("Expected *Container, got %T", tree.Children[0])
	}
}
