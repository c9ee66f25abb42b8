package platform

import "chatgate/internal/component"

// EncodeTree converts a validated component tree to the platform's wire
// format. The switch over node kinds is exhaustive; a new component kind
// fails here at compile review, not at runtime.
func EncodeTree(tree *component.Tree) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tree.Children))
	for _, node := range tree.Children {
		out = append(out, encodeNode(node))
	}
	return out
}

// EncodeModal converts a validated modal layout to the wire format.
func EncodeModal(modal *component.Modal) map[string]interface{} {
	inputs := make([]map[string]interface{}, 0, len(modal.Inputs))
	for _, input := range modal.Inputs {
		inputs = append(inputs, encodeNode(input))
	}
	return map[string]interface{}{
		"type":      string(component.TypeModal),
		"custom_id": modal.CustomID,
		"title":     modal.Title,
		"children":  inputs,
	}
}

func encodeNode(node component.Node) map[string]interface{} {
	switch n := node.(type) {
	case *component.Container:
		out := map[string]interface{}{
			"type":     string(component.TypeContainer),
			"children": encodeChildren(n.Children),
		}
		if n.AccentColor != 0 {
			out["accent_color"] = n.AccentColor
		}
		return out

	case *component.ActionRow:
		return map[string]interface{}{
			"type":     string(component.TypeActionRow),
			"children": encodeChildren(n.Children),
		}

	case *component.Section:
		children := make([]map[string]interface{}, 0, len(n.Children))
		for _, text := range n.Children {
			children = append(children, encodeNode(text))
		}
		return map[string]interface{}{
			"type":      string(component.TypeSection),
			"children":  children,
			"accessory": encodeNode(n.Accessory),
		}

	case *component.TextDisplay:
		return map[string]interface{}{
			"type":    string(component.TypeTextDisplay),
			"content": n.Content,
		}

	case *component.Button:
		out := map[string]interface{}{
			"type":  string(component.TypeButton),
			"label": n.Label,
			"style": n.Style,
		}
		if n.CustomID != "" {
			out["custom_id"] = n.CustomID
		}
		if n.URL != "" {
			out["url"] = n.URL
		}
		if n.Disabled {
			out["disabled"] = true
		}
		return out

	case *component.SelectMenu:
		out := map[string]interface{}{
			"type":       string(component.TypeSelectMenu),
			"variant":    n.Variant,
			"custom_id":  n.CustomID,
			"min_values": n.MinValues,
			"max_values": n.MaxValues,
		}
		if n.Placeholder != "" {
			out["placeholder"] = n.Placeholder
		}
		if len(n.Options) > 0 {
			options := make([]map[string]interface{}, 0, len(n.Options))
			for _, opt := range n.Options {
				option := map[string]interface{}{
					"label": opt.Label,
					"value": opt.Value,
				}
				if opt.Description != "" {
					option["description"] = opt.Description
				}
				if opt.Default {
					option["default"] = true
				}
				options = append(options, option)
			}
			out["options"] = options
		}
		return out

	case *component.Separator:
		out := map[string]interface{}{"type": string(component.TypeSeparator)}
		if n.Divider {
			out["divider"] = true
		}
		if n.Spacing != 0 {
			out["spacing"] = n.Spacing
		}
		return out

	case *component.Thumbnail:
		out := map[string]interface{}{
			"type": string(component.TypeThumbnail),
			"url":  n.URL,
		}
		if n.Description != "" {
			out["description"] = n.Description
		}
		return out

	case *component.MediaGallery:
		items := make([]map[string]interface{}, 0, len(n.Items))
		for _, item := range n.Items {
			items = append(items, encodeNode(item))
		}
		return map[string]interface{}{
			"type":  string(component.TypeMediaGallery),
			"items": items,
		}

	case *component.File:
		out := map[string]interface{}{
			"type": string(component.TypeFile),
			"url":  n.URL,
		}
		if n.Spoiler {
			out["spoiler"] = true
		}
		return out

	case *component.Modal:
		return EncodeModal(n)

	case *component.TextInput:
		out := map[string]interface{}{
			"type":      string(component.TypeTextInput),
			"custom_id": n.CustomID,
			"label":     n.Label,
			"style":     n.Style,
		}
		if n.Placeholder != "" {
			out["placeholder"] = n.Placeholder
		}
		if n.Value != "" {
			out["value"] = n.Value
		}
		if n.MinLength > 0 {
			out["min_length"] = n.MinLength
		}
		if n.MaxLength > 0 {
			out["max_length"] = n.MaxLength
		}
		if n.Required {
			out["required"] = true
		}
		return out

	default:
		// The Node union is closed; this is unreachable.
		return map[string]interface{}{"type": "unknown"}
	}
}

func encodeChildren(children []component.Node) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(children))
	for _, child := range children {
		out = append(out, encodeNode(child))
	}
	return out
}
