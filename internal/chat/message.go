package chat

// Message is an immutable snapshot of an inbound Discord message, normalized
// to the subset of fields the classifier and engine consume. It is created
// once per gateway delivery and never mutated afterwards.
type Message struct {
	ID        uint64
	ChannelID uint64
	GuildID   uint64
	Author    Author
	Content   string
	Embeds    []Embed
	Rows      []ButtonRow
}

// Author identifies the sender of a message.
type Author struct {
	ID       uint64
	Username string
	Bot      bool
}

// Embed mirrors a Discord rich-content block. Every field is independently
// optional; absence is meaningful because different message kinds populate
// different subsets.
type Embed struct {
	Title       string
	Description string
	AuthorName  string
	FooterText  string
	Fields      []EmbedField
	ImageURL    string
	Color       uint32
	HasColor    bool
}

// EmbedField is a single (name, value) pair inside an embed.
type EmbedField struct {
	Name  string
	Value string
}

// ButtonRow is one action row of interactive buttons, in display order.
type ButtonRow struct {
	Buttons []Button
}

// Button carries both the affordance-detection fields (label, emoji) and the
// opaque custom ID needed to invoke the button server-side.
type Button struct {
	Type     int
	Style    int
	Label    string
	CustomID string
	Emoji    *ButtonEmoji
}

// ButtonEmoji is the emoji descriptor attached to a button, if any.
type ButtonEmoji struct {
	Name string
	ID   string
}

// FirstEmbed returns the first embed, or nil if the message has none.
func (m *Message) FirstEmbed() *Embed {
	if len(m.Embeds) == 0 {
		return nil
	}

	return &m.Embeds[0]
}

// HasButtons reports whether any row carries at least one button.
func (m *Message) HasButtons() bool {
	for _, row := range m.Rows {
		if len(row.Buttons) > 0 {
			return true
		}
	}

	return false
}

// EachButton calls fn for every button, scanning rows then buttons within a
// row in order, until fn returns true.
func (m *Message) EachButton(fn func(*Button) bool) {
	for i := range m.Rows {
		for j := range m.Rows[i].Buttons {
			if fn(&m.Rows[i].Buttons[j]) {
				return
			}
		}
	}
}
