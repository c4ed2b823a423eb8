package chat

import (
	"github.com/bytedance/sonic"
	"github.com/diamondburned/arikawa/v3/discord"
)

// wireRow matches the wire shape of one action row. Components are decoded
// through their JSON form rather than arikawa's typed tree so that unknown
// component kinds degrade to skipped entries instead of failed conversions.
type wireRow struct {
	Type       int          `json:"type"`
	Components []wireButton `json:"components"`
}

type wireButton struct {
	Type     int    `json:"type"`
	Style    int    `json:"style"`
	Label    string `json:"label"`
	CustomID string `json:"custom_id"`
	Emoji    *struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"emoji"`
}

const buttonComponentType = 2

// FromDiscord normalizes an arikawa message into the internal Message model.
func FromDiscord(m *discord.Message) Message {
	msg := Message{
		ID:        uint64(m.ID),
		ChannelID: uint64(m.ChannelID),
		GuildID:   uint64(m.GuildID),
		Author: Author{
			ID:       uint64(m.Author.ID),
			Username: m.Author.Username,
			Bot:      m.Author.Bot,
		},
		Content: m.Content,
		Embeds:  convertEmbeds(m.Embeds),
		Rows:    convertComponents(m.Components),
	}

	return msg
}

func convertEmbeds(embeds []discord.Embed) []Embed {
	if len(embeds) == 0 {
		return nil
	}

	out := make([]Embed, 0, len(embeds))
	for _, e := range embeds {
		embed := Embed{
			Title:       e.Title,
			Description: e.Description,
		}

		if e.Author != nil {
			embed.AuthorName = e.Author.Name
		}

		if e.Footer != nil {
			embed.FooterText = e.Footer.Text
		}

		if e.Image != nil {
			embed.ImageURL = e.Image.URL
		}

		if e.Color > 0 {
			embed.Color = uint32(e.Color)
			embed.HasColor = true
		}

		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, EmbedField{Name: f.Name, Value: f.Value})
		}

		out = append(out, embed)
	}

	return out
}

// convertComponents extracts button rows from a message's component tree.
// Conversion failures yield no rows; a message without readable buttons is
// still classifiable from its embeds and text.
func convertComponents(components discord.ContainerComponents) []ButtonRow {
	if len(components) == 0 {
		return nil
	}

	raw, err := sonic.Marshal(components)
	if err != nil {
		return nil
	}

	var wire []wireRow
	if err := sonic.Unmarshal(raw, &wire); err != nil {
		return nil
	}

	rows := make([]ButtonRow, 0, len(wire))

	for _, row := range wire {
		var buttons []Button

		for _, b := range row.Components {
			if b.Type != buttonComponentType {
				continue
			}

			btn := Button{
				Type:     b.Type,
				Style:    b.Style,
				Label:    b.Label,
				CustomID: b.CustomID,
			}
			if b.Emoji != nil {
				btn.Emoji = &ButtonEmoji{Name: b.Emoji.Name, ID: b.Emoji.ID}
			}

			buttons = append(buttons, btn)
		}

		if len(buttons) > 0 {
			rows = append(rows, ButtonRow{Buttons: buttons})
		}
	}

	return rows
}
