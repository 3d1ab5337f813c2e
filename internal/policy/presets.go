package policy

// Preset is a Category with a fixed identifier list.
type Preset struct {
	id   string
	name string
	ids  []string
}

// NewPreset creates a fixed category.
func NewPreset(id, name string, ids ...string) *Preset {
	return &Preset{id: id, name: name, ids: ids}
}

func (p *Preset) ID() string   { return p.id }
func (p *Preset) Name() string { return p.name }

func (p *Preset) Identifiers() []string {
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// NewSocialCategory creates the social media preset.
func NewSocialCategory() *Preset {
	return NewPreset("social", "Social",
		"Discord",
		"Slack",
		"Telegram",
		"WhatsApp",
		"Messenger",
	)
}

// NewVideoCategory creates the video streaming preset.
func NewVideoCategory() *Preset {
	return NewPreset("video", "Video",
		"Netflix",
		"Twitch",
		"VLC",
		"IINA",
	)
}

var _ Category = (*Preset)(nil)
