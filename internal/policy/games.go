package policy

// GamesCategory blocks game launchers and the games installed through them.
type GamesCategory struct{}

// NewGamesCategory creates the games preset.
func NewGamesCategory() *GamesCategory {
	return &GamesCategory{}
}

func (c *GamesCategory) ID() string {
	return "games"
}

func (c *GamesCategory) Name() string {
	return "Games"
}

// Identifiers returns the known launcher and game process names.
func (c *GamesCategory) Identifiers() []string {
	return []string{
		// Steam client
		"Steam",
		"steam_osx",
		"steamwebhelper",
		"Steam Helper",

		// Dota 2
		"dota2",
		"dota_osx64",
		"Dota 2",
		"dota2_launcher",

		// Other launchers
		"Battle.net",
		"EpicGamesLauncher",
	}
}

var _ Category = (*GamesCategory)(nil)
