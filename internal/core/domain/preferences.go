package domain

// ColorScheme is the resolved UI theme.
type ColorScheme string

const (
	SchemeLight ColorScheme = "light"
	SchemeDark  ColorScheme = "dark"
)

// tabletMinSide is the shortest screen side, in points, treated as a tablet.
const tabletMinSide = 600

// Dimensions is a device screen size in points.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsTablet reports whether d is large enough to use the tablet layout.
func (d Dimensions) IsTablet() bool {
	side := d.Width
	if d.Height < side {
		side = d.Height
	}
	return side >= tabletMinSide
}

// Preferences is application-wide UI and device state.
type Preferences struct {
	IsDarkMode           bool        `json:"isDarkMode"`
	ColorScheme          ColorScheme `json:"colorScheme"`
	IsFirstLaunch        bool        `json:"isFirstLaunch"`
	HasSeenOnboarding    bool        `json:"hasSeenOnboarding"`
	NotificationsEnabled bool        `json:"notificationsEnabled"`
	ScreenDimensions     Dimensions  `json:"screenDimensions"`
	IsTablet             bool        `json:"isTablet"`
	ActiveTab            string      `json:"activeTab"`
	IsHydrated           bool        `json:"isHydrated"`
}
