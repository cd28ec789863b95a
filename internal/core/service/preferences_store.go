package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// preferencesHydrated carries the persisted flags that could be read; nil
// means "keep the current value".
type preferencesHydrated struct {
	darkMode       *bool
	onboardingSeen *bool
	notifications  *bool
	firstLaunch    *bool
}

type darkModeSet struct{ on bool }

type onboardingCompleted struct{}

type launchMarked struct{}

type notificationsSet struct{ on bool }

type dimensionsSet struct{ dims domain.Dimensions }

type activeTabSet struct{ tab string }

type prefField uint8

const (
	fieldDarkMode prefField = 1 << iota
	fieldOnboarding
	fieldNotifications
	fieldFirstLaunch
)

type preferencesState struct {
	domain.Preferences
	// dirty marks flags changed in memory; hydration never overwrites them.
	dirty prefField
}

// InitialPreferences is the shape before hydration.
func InitialPreferences() domain.Preferences {
	return domain.Preferences{
		ColorScheme:          domain.SchemeLight,
		IsFirstLaunch:        true,
		NotificationsEnabled: true,
		ActiveTab:            "home",
	}
}

func preferencesReducer(s preferencesState, a Action) preferencesState {
	p := &s.Preferences
	switch a := a.(type) {
	case preferencesHydrated:
		merge := func(f prefField, dst *bool, v *bool) {
			if v != nil && s.dirty&f == 0 {
				*dst = *v
			}
		}
		merge(fieldDarkMode, &p.IsDarkMode, a.darkMode)
		merge(fieldOnboarding, &p.HasSeenOnboarding, a.onboardingSeen)
		merge(fieldNotifications, &p.NotificationsEnabled, a.notifications)
		merge(fieldFirstLaunch, &p.IsFirstLaunch, a.firstLaunch)
		p.IsHydrated = true
	case darkModeSet:
		p.IsDarkMode = a.on
		s.dirty |= fieldDarkMode
	case onboardingCompleted:
		p.HasSeenOnboarding = true
		s.dirty |= fieldOnboarding
	case launchMarked:
		p.IsFirstLaunch = false
		s.dirty |= fieldFirstLaunch
	case notificationsSet:
		p.NotificationsEnabled = a.on
		s.dirty |= fieldNotifications
	case dimensionsSet:
		p.ScreenDimensions = a.dims
	case activeTabSet:
		p.ActiveTab = a.tab
	default:
		return s
	}

	p.ColorScheme = domain.SchemeLight
	if p.IsDarkMode {
		p.ColorScheme = domain.SchemeDark
	}
	p.IsTablet = p.ScreenDimensions.IsTablet()
	return s
}

// PreferencesStore owns theme, onboarding, notification and device layout
// state. Every toggle is written through to the KV store before returning.
type PreferencesStore struct {
	store  *Store[preferencesState]
	kv     ports.KVStore
	system domain.ColorScheme
	log    zerolog.Logger
}

// NewPreferencesStore returns a store that falls back to system for the
// theme when nothing has been persisted.
func NewPreferencesStore(kv ports.KVStore, system domain.ColorScheme, log zerolog.Logger) *PreferencesStore {
	return &PreferencesStore{
		store:  NewStore(preferencesState{Preferences: InitialPreferences()}, preferencesReducer),
		kv:     kv,
		system: system,
		log:    log.With().Str("store", "preferences").Logger(),
	}
}

// State returns the current preferences snapshot.
func (s *PreferencesStore) State() domain.Preferences { return s.store.State().Preferences }

// Subscribe observes preference changes.
func (s *PreferencesStore) Subscribe(l Listener[domain.Preferences]) func() {
	return s.store.Subscribe(func(prev, next preferencesState) {
		l(prev.Preferences, next.Preferences)
	})
}

// Hydrate loads the persisted flags. Unreadable values keep their defaults,
// and a flag changed while hydration was reading keeps the newer value.
func (s *PreferencesStore) Hydrate(ctx context.Context) {
	var h preferencesHydrated
	h.darkMode = s.readBool(ctx, ports.KeyDarkMode)
	if h.darkMode == nil {
		dark := s.system == domain.SchemeDark
		h.darkMode = &dark
	}
	h.onboardingSeen = s.readBool(ctx, ports.KeyOnboardingSeen)
	h.notifications = s.readBool(ctx, ports.KeyNotificationsEnabled)
	h.firstLaunch = s.readBool(ctx, ports.KeyFirstLaunch)

	s.store.Dispatch(h)
	p := s.State()
	s.log.Debug().Bool("dark", p.IsDarkMode).Bool("first_launch", p.IsFirstLaunch).Msg("preferences hydrated")
}

// ToggleDarkMode flips the theme and persists it.
func (s *PreferencesStore) ToggleDarkMode(ctx context.Context) ports.Result {
	return s.SetDarkMode(ctx, !s.store.State().IsDarkMode)
}

// SetDarkMode persists and applies the theme. A storage failure is logged
// and the in-memory change still applies.
func (s *PreferencesStore) SetDarkMode(ctx context.Context, on bool) ports.Result {
	s.writeBool(ctx, ports.KeyDarkMode, on)
	s.store.Dispatch(darkModeSet{on: on})
	return ports.OK("")
}

// CompleteOnboarding records that onboarding was shown. It never reverts.
func (s *PreferencesStore) CompleteOnboarding(ctx context.Context) ports.Result {
	s.writeBool(ctx, ports.KeyOnboardingSeen, true)
	s.store.Dispatch(onboardingCompleted{})
	return ports.OK("")
}

// MarkLaunched clears the first-launch flag.
func (s *PreferencesStore) MarkLaunched(ctx context.Context) ports.Result {
	s.writeBool(ctx, ports.KeyFirstLaunch, false)
	s.store.Dispatch(launchMarked{})
	return ports.OK("")
}

// ToggleNotifications flips and persists the notifications preference.
func (s *PreferencesStore) ToggleNotifications(ctx context.Context) ports.Result {
	on := !s.store.State().NotificationsEnabled
	s.writeBool(ctx, ports.KeyNotificationsEnabled, on)
	s.store.Dispatch(notificationsSet{on: on})
	return ports.OK("")
}

// SetScreenDimensions records the device size; IsTablet follows from it.
// Dimensions are not persisted.
func (s *PreferencesStore) SetScreenDimensions(d domain.Dimensions) {
	s.store.Dispatch(dimensionsSet{dims: d})
}

// SetActiveTab records the selected tab. It is not persisted.
func (s *PreferencesStore) SetActiveTab(tab string) {
	s.store.Dispatch(activeTabSet{tab: tab})
}

// DeviceID returns the persisted installation id, creating one on first use.
func (s *PreferencesStore) DeviceID(ctx context.Context) string {
	if v, ok, err := s.kv.Get(ctx, ports.KeyDeviceID); err == nil && ok && v != "" {
		return v
	} else if err != nil {
		s.log.Warn().Err(err).Msg("failed to read device id")
	}
	id := uuid.NewString()
	if err := s.kv.Set(ctx, ports.KeyDeviceID, id); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist device id")
	}
	return id
}

// readBool returns nil when key is missing, unreadable or malformed.
func (s *PreferencesStore) readBool(ctx context.Context, key string) *bool {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to read preference")
		return nil
	}
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", raw).Msg("ignoring malformed preference")
		return nil
	}
	return &v
}

func (s *PreferencesStore) writeBool(ctx context.Context, key string, v bool) {
	if err := s.kv.Set(ctx, key, strconv.FormatBool(v)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to persist preference")
	}
}
