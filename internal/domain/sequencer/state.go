package sequencer

// State is a position in the presentation cycle.
type State int

// Sequencer states.
const (
	Idle State = iota
	Polling
	Rendering
	PlayingInterstitial
	InterstitialCooldown
)

var stateNames = []string{"idle", "polling", "rendering", "playing_interstitial", "interstitial_cooldown"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// blocksPolling reports whether no poll may start in this state.
func (s State) blocksPolling() bool {
	return s == PlayingInterstitial || s == InterstitialCooldown
}
