package gameclient

// State is the client's position in the game flow.
type State int

const (
	NeedName          State = iota // Waiting for the player to pick a nickname
	NotConnected                   // Nickname chosen, waiting for the server address
	NameRejected                   // The server refused the nickname
	NeedSession                    // Logged in, waiting to create or join a session
	WaitingForPlayers              // Joined a session that is not full yet
	NeedMove                       // A game is running
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case NeedName:
		return "NeedName"
	case NotConnected:
		return "NotConnected"
	case NameRejected:
		return "NameRejected"
	case NeedSession:
		return "NeedSession"
	case WaitingForPlayers:
		return "WaitingForPlayers"
	case NeedMove:
		return "NeedMove"
	default:
		return "Unknown"
	}
}

// Prompt returns the message shown to the player on entering the state.
func (s State) Prompt() string {
	return prompts[s]
}

var prompts = map[State]string{
	NeedName:          "What's your nickname?",
	NotConnected:      "What's the server's IP address?",
	NameRejected:      "That name is already taken, try another one.",
	NeedSession:       "\nWant to [c]reate a new session or [j]oin an existing one?",
	WaitingForPlayers: "Waiting for other players...",
	NeedMove:          "\nEnter column, row, number to fill a spot.\nFor example, '213' puts '3' at (x=2, y=1).",
}
