package network

// Message ids. Requests from clients share the id of their response.
const (
	MsgTypeHeartbeat = 1

	MsgTypeHostGame   = 101
	MsgTypeJoinGame   = 102
	MsgTypeSearchGame = 103
	MsgTypeStartGame  = 104
	MsgTypeLeaveGame  = 105

	MsgTypeTurnAction = 201

	MsgTypePlayerJoined = 301
	MsgTypePlayerLeft   = 302
	MsgTypeGameStart    = 303
	MsgTypeTurnChanged  = 304
	MsgTypeWelcome      = 305
)

// Outcome codes carried in every Response.
const (
	OutcomeOK              = "ok"
	OutcomeDuplicateID     = "duplicate_match_id"
	OutcomeMatchNotFound   = "match_not_found"
	OutcomeMatchFull       = "match_full"
	OutcomeMatchInProgress = "match_in_progress"
	OutcomeNoEligibleMatch = "no_eligible_match"
	OutcomeAlreadyStarted  = "already_started"
	OutcomeNotInMatch      = "not_in_match"
	OutcomeAlreadyInMatch  = "already_in_match"
	OutcomeBadRequest      = "bad_request"
	OutcomeBusy            = "request_pending"
)

// Request is the JSON body of a lobby command.
type Request struct {
	RequestID string `json:"request_id"`
	MatchID   string `json:"match_id,omitempty"`
	Public    bool   `json:"public,omitempty"`
}

// Response is the directed reply to one Request.
type Response struct {
	RequestID string        `json:"request_id"`
	Success   bool          `json:"success"`
	Outcome   string        `json:"outcome"`
	MatchID   string        `json:"match_id,omitempty"`
	Seat      int           `json:"seat"`
	GroupKey  string        `json:"group_key,omitempty"`
	Roster    []RosterEntry `json:"roster,omitempty"`
}

// RosterEntry is one seated player, used to order the lobby view by seat.
type RosterEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
}

// RosterNotice tells match members that someone arrived or left.
type RosterNotice struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Seat     int    `json:"seat"`
}

// GameStartNotice moves a participant from the lobby into the game.
type GameStartNotice struct {
	MatchID  string `json:"match_id"`
	GroupKey string `json:"group_key"`
	Seat     int    `json:"seat"`
}

// TurnNotice announces whose turn it is.
type TurnNotice struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
	Turn     int64  `json:"turn"`
}

// TurnAction is a game-phase command.
type TurnAction struct {
	Type string `json:"type"`
}

// Welcome is sent once a connection has a session. SearchIntervalMS is
// the cadence clients should poll search at.
type Welcome struct {
	SessionID        string `json:"session_id"`
	Name             string `json:"name"`
	MaxPlayers       int    `json:"max_players"`
	SearchIntervalMS int64  `json:"search_interval_ms"`
}
