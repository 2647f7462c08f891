package main

import (
	"encoding/json"
	"sort"
)

// Wire event names. Some names are used in both directions ("game start",
// "game reset", "chat message"): the inbound form is a request, the
// outbound form the broadcast result.
const (
	evUserCreate   = "user create"
	evRoomCreate   = "room create"
	evRoomJoined   = "room joined"
	evGameStart    = "game start"
	evNextImage    = "next image"
	evGameAnswer   = "game answer"
	evGameReset    = "game reset"
	evChatMessage  = "chat message"
	evChatReact    = "chat react"
	evChatModerate = "chat moderate"
	evGetRooms     = "get rooms"
	evGetRoom      = "get room"
	evGetUser      = "get user"

	evRooms             = "rooms"
	evRoomUpdate        = "room update"
	evPlayerUpdate      = "player update"
	evUser              = "user"
	evGameUpdate        = "game update"
	evGameImageUpdate   = "game image update"
	evGameEnd           = "game end"
	evGameTimerStart    = "game timer start"
	evTimerUpdate       = "timer update"
	evGameTimerStop     = "game timer stop"
	evChatJoin          = "chat join"
	evChatLeave         = "chat leave"
	evChatMessageUpdate = "chat message update"
	evError             = "error"
)

// envelope frames every inbound message; outbound is its typed mirror.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type userCreateData struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type roomCreateData struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	Duration   int    `json:"duration"`
	Privacy    string `json:"privacy"`
}

type roomJoinData struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
}

type gameControlData struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
}

type gameAnswerData struct {
	RoomCode string  `json:"roomCode"`
	UserID   string  `json:"userId"`
	Round    int     `json:"round"`
	Mode     string  `json:"mode"`
	Guess    string  `json:"guess,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
}

type chatMessageData struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Body     string `json:"body"`
}

type chatReactData struct {
	RoomCode  string `json:"roomCode"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Emoji     string `json:"emoji"`
}

type chatModerateData struct {
	RoomCode  string `json:"roomCode"`
	UserID    string `json:"userId"`
	Target    string `json:"target,omitempty"`
	Action    string `json:"action"`
	MessageID string `json:"messageId,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

type presenceData struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
}

type timerData struct {
	RoomCode  string `json:"roomCode"`
	Remaining int    `json:"remaining"`
}

type imageData struct {
	RoomCode string `json:"roomCode"`
	Round    int    `json:"round"`
	Image    string `json:"image"`
}

type errorData struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

type roomSummary struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Mode       string     `json:"mode"`
	Difficulty string     `json:"difficulty"`
	Private    bool       `json:"private"`
	Status     RoomStatus `json:"status"`
	Players    int        `json:"players"`
}

type playerState struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Points   int    `json:"points"`
	Alive    bool   `json:"alive"`
	Answered bool   `json:"answered"`
}

type gameState struct {
	RoomCode string     `json:"roomCode"`
	Status   RoomStatus `json:"status"`
	Round    int        `json:"round"`
	Rounds   int        `json:"rounds"`
}

type roomState struct {
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	Owner      string        `json:"owner"`
	Mode       string        `json:"mode"`
	Difficulty string        `json:"difficulty"`
	Duration   int           `json:"duration"`
	Private    bool          `json:"private"`
	Status     RoomStatus    `json:"status"`
	Round      int           `json:"round"`
	Players    []playerState `json:"players"`
}

type scoreEntry struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type scoreboard struct {
	RoomCode string       `json:"roomCode"`
	Scores   []scoreEntry `json:"scores"`
}

// The snapshot builders below run with room.mu held and copy everything
// out, so broadcasts never expose live state.

func rosterLocked(room *Room) []playerState {
	out := make([]playerState, 0, len(room.roster))
	for _, m := range room.roster {
		out = append(out, playerState{
			UserID:   m.UserID,
			Name:     m.Name,
			Role:     m.Role,
			Points:   m.Points,
			Alive:    m.Alive,
			Answered: m.answered(room.Mode),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func gameStateLocked(room *Room) gameState {
	return gameState{
		RoomCode: room.Code,
		Status:   room.Status,
		Round:    room.Round,
		Rounds:   len(room.rounds),
	}
}

func roomStateLocked(room *Room) roomState {
	return roomState{
		Code:       room.Code,
		Name:       room.Name,
		Owner:      room.OwnerID,
		Mode:       room.Mode,
		Difficulty: room.Difficulty,
		Duration:   room.Duration,
		Private:    room.Private,
		Status:     room.Status,
		Round:      room.Round,
		Players:    rosterLocked(room),
	}
}

func scoreboardLocked(room *Room) scoreboard {
	sb := scoreboard{RoomCode: room.Code}
	for _, p := range rosterLocked(room) {
		sb.Scores = append(sb.Scores, scoreEntry{
			UserID: p.UserID,
			Name:   p.Name,
			Points: p.Points,
		})
	}
	return sb
}

func summaryLocked(room *Room) roomSummary {
	return roomSummary{
		Code:       room.Code,
		Name:       room.Name,
		Mode:       room.Mode,
		Difficulty: room.Difficulty,
		Private:    room.Private,
		Status:     room.Status,
		Players:    len(room.roster),
	}
}
